package controllers

import (
	"net/http"

	"github.com/reelforge/reelforge-backend/api/responses"
	"github.com/reelforge/reelforge-backend/api/validators"
	"github.com/reelforge/reelforge-backend/internal/settings"
	"github.com/reelforge/reelforge-backend/pkg/logger"
)

type updateSettingsRequest struct {
	AnthropicAPIKey  *string `json:"anthropicApiKey"`
	NanobananaAPIKey *string `json:"nanobananaApiKey"`
	DefaultModel     *string `json:"defaultModel" validate:"omitempty,oneof=flash pro"`
	DefaultNumScenes *int    `json:"defaultNumScenes" validate:"omitempty,min=1,max=30"`
}

// GetSettings returns the masked settings view. Raw keys never leave the
// server.
func GetSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// UpdateSettings applies a partial settings update. Sending an empty key
// string clears the stored key.
func UpdateSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateSettingsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Update(r.Context(), settings.UpdateInput{
			AnthropicAPIKey:  req.AnthropicAPIKey,
			NanobananaAPIKey: req.NanobananaAPIKey,
			DefaultModel:     req.DefaultModel,
			DefaultNumScenes: req.DefaultNumScenes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// ValidateKeys probes the configured API keys against their services.
func ValidateKeys(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.ValidateKeys(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

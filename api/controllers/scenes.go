package controllers

import (
	"net/http"

	"github.com/reelforge/reelforge-backend/api/responses"
	"github.com/reelforge/reelforge-backend/api/validators"
	"github.com/reelforge/reelforge-backend/internal/scenes"
	"github.com/reelforge/reelforge-backend/pkg/logger"
)

type updateSceneRequest struct {
	Title           *string  `json:"title"`
	Description     *string  `json:"description"`
	VisualPrompt    *string  `json:"visualPrompt"`
	DurationSeconds *float64 `json:"durationSeconds" validate:"omitempty,gt=0"`
}

// UpdateScene patches the editable scene fields. Unknown fields are rejected
// by the decoder; an empty patch is a validation error.
func UpdateScene(svc scenes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sceneID, err := uuidParam(r, "sceneID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateSceneRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scene, err := svc.UpdateScene(r.Context(), projectID, sceneID, scenes.UpdateInput{
			Title:           req.Title,
			Description:     req.Description,
			VisualPrompt:    req.VisualPrompt,
			DurationSeconds: req.DurationSeconds,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, scene)
	}
}

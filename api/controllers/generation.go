package controllers

import (
	"net/http"

	"github.com/reelforge/reelforge-backend/api/responses"
	"github.com/reelforge/reelforge-backend/api/validators"
	"github.com/reelforge/reelforge-backend/internal/images"
	"github.com/reelforge/reelforge-backend/pkg/logger"
)

type generateImagesRequest struct {
	Model             string `json:"model" validate:"omitempty,oneof=flash pro"`
	ReferenceImageURL string `json:"referenceImageUrl" validate:"omitempty,url"`
}

type generateSceneRequest struct {
	Model string `json:"model" validate:"omitempty,oneof=flash pro"`
}

// StartImageBatch accepts a batch generation request and returns 202 once
// the run is queued. A batch already holding the project lock yields 409.
func StartImageBatch(svc images.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req generateImagesRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ack, err := svc.StartBatch(r.Context(), projectID, images.BatchInput{
			Model:             req.Model,
			ReferenceImageURL: req.ReferenceImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, ack)
	}
}

// GenerateSceneImage reruns generation for a single scene synchronously.
func GenerateSceneImage(svc images.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req generateSceneRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scene, err := svc.GenerateScene(r.Context(), projectID, sceneID, req.Model)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, scene)
	}
}

// GenerationStatus returns the pollable progress summary for a project.
func GenerationStatus(svc images.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.Status(r.Context(), projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

package controllers

import (
	"net/http"

	"github.com/reelforge/reelforge-backend/api/responses"
	"github.com/reelforge/reelforge-backend/api/validators"
	"github.com/reelforge/reelforge-backend/internal/scripts"
	"github.com/reelforge/reelforge-backend/pkg/logger"
)

type createProjectRequest struct {
	Captions          string  `json:"captions" validate:"required"`
	NumScenes         *int    `json:"numScenes" validate:"omitempty,min=1,max=30"`
	StyleHints        *string `json:"styleHints"`
	ReferenceImageURL *string `json:"referenceImageUrl" validate:"omitempty,url"`
}

type regenerateScriptRequest struct {
	NumScenes  *int    `json:"numScenes" validate:"omitempty,min=1,max=30"`
	StyleHints *string `json:"styleHints"`
}

// CreateProject creates a project and generates its scene script in one
// synchronous call.
func CreateProject(svc scripts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProjectRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		project, err := svc.CreateProject(r.Context(), scripts.CreateProjectInput{
			Captions:          req.Captions,
			NumScenes:         req.NumScenes,
			StyleHints:        req.StyleHints,
			ReferenceImageURL: req.ReferenceImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, project)
	}
}

// RegenerateScript rebuilds the scene script from the stored captions,
// replacing existing scenes and their images.
func RegenerateScript(svc scripts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req regenerateScriptRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		project, err := svc.Regenerate(r.Context(), projectID, scripts.RegenerateInput{
			NumScenes:  req.NumScenes,
			StyleHints: req.StyleHints,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, project)
	}
}

package controllers

import (
	"net/http"

	"github.com/reelforge/reelforge-backend/api/responses"
	"github.com/reelforge/reelforge-backend/internal/projects"
	"github.com/reelforge/reelforge-backend/pkg/logger"
)

// ListProjects returns all projects newest first with their scenes.
func ListProjects(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListProjects(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func GetProject(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		project, err := svc.GetProject(r.Context(), projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, project)
	}
}

// DeleteProject removes the project, its scenes and its stored images.
func DeleteProject(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProject(r.Context(), projectID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"success": true})
	}
}

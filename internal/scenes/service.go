package scenes

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/reelforge/reelforge-backend/pkg/db"
	"github.com/reelforge/reelforge-backend/pkg/db/models"
	pkgerrors "github.com/reelforge/reelforge-backend/pkg/errors"
)

type scenesRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Scene, error)
	Updates(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// UpdateInput is a partial scene edit. Only the allow-listed fields exist
// here; everything else on the row belongs to the generation pipeline.
type UpdateInput struct {
	Title           *string
	Description     *string
	VisualPrompt    *string
	DurationSeconds *float64
}

// Service exposes scene lookup and manual edits.
type Service interface {
	GetScene(ctx context.Context, projectID, sceneID uuid.UUID) (*models.Scene, error)
	UpdateScene(ctx context.Context, projectID, sceneID uuid.UUID, input UpdateInput) (*models.Scene, error)
}

type service struct {
	repo scenesRepository
}

// NewService builds a scene service backed by the provided repository.
func NewService(repo scenesRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("scene repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetScene(ctx context.Context, projectID, sceneID uuid.UUID) (*models.Scene, error) {
	scene, err := s.repo.FindByID(ctx, sceneID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "scene not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading scene")
	}
	if scene.ProjectID != projectID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "scene not found")
	}
	return scene, nil
}

func (s *service) UpdateScene(ctx context.Context, projectID, sceneID uuid.UUID, input UpdateInput) (*models.Scene, error) {
	if _, err := s.GetScene(ctx, projectID, sceneID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		if strings.TrimSpace(*input.Description) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "description cannot be empty")
		}
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.VisualPrompt != nil {
		if strings.TrimSpace(*input.VisualPrompt) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "visualPrompt cannot be empty")
		}
		updates["visual_prompt"] = strings.TrimSpace(*input.VisualPrompt)
	}
	if input.DurationSeconds != nil {
		if *input.DurationSeconds <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "durationSeconds must be positive")
		}
		updates["duration_seconds"] = *input.DurationSeconds
	}

	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no editable fields provided")
	}

	if err := s.repo.Updates(ctx, sceneID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating scene")
	}

	return s.GetScene(ctx, projectID, sceneID)
}

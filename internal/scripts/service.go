package scripts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reelforge/reelforge-backend/internal/settings"
	"github.com/reelforge/reelforge-backend/pkg/anthropic"
	"github.com/reelforge/reelforge-backend/pkg/db"
	"github.com/reelforge/reelforge-backend/pkg/db/models"
	"github.com/reelforge/reelforge-backend/pkg/enums"
	pkgerrors "github.com/reelforge/reelforge-backend/pkg/errors"
	"github.com/reelforge/reelforge-backend/pkg/logger"
	"github.com/reelforge/reelforge-backend/pkg/metrics"
)

const minCaptionsLength = 50

type projectsRepository interface {
	Create(ctx context.Context, project *models.Project) (*models.Project, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	Updates(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdatesWithTx(tx *gorm.DB, id uuid.UUID, updates map[string]any) error
}

type scenesRepository interface {
	ReplaceForProjectWithTx(tx *gorm.DB, projectID uuid.UUID, scenes []models.Scene) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type artifactStore interface {
	DeleteProject(projectID uuid.UUID) error
}

type keyResolver interface {
	ResolveKeys(ctx context.Context) (settings.Keys, error)
	Get(ctx context.Context) (*settings.View, error)
}

// ScriptGenerator produces a timed scene script from captions.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, req anthropic.ScriptRequest) (*anthropic.Script, error)
}

// GeneratorFactory builds a script generator bound to the given API key.
type GeneratorFactory func(apiKey string) (ScriptGenerator, error)

// CreateProjectInput holds the inputs for a new project.
type CreateProjectInput struct {
	Captions          string
	NumScenes         *int
	StyleHints        *string
	ReferenceImageURL *string
}

// RegenerateInput holds the overrides for a script regeneration.
type RegenerateInput struct {
	NumScenes  *int
	StyleHints *string
}

// Service turns captions into persisted projects with scene scripts.
type Service interface {
	CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error)
	Regenerate(ctx context.Context, projectID uuid.UUID, input RegenerateInput) (*models.Project, error)
}

type service struct {
	projects     projectsRepository
	scenes       scenesRepository
	tx           txRunner
	artifacts    artifactStore
	settings     keyResolver
	newGenerator GeneratorFactory
	metrics      *metrics.GenerationMetrics
	logg         *logger.Logger
}

// NewService builds the script service.
func NewService(projects projectsRepository, scenes scenesRepository, tx txRunner, artifacts artifactStore, settingsSvc keyResolver, newGenerator GeneratorFactory, gm *metrics.GenerationMetrics, logg *logger.Logger) (Service, error) {
	if projects == nil {
		return nil, fmt.Errorf("project repository required")
	}
	if scenes == nil {
		return nil, fmt.Errorf("scene repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if artifacts == nil {
		return nil, fmt.Errorf("artifact store required")
	}
	if settingsSvc == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if newGenerator == nil {
		return nil, fmt.Errorf("generator factory required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		projects:     projects,
		scenes:       scenes,
		tx:           tx,
		artifacts:    artifacts,
		settings:     settingsSvc,
		newGenerator: newGenerator,
		metrics:      gm,
		logg:         logg,
	}, nil
}

func (s *service) CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	captions := strings.TrimSpace(input.Captions)
	if len(captions) < minCaptionsLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("captions must be at least %d characters", minCaptionsLength))
	}

	generator, numScenes, err := s.prepare(ctx, input.NumScenes)
	if err != nil {
		return nil, err
	}

	project := &models.Project{
		ID:                uuid.New(),
		Title:             "Untitled Reel",
		Theme:             "",
		Captions:          captions,
		StyleHints:        trimmedPtr(input.StyleHints),
		ReferenceImageURL: trimmedPtr(input.ReferenceImageURL),
		Status:            enums.GenerationStatusGeneratingScript,
	}
	if _, err := s.projects.Create(ctx, project); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating project")
	}

	ctx = s.logg.WithProjectID(ctx, project.ID.String())
	return s.generateAndPersist(ctx, project, generator, numScenes, derefOr(project.StyleHints, ""))
}

func (s *service) Regenerate(ctx context.Context, projectID uuid.UUID, input RegenerateInput) (*models.Project, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading project")
	}

	generator, numScenes, err := s.prepare(ctx, input.NumScenes)
	if err != nil {
		return nil, err
	}

	styleHints := derefOr(project.StyleHints, "")
	if input.StyleHints != nil {
		styleHints = strings.TrimSpace(*input.StyleHints)
	}

	ctx = s.logg.WithProjectID(ctx, project.ID.String())

	updates := map[string]any{"status": enums.GenerationStatusGeneratingScript.String()}
	if input.StyleHints != nil {
		updates["style_hints"] = nullableString(styleHints)
	}
	if err := s.projects.Updates(ctx, project.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking project generating")
	}

	fresh, err := s.generateAndPersist(ctx, project, generator, numScenes, styleHints)
	if err != nil {
		// old scenes survive a failed regeneration, so their images must too
		return nil, err
	}

	// the new script has landed, images from the old one are now orphaned
	if err := s.artifacts.DeleteProject(project.ID); err != nil {
		s.logg.Warn(ctx, "failed to sweep orphaned project images after regeneration")
	}

	return fresh, nil
}

// prepare resolves the text-generation key and the scene count defaults.
func (s *service) prepare(ctx context.Context, numScenes *int) (ScriptGenerator, int, error) {
	keys, err := s.settings.ResolveKeys(ctx)
	if err != nil {
		return nil, 0, err
	}
	if keys.Anthropic == "" {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "anthropic API key is not configured")
	}

	count := 0
	if numScenes != nil {
		count = *numScenes
	}
	if count <= 0 {
		view, err := s.settings.Get(ctx)
		if err != nil {
			return nil, 0, err
		}
		count = view.DefaultNumScenes
	}

	generator, err := s.newGenerator(keys.Anthropic)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "building script generator")
	}
	return generator, count, nil
}

// generateAndPersist runs the model call and lands the script atomically:
// project fields, script_ready status and the fresh scene set commit together.
func (s *service) generateAndPersist(ctx context.Context, project *models.Project, generator ScriptGenerator, numScenes int, styleHints string) (*models.Project, error) {
	script, err := generator.GenerateScript(ctx, anthropic.ScriptRequest{
		Captions:   project.Captions,
		StyleHints: styleHints,
		NumScenes:  numScenes,
	})
	if err != nil {
		s.metrics.IncScriptOutcome("error")
		if statusErr := s.projects.UpdateStatus(ctx, project.ID, enums.GenerationStatusError.String()); statusErr != nil {
			s.logg.Error(ctx, "failed to record script failure on project", statusErr)
		}
		return nil, err
	}

	rows := make([]models.Scene, 0, len(script.Scenes))
	for i, scene := range script.Scenes {
		rows = append(rows, models.Scene{
			ID:              uuid.New(),
			ProjectID:       project.ID,
			Number:          i + 1,
			Title:           scene.Title,
			Description:     scene.Description,
			VisualPrompt:    scene.VisualPrompt,
			DurationSeconds: scene.DurationSeconds,
			ImageStatus:     enums.SceneImagePending,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.projects.UpdatesWithTx(tx, project.ID, map[string]any{
			"title":          script.Title,
			"theme":          script.Theme,
			"total_duration": script.TotalDuration,
			"status":         enums.GenerationStatusScriptReady.String(),
		}); err != nil {
			return err
		}
		return s.scenes.ReplaceForProjectWithTx(tx, project.ID, rows)
	})
	if err != nil {
		s.metrics.IncScriptOutcome("error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting script")
	}

	s.metrics.IncScriptOutcome("completed")
	s.logg.Info(ctx, fmt.Sprintf("script generated with %d scenes", len(rows)))

	fresh, err := s.projects.FindByID(ctx, project.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading project")
	}
	return fresh, nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

package images

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reelforge/reelforge-backend/internal/settings"
	"github.com/reelforge/reelforge-backend/pkg/config"
	"github.com/reelforge/reelforge-backend/pkg/db"
	"github.com/reelforge/reelforge-backend/pkg/db/models"
	"github.com/reelforge/reelforge-backend/pkg/enums"
	pkgerrors "github.com/reelforge/reelforge-backend/pkg/errors"
	"github.com/reelforge/reelforge-backend/pkg/logger"
	"github.com/reelforge/reelforge-backend/pkg/metrics"
	"github.com/reelforge/reelforge-backend/pkg/nanobanana"
)

type projectsRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type scenesRepository interface {
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Scene, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Scene, error)
	MarkGenerating(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID, imageURL string) error
	MarkError(ctx context.Context, id uuid.UUID, message string) error
	CountByStatus(ctx context.Context, projectID uuid.UUID, status enums.SceneImageStatus) (int64, error)
}

type artifactStore interface {
	SaveFromURL(ctx context.Context, projectID uuid.UUID, srcURL string) (string, error)
}

type settingsService interface {
	ResolveKeys(ctx context.Context) (settings.Keys, error)
	Get(ctx context.Context) (*settings.View, error)
}

// ImageClient is the upstream generation API surface the orchestrator needs.
type ImageClient interface {
	SubmitGeneration(ctx context.Context, req nanobanana.GenerationRequest) (string, error)
	GetTaskStatus(ctx context.Context, taskID string) (*nanobanana.TaskStatus, error)
}

// ImageClientFactory builds an image client bound to the given API key.
type ImageClientFactory func(apiKey string) (ImageClient, error)

// BatchEnqueuer hands a batch run to the background worker. The lock owner
// token travels with the task so the worker can adopt the held lock.
type BatchEnqueuer interface {
	EnqueueGenerateBatch(ctx context.Context, projectID uuid.UUID, model string, referenceImageURL string, lockOwner string) error
}

// BatchInput holds the per-run options of a generation batch. LockOwner is
// set on queued runs whose lock was acquired at enqueue time.
type BatchInput struct {
	Model             string
	ReferenceImageURL string
	LockOwner         string
}

// BatchStart is the acknowledgement returned when a batch is accepted.
type BatchStart struct {
	Status      string `json:"status"`
	TotalScenes int    `json:"totalScenes"`
}

// StatusView is the pollable progress summary of a project.
type StatusView struct {
	Status          enums.GenerationStatus `json:"status"`
	CompletedScenes int                    `json:"completedScenes"`
	TotalScenes     int                    `json:"totalScenes"`
}

// Service orchestrates scene image generation.
type Service interface {
	StartBatch(ctx context.Context, projectID uuid.UUID, input BatchInput) (*BatchStart, error)
	RunBatch(ctx context.Context, projectID uuid.UUID, input BatchInput) error
	GenerateScene(ctx context.Context, projectID, sceneID uuid.UUID, model string) (*models.Scene, error)
	Status(ctx context.Context, projectID uuid.UUID) (*StatusView, error)
}

type service struct {
	projects  projectsRepository
	scenes    scenesRepository
	artifacts artifactStore
	settings  settingsService
	newClient ImageClientFactory
	enqueuer  BatchEnqueuer
	locker    ProjectLocker
	cfg       config.GenerationConfig
	metrics   *metrics.GenerationMetrics
	logg      *logger.Logger
}

// NewService builds the image generation orchestrator.
func NewService(projects projectsRepository, scenes scenesRepository, artifacts artifactStore, settingsSvc settingsService, newClient ImageClientFactory, enqueuer BatchEnqueuer, locker ProjectLocker, cfg config.GenerationConfig, gm *metrics.GenerationMetrics, logg *logger.Logger) (Service, error) {
	if projects == nil {
		return nil, fmt.Errorf("project repository required")
	}
	if scenes == nil {
		return nil, fmt.Errorf("scene repository required")
	}
	if artifacts == nil {
		return nil, fmt.Errorf("artifact store required")
	}
	if settingsSvc == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if newClient == nil {
		return nil, fmt.Errorf("image client factory required")
	}
	if enqueuer == nil {
		return nil, fmt.Errorf("batch enqueuer required")
	}
	if locker == nil {
		return nil, fmt.Errorf("project locker required")
	}
	if cfg.PollInterval <= 0 || cfg.PollTimeout <= 0 {
		return nil, fmt.Errorf("poll interval and timeout must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		projects:  projects,
		scenes:    scenes,
		artifacts: artifacts,
		settings:  settingsSvc,
		newClient: newClient,
		enqueuer:  enqueuer,
		locker:    locker,
		cfg:       cfg,
		metrics:   gm,
		logg:      logg,
	}, nil
}

// StartBatch validates the request, marks the project as generating and hands
// the run to the worker. The lock is taken here and held through the queue:
// the worker adopts it by owner token, so two concurrent starts cannot both
// enqueue.
func (s *service) StartBatch(ctx context.Context, projectID uuid.UUID, input BatchInput) (*BatchStart, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	rows, err := s.scenes.ListByProject(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing scenes")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "project has no scenes to generate")
	}

	model, err := s.resolveModel(ctx, input.Model)
	if err != nil {
		return nil, err
	}
	if _, err := s.resolveImageKey(ctx); err != nil {
		return nil, err
	}

	lock, acquired, err := s.locker.Acquire(ctx, projectID.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "acquiring generation lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "image generation already running for this project")
	}

	referenceImageURL := input.ReferenceImageURL
	if referenceImageURL == "" && project.ReferenceImageURL != nil {
		referenceImageURL = *project.ReferenceImageURL
	}

	if err := s.projects.UpdateStatus(ctx, projectID, enums.GenerationStatusGeneratingImages.String()); err != nil {
		s.releaseLock(ctx, lock)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking project generating")
	}

	if err := s.enqueuer.EnqueueGenerateBatch(ctx, projectID, model.String(), referenceImageURL, lock.Owner()); err != nil {
		s.releaseLock(ctx, lock)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "enqueueing generation batch")
	}

	// the lock stays held: the worker adopts and releases it
	return &BatchStart{Status: "started", TotalScenes: len(rows)}, nil
}

// RunBatch drives every scene of the project through the generation machine,
// strictly one at a time. A scene failure is recorded and the batch moves on;
// the aggregate status is recomputed once from fresh reads at the end.
func (s *service) RunBatch(ctx context.Context, projectID uuid.UUID, input BatchInput) error {
	ctx = s.logg.WithProjectID(ctx, projectID.String())

	lock, acquired, err := s.takeRunLock(ctx, projectID, input.LockOwner)
	if err != nil {
		return fmt.Errorf("acquiring generation lock: %w", err)
	}
	if !acquired {
		s.logg.Warn(ctx, "generation batch skipped: lock held by another run")
		return nil
	}
	defer s.releaseLock(ctx, lock)

	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return err
	}

	client, err := s.buildClient(ctx)
	if err != nil {
		// nothing can run without a usable client; the failure must be visible
		if statusErr := s.projects.UpdateStatus(ctx, projectID, enums.GenerationStatusError.String()); statusErr != nil {
			s.logg.Error(ctx, "failed to record batch failure on project", statusErr)
		}
		return err
	}

	model, err := s.resolveModel(ctx, input.Model)
	if err != nil {
		return err
	}

	referenceImageURL := input.ReferenceImageURL
	if referenceImageURL == "" && project.ReferenceImageURL != nil {
		referenceImageURL = *project.ReferenceImageURL
	}

	rows, err := s.scenes.ListByProject(ctx, projectID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing scenes")
	}

	batchStart := time.Now()
	for i := range rows {
		// one scene at a time, failures stay inside generateScene
		s.generateScene(ctx, client, project, &rows[i], model, referenceImageURL)
	}
	s.metrics.ObserveBatchDuration(model.String(), time.Since(batchStart))

	return s.finalizeBatch(ctx, projectID, len(rows))
}

// takeRunLock adopts the lock handed off at enqueue time, or acquires a
// fresh one for direct runs without an owner token.
func (s *service) takeRunLock(ctx context.Context, projectID uuid.UUID, owner string) (ProjectLock, bool, error) {
	if owner != "" {
		return s.locker.Adopt(ctx, projectID.String(), owner)
	}
	return s.locker.Acquire(ctx, projectID.String())
}

func (s *service) releaseLock(ctx context.Context, lock ProjectLock) {
	if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
		s.logg.Warn(ctx, "failed to release generation lock")
	}
}

// finalizeBatch recomputes the aggregate from fresh scene reads: any failed
// scene makes the whole project error, not completed.
func (s *service) finalizeBatch(ctx context.Context, projectID uuid.UUID, total int) error {
	failed, err := s.scenes.CountByStatus(ctx, projectID, enums.SceneImageError)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting failed scenes")
	}

	status := enums.GenerationStatusCompleted
	if failed > 0 {
		status = enums.GenerationStatusError
	}
	if err := s.projects.UpdateStatus(ctx, projectID, status.String()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording batch outcome")
	}

	s.logg.Info(ctx, fmt.Sprintf("generation batch finished: %d/%d scenes failed", failed, total))
	return nil
}

// GenerateScene reruns the machine for one scene. The project aggregate is
// left untouched; callers poll generation-status for the full picture.
func (s *service) GenerateScene(ctx context.Context, projectID, sceneID uuid.UUID, model string) (*models.Scene, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	scene, err := s.scenes.FindByID(ctx, sceneID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "scene not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading scene")
	}
	if scene.ProjectID != projectID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "scene not found")
	}

	resolvedModel, err := s.resolveModel(ctx, model)
	if err != nil {
		return nil, err
	}

	client, err := s.buildClient(ctx)
	if err != nil {
		return nil, err
	}

	lock, acquired, err := s.locker.Acquire(ctx, projectID.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "acquiring generation lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "image generation already running for this project")
	}
	defer s.releaseLock(ctx, lock)

	referenceImageURL := ""
	if project.ReferenceImageURL != nil {
		referenceImageURL = *project.ReferenceImageURL
	}

	ctx = s.logg.WithProjectID(ctx, projectID.String())
	s.generateScene(ctx, client, project, scene, resolvedModel, referenceImageURL)

	fresh, err := s.scenes.FindByID(ctx, sceneID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading scene")
	}
	if fresh.ImageStatus == enums.SceneImageError {
		message := "image generation failed"
		if fresh.ErrorMessage != nil {
			message = *fresh.ErrorMessage
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, message)
	}
	return fresh, nil
}

func (s *service) Status(ctx context.Context, projectID uuid.UUID) (*StatusView, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	total, err := s.scenes.ListByProject(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing scenes")
	}
	completed, err := s.scenes.CountByStatus(ctx, projectID, enums.SceneImageCompleted)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting completed scenes")
	}

	return &StatusView{
		Status:          project.Status,
		CompletedScenes: int(completed),
		TotalScenes:     len(total),
	}, nil
}

// generateScene runs one scene through the state machine. Every outcome is
// persisted on the row; no error leaves this function.
func (s *service) generateScene(ctx context.Context, client ImageClient, project *models.Project, scene *models.Scene, model enums.ImageModel, referenceImageURL string) {
	ctx = s.logg.WithSceneID(ctx, scene.ID.String())
	start := time.Now()

	if err := s.scenes.MarkGenerating(ctx, scene.ID); err != nil {
		s.logg.Error(ctx, "failed to mark scene generating", err)
		s.recordSceneError(ctx, scene.ID, model, start, "persisting scene state failed")
		return
	}

	var refs []string
	if referenceImageURL != "" {
		refs = []string{referenceImageURL}
	}

	taskID, err := client.SubmitGeneration(ctx, nanobanana.GenerationRequest{
		Prompt:             scenePrompt(project, scene),
		Model:              model.String(),
		ReferenceImageURLs: refs,
	})
	if err != nil {
		s.recordSceneError(ctx, scene.ID, model, start, fmt.Sprintf("submitting generation: %v", err))
		return
	}

	deadline := time.Now().Add(s.cfg.PollTimeout)
	for {
		if time.Now().After(deadline) {
			s.metrics.IncSceneOutcome("timeout")
			s.metrics.ObserveSceneDuration(model.String(), time.Since(start))
			s.persistSceneError(ctx, scene.ID, fmt.Sprintf("image generation timed out after %s", s.cfg.PollTimeout))
			return
		}

		select {
		case <-ctx.Done():
			s.recordSceneError(ctx, scene.ID, model, start, fmt.Sprintf("image generation aborted: %v", ctx.Err()))
			return
		case <-time.After(s.cfg.PollInterval):
		}

		status, err := client.GetTaskStatus(ctx, taskID)
		if err != nil {
			s.recordSceneError(ctx, scene.ID, model, start, fmt.Sprintf("polling generation task: %v", err))
			return
		}
		if !status.Terminal() {
			continue
		}

		if status.Status == nanobanana.TaskStatusFailed {
			message := status.Error
			if message == "" {
				message = "image generation failed upstream"
			}
			s.recordSceneError(ctx, scene.ID, model, start, message)
			return
		}

		imageURL, err := s.artifacts.SaveFromURL(ctx, project.ID, status.ImageURL)
		if err != nil {
			s.recordSceneError(ctx, scene.ID, model, start, fmt.Sprintf("storing generated image: %v", err))
			return
		}

		if err := s.scenes.MarkCompleted(ctx, scene.ID, imageURL); err != nil {
			s.logg.Error(ctx, "failed to mark scene completed", err)
			s.recordSceneError(ctx, scene.ID, model, start, "persisting scene completion failed")
			return
		}

		s.metrics.IncSceneOutcome("completed")
		s.metrics.ObserveSceneDuration(model.String(), time.Since(start))
		return
	}
}

func (s *service) recordSceneError(ctx context.Context, sceneID uuid.UUID, model enums.ImageModel, start time.Time, message string) {
	s.metrics.IncSceneOutcome("error")
	s.metrics.ObserveSceneDuration(model.String(), time.Since(start))
	s.persistSceneError(ctx, sceneID, message)
}

func (s *service) persistSceneError(ctx context.Context, sceneID uuid.UUID, message string) {
	s.logg.Warn(ctx, fmt.Sprintf("scene generation failed: %s", message))
	if err := s.scenes.MarkError(context.WithoutCancel(ctx), sceneID, message); err != nil {
		s.logg.Error(ctx, "failed to record scene error", err)
	}
}

func (s *service) findProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading project")
	}
	return project, nil
}

func (s *service) resolveModel(ctx context.Context, model string) (enums.ImageModel, error) {
	if model == "" {
		view, err := s.settings.Get(ctx)
		if err != nil {
			return "", err
		}
		return view.DefaultModel, nil
	}
	parsed, err := enums.ParseImageModel(model)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	return parsed, nil
}

func (s *service) resolveImageKey(ctx context.Context) (string, error) {
	keys, err := s.settings.ResolveKeys(ctx)
	if err != nil {
		return "", err
	}
	if keys.Nanobanana == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "nanobanana API key is not configured")
	}
	return keys.Nanobanana, nil
}

func (s *service) buildClient(ctx context.Context) (ImageClient, error) {
	key, err := s.resolveImageKey(ctx)
	if err != nil {
		return nil, err
	}
	client, err := s.newClient(key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "building image client")
	}
	return client, nil
}

// scenePrompt anchors every scene to the project theme so the reel reads as
// one visual sequence.
func scenePrompt(project *models.Project, scene *models.Scene) string {
	prompt := scene.VisualPrompt
	if project.Theme != "" {
		prompt = fmt.Sprintf("%s. Overall visual theme: %s", prompt, project.Theme)
	}
	if project.StyleHints != nil && *project.StyleHints != "" {
		prompt = fmt.Sprintf("%s. Style: %s", prompt, *project.StyleHints)
	}
	return prompt
}

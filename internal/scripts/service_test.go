package scripts

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reelforge/reelforge-backend/internal/settings"
	"github.com/reelforge/reelforge-backend/pkg/anthropic"
	"github.com/reelforge/reelforge-backend/pkg/db/models"
	"github.com/reelforge/reelforge-backend/pkg/enums"
	pkgerrors "github.com/reelforge/reelforge-backend/pkg/errors"
	"github.com/reelforge/reelforge-backend/pkg/logger"
)

const validCaptions = "wake up early, make a strong coffee, stretch for ten minutes, then head outside for a walk"

type stubProjects struct {
	rows      map[uuid.UUID]*models.Project
	updates   []map[string]any
	txUpdates []map[string]any
	statusLog []string
	createErr error
}

func newStubProjects(rows ...*models.Project) *stubProjects {
	s := &stubProjects{rows: map[uuid.UUID]*models.Project{}}
	for _, p := range rows {
		s.rows[p.ID] = p
	}
	return s
}

func (s *stubProjects) Create(ctx context.Context, project *models.Project) (*models.Project, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.rows[project.ID] = project
	return project, nil
}

func (s *stubProjects) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *stubProjects) apply(id uuid.UUID, updates map[string]any) {
	p := s.rows[id]
	if p == nil {
		return
	}
	if v, ok := updates["title"]; ok {
		p.Title = v.(string)
	}
	if v, ok := updates["theme"]; ok {
		p.Theme = v.(string)
	}
	if v, ok := updates["total_duration"]; ok {
		p.TotalDuration = v.(float64)
	}
	if v, ok := updates["status"]; ok {
		p.Status = enums.GenerationStatus(v.(string))
	}
}

func (s *stubProjects) Updates(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates = append(s.updates, updates)
	s.apply(id, updates)
	return nil
}

func (s *stubProjects) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	s.statusLog = append(s.statusLog, status)
	s.apply(id, map[string]any{"status": status})
	return nil
}

func (s *stubProjects) UpdatesWithTx(tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	s.txUpdates = append(s.txUpdates, updates)
	s.apply(id, updates)
	return nil
}

type stubScenes struct {
	replaced map[uuid.UUID][]models.Scene
}

func newStubScenes() *stubScenes {
	return &stubScenes{replaced: map[uuid.UUID][]models.Scene{}}
}

func (s *stubScenes) ReplaceForProjectWithTx(tx *gorm.DB, projectID uuid.UUID, scenes []models.Scene) error {
	s.replaced[projectID] = scenes
	return nil
}

type stubTx struct {
	calls int
	err   error
}

func (s *stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	return fn(nil)
}

type stubArtifacts struct {
	swept []uuid.UUID
}

func (s *stubArtifacts) DeleteProject(projectID uuid.UUID) error {
	s.swept = append(s.swept, projectID)
	return nil
}

type stubSettings struct {
	keys     settings.Keys
	defaults settings.View
}

func (s *stubSettings) ResolveKeys(ctx context.Context) (settings.Keys, error) {
	return s.keys, nil
}

func (s *stubSettings) Get(ctx context.Context) (*settings.View, error) {
	view := s.defaults
	return &view, nil
}

type stubGenerator struct {
	script  *anthropic.Script
	err     error
	gotReqs []anthropic.ScriptRequest
}

func (s *stubGenerator) GenerateScript(ctx context.Context, req anthropic.ScriptRequest) (*anthropic.Script, error) {
	s.gotReqs = append(s.gotReqs, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.script, nil
}

func twoSceneScript() *anthropic.Script {
	return &anthropic.Script{
		Title:         "Morning Routine",
		Theme:         "warm sunrise tones",
		TotalDuration: 6,
		Scenes: []anthropic.Scene{
			{Number: 1, Title: "Wake up", Description: "alarm rings", VisualPrompt: "bedroom at dawn", DurationSeconds: 2.5},
			{Number: 2, Title: "Coffee", Description: "pouring coffee", VisualPrompt: "steaming mug", DurationSeconds: 3.5},
		},
	}
}

type fixture struct {
	svc       Service
	projects  *stubProjects
	scenes    *stubScenes
	tx        *stubTx
	artifacts *stubArtifacts
	generator *stubGenerator
}

func newFixture(t *testing.T, generator *stubGenerator, anthropicKey string, rows ...*models.Project) *fixture {
	t.Helper()

	f := &fixture{
		projects:  newStubProjects(rows...),
		scenes:    newStubScenes(),
		tx:        &stubTx{},
		artifacts: &stubArtifacts{},
		generator: generator,
	}

	settingsSvc := &stubSettings{
		keys:     settings.Keys{Anthropic: anthropicKey},
		defaults: settings.View{DefaultModel: enums.ImageModelFlash, DefaultNumScenes: 12},
	}
	factory := func(apiKey string) (ScriptGenerator, error) { return generator, nil }

	svc, err := NewService(f.projects, f.scenes, f.tx, f.artifacts, settingsSvc, factory, nil, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func TestCreateProjectRejectsShortCaptions(t *testing.T) {
	f := newFixture(t, &stubGenerator{script: twoSceneScript()}, "sk-ant")

	_, err := f.svc.CreateProject(context.Background(), CreateProjectInput{Captions: "too short"})
	requireCode(t, err, pkgerrors.CodeValidation)
	if len(f.generator.gotReqs) != 0 {
		t.Fatalf("generator must not be called on invalid input")
	}
}

func TestCreateProjectRequiresKey(t *testing.T) {
	f := newFixture(t, &stubGenerator{script: twoSceneScript()}, "")

	_, err := f.svc.CreateProject(context.Background(), CreateProjectInput{Captions: validCaptions})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateProjectSuccess(t *testing.T) {
	f := newFixture(t, &stubGenerator{script: twoSceneScript()}, "sk-ant")

	project, err := f.svc.CreateProject(context.Background(), CreateProjectInput{
		Captions:   validCaptions,
		NumScenes:  intPtr(2),
		StyleHints: strPtr("cinematic"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if project.Title != "Morning Routine" || project.Theme != "warm sunrise tones" {
		t.Fatalf("script fields not persisted: %+v", project)
	}
	if project.Status != enums.GenerationStatusScriptReady {
		t.Fatalf("expected script_ready, got %s", project.Status)
	}
	if project.TotalDuration != 6 {
		t.Fatalf("expected total duration 6, got %f", project.TotalDuration)
	}

	if f.tx.calls != 1 {
		t.Fatalf("script landing must run in one transaction, got %d", f.tx.calls)
	}

	rows := f.scenes.replaced[project.ID]
	if len(rows) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(rows))
	}
	for i, row := range rows {
		if row.Number != i+1 {
			t.Fatalf("scenes must be numbered contiguously, got %d at %d", row.Number, i)
		}
		if row.ImageStatus != enums.SceneImagePending {
			t.Fatalf("fresh scenes must be pending, got %s", row.ImageStatus)
		}
	}

	if got := f.generator.gotReqs[0]; got.StyleHints != "cinematic" || got.NumScenes != 2 {
		t.Fatalf("unexpected generator request: %+v", got)
	}
}

func TestCreateProjectUsesDefaultSceneCount(t *testing.T) {
	f := newFixture(t, &stubGenerator{script: twoSceneScript()}, "sk-ant")

	_, err := f.svc.CreateProject(context.Background(), CreateProjectInput{Captions: validCaptions})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.generator.gotReqs[0].NumScenes; got != 12 {
		t.Fatalf("expected settings default 12, got %d", got)
	}
}

func TestCreateProjectGeneratorFailureMarksError(t *testing.T) {
	f := newFixture(t, &stubGenerator{err: pkgerrors.New(pkgerrors.CodeDependency, "model down")}, "sk-ant")

	_, err := f.svc.CreateProject(context.Background(), CreateProjectInput{Captions: validCaptions})
	requireCode(t, err, pkgerrors.CodeDependency)

	if len(f.projects.statusLog) == 0 || f.projects.statusLog[len(f.projects.statusLog)-1] != enums.GenerationStatusError.String() {
		t.Fatalf("project must be marked error, log: %v", f.projects.statusLog)
	}
}

func TestRegenerateNotFound(t *testing.T) {
	f := newFixture(t, &stubGenerator{script: twoSceneScript()}, "sk-ant")

	_, err := f.svc.Regenerate(context.Background(), uuid.New(), RegenerateInput{})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestRegenerateSweepsArtifactsAndReplacesScenes(t *testing.T) {
	existing := &models.Project{
		ID:       uuid.New(),
		Title:    "Old Title",
		Theme:    "old theme",
		Captions: validCaptions,
		Status:   enums.GenerationStatusCompleted,
	}
	f := newFixture(t, &stubGenerator{script: twoSceneScript()}, "sk-ant", existing)

	project, err := f.svc.Regenerate(context.Background(), existing.ID, RegenerateInput{
		NumScenes:  intPtr(2),
		StyleHints: strPtr("noir"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.artifacts.swept) != 1 || f.artifacts.swept[0] != existing.ID {
		t.Fatalf("old images must be swept, got %v", f.artifacts.swept)
	}
	if project.Title != "Morning Routine" {
		t.Fatalf("script fields not replaced: %+v", project)
	}
	if len(f.scenes.replaced[existing.ID]) != 2 {
		t.Fatalf("scenes not replaced")
	}
	if got := f.generator.gotReqs[0].StyleHints; got != "noir" {
		t.Fatalf("style hint override not passed, got %q", got)
	}
}

func TestRegenerateFailureKeepsOldImages(t *testing.T) {
	existing := &models.Project{
		ID:       uuid.New(),
		Title:    "Old Title",
		Theme:    "old theme",
		Captions: validCaptions,
		Status:   enums.GenerationStatusCompleted,
	}
	f := newFixture(t, &stubGenerator{err: pkgerrors.New(pkgerrors.CodeDependency, "model down")}, "sk-ant", existing)

	_, err := f.svc.Regenerate(context.Background(), existing.ID, RegenerateInput{NumScenes: intPtr(2)})
	requireCode(t, err, pkgerrors.CodeDependency)

	if len(f.artifacts.swept) != 0 {
		t.Fatalf("old images must survive a failed regeneration, swept: %v", f.artifacts.swept)
	}
	if len(f.projects.statusLog) == 0 || f.projects.statusLog[len(f.projects.statusLog)-1] != enums.GenerationStatusError.String() {
		t.Fatalf("project must be marked error, log: %v", f.projects.statusLog)
	}
}

func TestRegenerateUsesStoredStyleHints(t *testing.T) {
	hints := "vaporwave"
	existing := &models.Project{
		ID:         uuid.New(),
		Title:      "Old",
		Theme:      "old",
		Captions:   validCaptions,
		StyleHints: &hints,
		Status:     enums.GenerationStatusScriptReady,
	}
	f := newFixture(t, &stubGenerator{script: twoSceneScript()}, "sk-ant", existing)

	_, err := f.svc.Regenerate(context.Background(), existing.ID, RegenerateInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.generator.gotReqs[0].StyleHints; got != "vaporwave" {
		t.Fatalf("stored style hints expected, got %q", got)
	}
}

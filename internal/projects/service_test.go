package projects

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reelforge/reelforge-backend/pkg/db/models"
	pkgerrors "github.com/reelforge/reelforge-backend/pkg/errors"
	"github.com/reelforge/reelforge-backend/pkg/logger"
)

type stubProjectsRepo struct {
	projects  map[uuid.UUID]*models.Project
	deleted   []uuid.UUID
	deleteErr error
}

func newStubProjectsRepo(projects ...*models.Project) *stubProjectsRepo {
	repo := &stubProjectsRepo{projects: map[uuid.UUID]*models.Project{}}
	for _, p := range projects {
		repo.projects[p.ID] = p
	}
	return repo
}

func (s *stubProjectsRepo) List(ctx context.Context) ([]models.Project, error) {
	rows := make([]models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		rows = append(rows, *p)
	}
	return rows, nil
}

func (s *stubProjectsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (s *stubProjectsRepo) DeleteWithTx(tx *gorm.DB, id uuid.UUID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.projects, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubArtifacts struct {
	deleted []uuid.UUID
	err     error
}

func (s *stubArtifacts) DeleteProject(projectID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, projectID)
	return nil
}

func newTestService(t *testing.T, repo *stubProjectsRepo, artifacts *stubArtifacts) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, artifacts, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestGetProjectNotFound(t *testing.T) {
	svc := newTestService(t, newStubProjectsRepo(), &stubArtifacts{})

	_, err := svc.GetProject(context.Background(), uuid.New())
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestDeleteProjectRemovesRowAndArtifacts(t *testing.T) {
	project := &models.Project{ID: uuid.New(), Title: "t", Theme: "th", Captions: "c"}
	repo := newStubProjectsRepo(project)
	artifacts := &stubArtifacts{}
	svc := newTestService(t, repo, artifacts)

	if err := svc.DeleteProject(context.Background(), project.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != project.ID {
		t.Fatalf("expected row delete, got %v", repo.deleted)
	}
	if len(artifacts.deleted) != 1 || artifacts.deleted[0] != project.ID {
		t.Fatalf("expected artifact sweep, got %v", artifacts.deleted)
	}
}

func TestDeleteProjectMissing(t *testing.T) {
	svc := newTestService(t, newStubProjectsRepo(), &stubArtifacts{})

	err := svc.DeleteProject(context.Background(), uuid.New())
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestDeleteProjectArtifactSweepFailureIsNonFatal(t *testing.T) {
	project := &models.Project{ID: uuid.New(), Title: "t", Theme: "th", Captions: "c"}
	repo := newStubProjectsRepo(project)
	svc := newTestService(t, repo, &stubArtifacts{err: errors.New("disk broke")})

	if err := svc.DeleteProject(context.Background(), project.ID); err != nil {
		t.Fatalf("sweep failure must not surface: %v", err)
	}
	if len(repo.deleted) != 1 {
		t.Fatalf("row should still be deleted")
	}
}

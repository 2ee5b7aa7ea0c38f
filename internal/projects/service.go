package projects

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reelforge/reelforge-backend/pkg/db"
	"github.com/reelforge/reelforge-backend/pkg/db/models"
	pkgerrors "github.com/reelforge/reelforge-backend/pkg/errors"
	"github.com/reelforge/reelforge-backend/pkg/logger"
)

type projectsRepository interface {
	List(ctx context.Context) ([]models.Project, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	DeleteWithTx(tx *gorm.DB, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type artifactStore interface {
	DeleteProject(projectID uuid.UUID) error
}

// Service exposes project listing, lookup and deletion.
type Service interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	DeleteProject(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo      projectsRepository
	tx        txRunner
	artifacts artifactStore
	logg      *logger.Logger
}

// NewService builds a project service backed by the provided repository.
func NewService(repo projectsRepository, tx txRunner, artifacts artifactStore, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("project repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if artifacts == nil {
		return nil, fmt.Errorf("artifact store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, artifacts: artifacts, logg: logg}, nil
}

func (s *service) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing projects")
	}
	return rows, nil
}

func (s *service) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading project")
	}
	return project, nil
}

// DeleteProject removes the row (scenes cascade) and then sweeps the
// project's stored images. The sweep is best-effort once the row is gone.
func (s *service) DeleteProject(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.DeleteWithTx(tx, id)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting project")
	}

	if err := s.artifacts.DeleteProject(id); err != nil {
		s.logg.Warn(s.logg.WithProjectID(ctx, id.String()), "failed to sweep project images after delete")
	}
	return nil
}

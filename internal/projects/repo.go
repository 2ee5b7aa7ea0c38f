package projects

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reelforge/reelforge-backend/pkg/db/models"
)

// Repository exposes project persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a project repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func scenesOrdered(db *gorm.DB) *gorm.DB {
	return db.Order("scenes.number ASC")
}

// Create inserts a new project row.
func (r *Repository) Create(ctx context.Context, project *models.Project) (*models.Project, error) {
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// CreateWithTx inserts a new project row inside an existing transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, project *models.Project) (*models.Project, error) {
	if err := tx.Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// List returns all projects, newest first, with their scenes in order.
func (r *Repository) List(ctx context.Context) ([]models.Project, error) {
	var rows []models.Project
	err := r.db.WithContext(ctx).
		Preload("Scenes", scenesOrdered).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID returns one project with its scenes in order.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Preload("Scenes", scenesOrdered).
		First(&project, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// Updates applies the given column updates to a project.
func (r *Repository) Updates(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdatesWithTx applies column updates inside an existing transaction.
func (r *Repository) UpdatesWithTx(tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	return tx.Model(&models.Project{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateStatus moves a project to the given generation status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.Updates(ctx, id, map[string]any{"status": status})
}

// DeleteWithTx removes the project row inside an existing transaction.
// Scene rows follow via the FK cascade.
func (r *Repository) DeleteWithTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&models.Project{}, "id = ?", id).Error
}

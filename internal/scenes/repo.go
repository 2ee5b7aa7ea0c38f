package scenes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reelforge/reelforge-backend/pkg/db/models"
	"github.com/reelforge/reelforge-backend/pkg/enums"
)

// Repository exposes scene persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a scene repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListByProject returns the project's scenes ordered by number.
func (r *Repository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Scene, error) {
	var rows []models.Scene
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID returns one scene.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Scene, error) {
	var scene models.Scene
	if err := r.db.WithContext(ctx).First(&scene, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &scene, nil
}

// ReplaceForProjectWithTx swaps the project's scene set inside an existing
// transaction: old rows go away, the new script's rows come in.
func (r *Repository) ReplaceForProjectWithTx(tx *gorm.DB, projectID uuid.UUID, scenes []models.Scene) error {
	if err := tx.Delete(&models.Scene{}, "project_id = ?", projectID).Error; err != nil {
		return err
	}
	if len(scenes) == 0 {
		return nil
	}
	return tx.Create(&scenes).Error
}

// Updates applies the given column updates to a scene.
func (r *Repository) Updates(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Scene{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MarkGenerating flags the scene as in flight.
func (r *Repository) MarkGenerating(ctx context.Context, id uuid.UUID) error {
	return r.Updates(ctx, id, map[string]any{
		"image_status": enums.SceneImageGenerating.String(),
	})
}

// MarkCompleted records the stored image and clears any stale error.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, imageURL string) error {
	return r.Updates(ctx, id, map[string]any{
		"image_status":  enums.SceneImageCompleted.String(),
		"image_url":     imageURL,
		"error_message": nil,
	})
}

// MarkError records the failure. A previously stored image is left in place.
func (r *Repository) MarkError(ctx context.Context, id uuid.UUID, message string) error {
	return r.Updates(ctx, id, map[string]any{
		"image_status":  enums.SceneImageError.String(),
		"error_message": message,
	})
}

// CountByStatus counts the project's scenes in the given image status.
func (r *Repository) CountByStatus(ctx context.Context, projectID uuid.UUID, status enums.SceneImageStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Scene{}).
		Where("project_id = ? AND image_status = ?", projectID, status.String()).
		Count(&count).Error
	return count, err
}

package settings

import (
	"context"

	"gorm.io/gorm"

	"github.com/reelforge/reelforge-backend/pkg/db/models"
)

// Repository exposes persistence for the single settings row.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a settings repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the settings row, creating it with defaults when missing.
func (r *Repository) Get(ctx context.Context) (*models.Settings, error) {
	row := models.Settings{ID: models.SettingsRowID}
	err := r.db.WithContext(ctx).
		Where(models.Settings{ID: models.SettingsRowID}).
		FirstOrCreate(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Updates applies the given column updates to the settings row.
func (r *Repository) Updates(ctx context.Context, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Settings{}).
		Where("id = ?", models.SettingsRowID).
		Updates(updates).Error
}

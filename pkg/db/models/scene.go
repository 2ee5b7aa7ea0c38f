package models

import (
	"github.com/google/uuid"

	"github.com/reelforge/reelforge-backend/pkg/enums"
)

// Scene is one timed narrative beat of a project. Number is the 1-based
// display order within the project; it is advisory ordering only and carries
// no uniqueness constraint.
type Scene struct {
	ID              uuid.UUID              `gorm:"column:id;primaryKey" json:"id"`
	ProjectID       uuid.UUID              `gorm:"column:project_id;not null;index:idx_scenes_project_number,priority:1" json:"projectId"`
	Number          int                    `gorm:"column:number;not null;index:idx_scenes_project_number,priority:2" json:"number"`
	Title           string                 `gorm:"column:title;not null" json:"title"`
	Description     string                 `gorm:"column:description;not null" json:"description"`
	VisualPrompt    string                 `gorm:"column:visual_prompt;not null" json:"visualPrompt"`
	DurationSeconds float64                `gorm:"column:duration_seconds;not null" json:"durationSeconds"`
	ImageURL        *string                `gorm:"column:image_url" json:"imageUrl,omitempty"`
	ImageStatus     enums.SceneImageStatus `gorm:"column:image_status;not null;default:pending" json:"imageStatus"`
	ErrorMessage    *string                `gorm:"column:error_message" json:"errorMessage,omitempty"`
}

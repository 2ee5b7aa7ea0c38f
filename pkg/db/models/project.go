package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/reelforge/reelforge-backend/pkg/enums"
)

// Project is the parent reel entity owning an ordered set of scenes. It is
// served directly over the API, so json tags define the wire format.
type Project struct {
	ID                uuid.UUID              `gorm:"column:id;primaryKey" json:"id"`
	Title             string                 `gorm:"column:title;not null" json:"title"`
	Theme             string                 `gorm:"column:theme;not null" json:"theme"`
	Captions          string                 `gorm:"column:captions;not null" json:"captions"`
	StyleHints        *string                `gorm:"column:style_hints" json:"styleHints,omitempty"`
	ReferenceImageURL *string                `gorm:"column:reference_image_url" json:"referenceImageUrl,omitempty"`
	TotalDuration     float64                `gorm:"column:total_duration;not null;default:0" json:"totalDuration"`
	Status            enums.GenerationStatus `gorm:"column:status;not null;default:idle" json:"status"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Scenes []Scene `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"scenes"`
}

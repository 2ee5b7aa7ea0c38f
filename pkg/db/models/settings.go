package models

import "github.com/reelforge/reelforge-backend/pkg/enums"

// SettingsRowID is the primary key of the single settings row.
const SettingsRowID = "default"

// Settings is the single-row table holding user-configured API keys and
// generation defaults. Keys stored here win over process environment.
type Settings struct {
	ID               string           `gorm:"column:id;primaryKey;default:default"`
	AnthropicAPIKey  *string          `gorm:"column:anthropic_api_key"`
	NanobananaAPIKey *string          `gorm:"column:nanobanana_api_key"`
	DefaultModel     enums.ImageModel `gorm:"column:default_model;default:flash"`
	DefaultNumScenes int              `gorm:"column:default_num_scenes;default:12"`
}

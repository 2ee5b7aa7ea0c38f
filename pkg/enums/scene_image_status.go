package enums

import "fmt"

// SceneImageStatus describes the lifecycle of a single scene's image.
type SceneImageStatus string

const (
	SceneImagePending    SceneImageStatus = "pending"
	SceneImageGenerating SceneImageStatus = "generating"
	SceneImageCompleted  SceneImageStatus = "completed"
	SceneImageError      SceneImageStatus = "error"
)

var validSceneImageStatuses = []SceneImageStatus{
	SceneImagePending,
	SceneImageGenerating,
	SceneImageCompleted,
	SceneImageError,
}

// String returns the literal string for the status.
func (s SceneImageStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s SceneImageStatus) IsValid() bool {
	for _, candidate := range validSceneImageStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the scene's state machine has finished.
func (s SceneImageStatus) IsTerminal() bool {
	return s == SceneImageCompleted || s == SceneImageError
}

// ParseSceneImageStatus converts raw input into a SceneImageStatus.
func ParseSceneImageStatus(value string) (SceneImageStatus, error) {
	for _, candidate := range validSceneImageStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid scene image status %q", value)
}

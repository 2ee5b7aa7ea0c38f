package enums

import "fmt"

// GenerationStatus describes the project-level generation lifecycle.
type GenerationStatus string

const (
	GenerationStatusIdle             GenerationStatus = "idle"
	GenerationStatusGeneratingScript GenerationStatus = "generating_script"
	GenerationStatusScriptReady      GenerationStatus = "script_ready"
	GenerationStatusGeneratingImages GenerationStatus = "generating_images"
	GenerationStatusCompleted        GenerationStatus = "completed"
	GenerationStatusError            GenerationStatus = "error"
)

var validGenerationStatuses = []GenerationStatus{
	GenerationStatusIdle,
	GenerationStatusGeneratingScript,
	GenerationStatusScriptReady,
	GenerationStatusGeneratingImages,
	GenerationStatusCompleted,
	GenerationStatusError,
}

// String returns the literal string for the status.
func (g GenerationStatus) String() string {
	return string(g)
}

// IsValid reports whether the status is known.
func (g GenerationStatus) IsValid() bool {
	for _, candidate := range validGenerationStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}

// IsTerminal reports whether image generation has finished for the project.
func (g GenerationStatus) IsTerminal() bool {
	return g == GenerationStatusCompleted || g == GenerationStatusError
}

// ParseGenerationStatus converts raw input into a GenerationStatus.
func ParseGenerationStatus(value string) (GenerationStatus, error) {
	for _, candidate := range validGenerationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid generation status %q", value)
}

package enums

import "fmt"

// ImageModel selects the image-generation model tier.
type ImageModel string

const (
	// ImageModelFlash is the faster, cheaper tier.
	ImageModelFlash ImageModel = "flash"
	// ImageModelPro is the higher-fidelity tier.
	ImageModelPro ImageModel = "pro"
)

var validImageModels = []ImageModel{
	ImageModelFlash,
	ImageModelPro,
}

// String returns the literal string for the model tier.
func (m ImageModel) String() string {
	return string(m)
}

// IsValid reports whether the model tier is known.
func (m ImageModel) IsValid() bool {
	for _, candidate := range validImageModels {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseImageModel converts raw input into an ImageModel. Empty input falls
// back to the flash tier, mirroring the API default.
func ParseImageModel(value string) (ImageModel, error) {
	if value == "" {
		return ImageModelFlash, nil
	}
	for _, candidate := range validImageModels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid image model %q", value)
}

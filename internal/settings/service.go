package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/reelforge/reelforge-backend/pkg/config"
	"github.com/reelforge/reelforge-backend/pkg/db/models"
	"github.com/reelforge/reelforge-backend/pkg/enums"
	pkgerrors "github.com/reelforge/reelforge-backend/pkg/errors"
)

const (
	minScenes = 1
	maxScenes = 30
)

type settingsRepository interface {
	Get(ctx context.Context) (*models.Settings, error)
	Updates(ctx context.Context, updates map[string]any) error
}

// KeyProber validates an API key against its upstream service.
type KeyProber interface {
	ValidateKey(ctx context.Context) (bool, error)
}

// ProberFactory builds a key-validation probe for the given API key.
type ProberFactory func(apiKey string) (KeyProber, error)

// View is the masked settings representation served over the API. Raw keys
// never leave the service.
type View struct {
	HasAnthropicKey  bool             `json:"hasAnthropicKey"`
	HasNanobananaKey bool             `json:"hasNanobananaKey"`
	DefaultModel     enums.ImageModel `json:"defaultModel"`
	DefaultNumScenes int              `json:"defaultNumScenes"`
}

// UpdateInput is a partial settings update. Nil fields are untouched; an
// empty key string clears the stored key.
type UpdateInput struct {
	AnthropicAPIKey  *string
	NanobananaAPIKey *string
	DefaultModel     *string
	DefaultNumScenes *int
}

// Keys holds the resolved API keys for outbound calls.
type Keys struct {
	Anthropic  string
	Nanobanana string
}

// ValidationResult reports the outcome of live key probes.
type ValidationResult struct {
	AnthropicValid  bool `json:"anthropicValid"`
	NanobananaValid bool `json:"nanobananaValid"`
}

// Service exposes settings reads, partial updates, and key handling.
type Service interface {
	Get(ctx context.Context) (*View, error)
	Update(ctx context.Context, input UpdateInput) (*View, error)
	ValidateKeys(ctx context.Context) (*ValidationResult, error)
	ResolveKeys(ctx context.Context) (Keys, error)
}

type service struct {
	repo          settingsRepository
	anthropicEnv  string
	nanobananaEnv string
	newAnthropic  ProberFactory
	newNanobanana ProberFactory
}

// NewService builds the settings service. The env keys act as fallbacks when
// no key is stored durably.
func NewService(repo settingsRepository, anthropicCfg config.AnthropicConfig, nanobananaCfg config.NanoBananaConfig, newAnthropic, newNanobanana ProberFactory) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if newAnthropic == nil {
		return nil, fmt.Errorf("anthropic prober factory required")
	}
	if newNanobanana == nil {
		return nil, fmt.Errorf("nanobanana prober factory required")
	}
	return &service{
		repo:          repo,
		anthropicEnv:  strings.TrimSpace(anthropicCfg.APIKey),
		nanobananaEnv: strings.TrimSpace(nanobananaCfg.APIKey),
		newAnthropic:  newAnthropic,
		newNanobanana: newNanobanana,
	}, nil
}

func (s *service) Get(ctx context.Context) (*View, error) {
	row, err := s.repo.Get(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading settings")
	}
	keys := s.resolve(row)
	return &View{
		HasAnthropicKey:  keys.Anthropic != "",
		HasNanobananaKey: keys.Nanobanana != "",
		DefaultModel:     row.DefaultModel,
		DefaultNumScenes: row.DefaultNumScenes,
	}, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*View, error) {
	updates := map[string]any{}

	if input.AnthropicAPIKey != nil {
		updates["anthropic_api_key"] = nullableKey(*input.AnthropicAPIKey)
	}
	if input.NanobananaAPIKey != nil {
		updates["nanobanana_api_key"] = nullableKey(*input.NanobananaAPIKey)
	}
	if input.DefaultModel != nil {
		model, err := enums.ParseImageModel(*input.DefaultModel)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		updates["default_model"] = model.String()
	}
	if input.DefaultNumScenes != nil {
		n := *input.DefaultNumScenes
		if n < minScenes || n > maxScenes {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("defaultNumScenes must be between %d and %d", minScenes, maxScenes))
		}
		updates["default_num_scenes"] = n
	}

	if len(updates) > 0 {
		// the row may not exist yet on a fresh database
		if _, err := s.repo.Get(ctx); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading settings")
		}
		if err := s.repo.Updates(ctx, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating settings")
		}
	}

	return s.Get(ctx)
}

func (s *service) ValidateKeys(ctx context.Context) (*ValidationResult, error) {
	keys, err := s.ResolveKeys(ctx)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{}

	if keys.Anthropic != "" {
		prober, err := s.newAnthropic(keys.Anthropic)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "building anthropic probe")
		}
		valid, err := prober.ValidateKey(ctx)
		if err != nil {
			return nil, err
		}
		result.AnthropicValid = valid
	}

	if keys.Nanobanana != "" {
		prober, err := s.newNanobanana(keys.Nanobanana)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "building nanobanana probe")
		}
		valid, err := prober.ValidateKey(ctx)
		if err != nil {
			return nil, err
		}
		result.NanobananaValid = valid
	}

	return result, nil
}

func (s *service) ResolveKeys(ctx context.Context) (Keys, error) {
	row, err := s.repo.Get(ctx)
	if err != nil {
		return Keys{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading settings")
	}
	return s.resolve(row), nil
}

// resolve prefers durable settings over process environment.
func (s *service) resolve(row *models.Settings) Keys {
	keys := Keys{Anthropic: s.anthropicEnv, Nanobanana: s.nanobananaEnv}
	if row.AnthropicAPIKey != nil && strings.TrimSpace(*row.AnthropicAPIKey) != "" {
		keys.Anthropic = strings.TrimSpace(*row.AnthropicAPIKey)
	}
	if row.NanobananaAPIKey != nil && strings.TrimSpace(*row.NanobananaAPIKey) != "" {
		keys.Nanobanana = strings.TrimSpace(*row.NanobananaAPIKey)
	}
	return keys
}

func nullableKey(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}

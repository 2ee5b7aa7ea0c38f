package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/reelforge/reelforge-backend/internal/images"
	"github.com/reelforge/reelforge-backend/pkg/logger"
)

// Handler consumes generation tasks and drives the image orchestrator.
type Handler struct {
	images images.Service
	logg   *logger.Logger
}

// NewHandler builds the queue consumer.
func NewHandler(imagesSvc images.Service, logg *logger.Logger) (*Handler, error) {
	if imagesSvc == nil {
		return nil, fmt.Errorf("images service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Handler{images: imagesSvc, logg: logg}, nil
}

// Mux routes task types to their handlers.
func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeGenerateBatch, h.HandleGenerateBatch)
	return mux
}

// HandleGenerateBatch decodes the payload and runs the batch. Malformed
// payloads skip retry: they will never become valid.
func (h *Handler) HandleGenerateBatch(ctx context.Context, t *asynq.Task) error {
	var payload GenerateBatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decoding %s payload: %v: %w", TypeGenerateBatch, err, asynq.SkipRetry)
	}

	projectID, err := uuid.Parse(payload.ProjectID)
	if err != nil {
		return fmt.Errorf("invalid project id %q: %v: %w", payload.ProjectID, err, asynq.SkipRetry)
	}

	return h.images.RunBatch(ctx, projectID, images.BatchInput{
		Model:             payload.Model,
		ReferenceImageURL: payload.ReferenceImageURL,
		LockOwner:         payload.LockOwner,
	})
}

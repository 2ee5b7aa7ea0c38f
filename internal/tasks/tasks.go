package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TypeGenerateBatch runs the full image generation batch for a project.
const TypeGenerateBatch = "images:generate_batch"

// GenerateBatchPayload is the wire form of a batch generation task. LockOwner
// is the token of the project lock held since enqueue; the worker adopts it.
type GenerateBatchPayload struct {
	ProjectID         string `json:"project_id"`
	Model             string `json:"model"`
	ReferenceImageURL string `json:"reference_image_url,omitempty"`
	LockOwner         string `json:"lock_owner,omitempty"`
}

// NewGenerateBatchTask builds the asynq task for a batch run. Retries are
// disabled: the batch records per-scene outcomes itself and a blind rerun
// would regenerate scenes that already completed.
func NewGenerateBatchTask(payload GenerateBatchPayload, queue string, timeout time.Duration) (*asynq.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling batch payload: %w", err)
	}
	return asynq.NewTask(TypeGenerateBatch, raw,
		asynq.Queue(queue),
		asynq.MaxRetry(0),
		asynq.Timeout(timeout),
	), nil
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/rs/zerolog/log"
)

// JobRunner runs a single ingest job.
type JobRunner interface {
	RunJob(ctx context.Context, id string) (models.IngestJob, error)
}

// IngestHandler processes TypeIngestCSV tasks.
type IngestHandler struct {
	runner JobRunner
}

// NewIngestHandler creates an IngestHandler.
func NewIngestHandler(runner JobRunner) *IngestHandler {
	return &IngestHandler{runner: runner}
}

// ProcessTask implements asynq.Handler.
func (h *IngestHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID, _ := asynq.GetTaskID(ctx)
	retry, _ := asynq.GetRetryCount(ctx)
	logger := log.With().Str("task_id", taskID).Str("task_type", t.Type()).Int("retry", retry).Logger()

	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logger.Error().Err(err).Msg("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info().Str("job_id", payload.JobID).Msg("Processing ingest task")
	job, err := h.runner.RunJob(ctx, payload.JobID)
	if err != nil {
		if permanent(err) {
			return fmt.Errorf("ingest job %s: %v: %w", payload.JobID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("ingest job %s: %w", payload.JobID, err)
	}
	logger.Info().Str("job_id", job.ID).Int("tasks", job.TasksCreated).Msg("Ingest task processed")
	return nil
}

// permanent reports whether retrying err cannot help. A job held by another run may
// become claimable once that run goes stale.
func permanent(err error) bool {
	if errors.Is(err, services.ErrJobRunning) {
		return false
	}
	return errors.Is(err, services.ErrNotFound) ||
		errors.Is(err, services.ErrInvalidInput) ||
		errors.Is(err, services.ErrInvalidTransition)
}

// Package worker runs ingest jobs in the background, on an asynq queue when Redis is
// configured and on goroutines otherwise.
package worker

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// TypeIngestCSV is the asynq task type of an ingest job.
	TypeIngestCSV = "ingest:csv"

	// ingestMaxRetry is how many times asynq retries a failed ingest job.
	ingestMaxRetry = 3
)

// IngestPayload is the payload of a TypeIngestCSV task.
type IngestPayload struct {
	JobID string `json:"jobId"`
}

// NewIngestTask creates the asynq task for an ingest job.
func NewIngestTask(jobID string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeIngestCSV, payload, asynq.MaxRetry(ingestMaxRetry)), nil
}

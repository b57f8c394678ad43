package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu   sync.Mutex
	ran  []string
	err  error
}

func (f *fakeRunner) RunJob(ctx context.Context, id string) (models.IngestJob, error) {
	f.mu.Lock()
	f.ran = append(f.ran, id)
	f.mu.Unlock()
	if f.err != nil {
		return models.IngestJob{}, f.err
	}
	return models.IngestJob{ID: id, Status: models.IngestCompleted, TasksCreated: 2}, nil
}

func TestNewIngestTask(t *testing.T) {
	task, err := NewIngestTask("job-1")
	require.NoError(t, err)
	assert.Equal(t, TypeIngestCSV, task.Type())

	var payload IngestPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "job-1", payload.JobID)
}

func TestIngestHandlerRunsJob(t *testing.T) {
	runner := &fakeRunner{}
	task, err := NewIngestTask("job-1")
	require.NoError(t, err)

	require.NoError(t, NewIngestHandler(runner).ProcessTask(context.Background(), task))
	assert.Equal(t, []string{"job-1"}, runner.ran)
}

func TestIngestHandlerRetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		skipRetry bool
	}{
		{"transient", errors.New("connection reset"), false},
		{"missing job", fmt.Errorf("ingest job x: %w", services.ErrNotFound), true},
		{"bad csv", fmt.Errorf("csv: %w", services.ErrInvalidInput), true},
		{"held by another run", fmt.Errorf("ingest job x: %w", services.ErrJobRunning), false},
		{"invalid transition", fmt.Errorf("task x: %w", services.ErrInvalidTransition), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := NewIngestTask("job-1")
			require.NoError(t, err)
			err = NewIngestHandler(&fakeRunner{err: tt.err}).ProcessTask(context.Background(), task)
			require.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestIngestHandlerBadPayload(t *testing.T) {
	err := NewIngestHandler(&fakeRunner{}).ProcessTask(context.Background(), asynq.NewTask(TypeIngestCSV, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestLocalDispatcher(t *testing.T) {
	runner := &fakeRunner{}
	d := NewLocalDispatcher(runner)

	require.NoError(t, d.Dispatch(context.Background(), "a"))
	require.NoError(t, d.Dispatch(context.Background(), "b"))
	d.Wait()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b"}, runner.ran)
}

type blockingRunner struct {
	started chan struct{}
	err     chan error
}

func (b *blockingRunner) RunJob(ctx context.Context, id string) (models.IngestJob, error) {
	close(b.started)
	<-ctx.Done()
	b.err <- ctx.Err()
	return models.IngestJob{ID: id, Status: models.IngestFailed}, ctx.Err()
}

func TestLocalDispatcherStopCancelsRunningJobs(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}), err: make(chan error, 1)}
	d := NewLocalDispatcher(runner)

	require.NoError(t, d.Dispatch(context.Background(), "slow"))
	<-runner.started

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.ErrorIs(t, <-runner.err, context.Canceled)
	assert.ErrorIs(t, d.Dispatch(context.Background(), "late"), ErrDispatcherStopped)
}

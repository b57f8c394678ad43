package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// localJobTimeout bounds an ingest job run on a goroutine.
const localJobTimeout = 10 * time.Minute

// Dispatcher hands ingest jobs to a background executor.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string) error
}

// QueueDispatcher enqueues ingest jobs on asynq.
type QueueDispatcher struct {
	client *asynq.Client
}

// NewQueueDispatcher creates a dispatcher backed by an asynq client.
func NewQueueDispatcher(client *asynq.Client) *QueueDispatcher {
	return &QueueDispatcher{client: client}
}

// Dispatch enqueues the job.
func (d *QueueDispatcher) Dispatch(ctx context.Context, jobID string) error {
	task, err := NewIngestTask(jobID)
	if err != nil {
		return err
	}
	info, err := d.client.EnqueueContext(ctx, task, asynq.Timeout(localJobTimeout))
	if err != nil {
		return err
	}
	log.Debug().Str("job_id", jobID).Str("task_id", info.ID).Str("queue", info.Queue).Msg("Ingest job enqueued")
	return nil
}

// ErrDispatcherStopped is returned by LocalDispatcher.Dispatch after Stop.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// LocalDispatcher runs ingest jobs on goroutines in this process.
type LocalDispatcher struct {
	runner JobRunner
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLocalDispatcher creates a goroutine dispatcher.
func NewLocalDispatcher(runner JobRunner) *LocalDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalDispatcher{runner: runner, ctx: ctx, cancel: cancel}
}

// Dispatch starts the job and returns immediately. Jobs run on the dispatcher's own context
// since they outlive the request.
func (d *LocalDispatcher) Dispatch(_ context.Context, jobID string) error {
	if d.ctx.Err() != nil {
		return ErrDispatcherStopped
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(d.ctx, localJobTimeout)
		defer cancel()
		if _, err := d.runner.RunJob(ctx, jobID); err != nil {
			log.Error().Err(err).Str("job_id", jobID).Msg("Background ingest job failed")
		}
	}()
	return nil
}

// Wait blocks until every dispatched job has finished.
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}

// Stop cancels running jobs and waits for them to return. Cancelled jobs end up failed
// and can be run again.
func (d *LocalDispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
}

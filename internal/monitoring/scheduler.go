package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/isdelr/annotation-hub-be/internal/worker"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Dependencies are the services the scheduler drives.
type Dependencies struct {
	Schedules  services.ScheduleServiceProvider
	Ingest     services.IngestServiceProvider
	Billing    services.BillingServiceProvider
	Projects   services.ProjectServiceProvider
	Jobs       services.JobServiceProvider
	Events     services.EventServiceProvider
	Dispatcher worker.Dispatcher
	Stats      *StatsCollector
}

// Scheduler checks for and executes scheduled tasks.
type Scheduler struct {
	deps Dependencies
	cron *cron.Cron
	now  func() time.Time
}

// NewScheduler creates a new scheduler instance with its built-in jobs registered.
func NewScheduler(deps Dependencies) (*Scheduler, error) {
	logger := cronLogger{}
	s := &Scheduler{
		deps: deps,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		now: func() time.Time { return time.Now().UTC() },
	}

	jobs := map[string]func(){
		"@every 1m": s.RunDueSchedules,
		"@hourly":   s.ExpireJobPosts,
	}
	if deps.Stats != nil {
		jobs["@every 5m"] = func() { deps.Stats.CheckCPU(context.Background()) }
	}
	for spec, run := range jobs {
		if _, err := s.cron.AddFunc(spec, run); err != nil {
			return nil, fmt.Errorf("registering %q job: %w", spec, err)
		}
	}
	return s, nil
}

// Start runs due schedules once and then starts the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	log.Info().Msg("Starting background scheduler...")
	s.RunDueSchedules()
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	log.Info().Msg("Stopping background scheduler.")
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn().Msg("Scheduler: Jobs still running at shutdown")
	}
}

// RunDueSchedules queries for due schedules and executes them.
func (s *Scheduler) RunDueSchedules() {
	now := s.now()
	schedules, err := s.deps.Schedules.GetDueSchedules(now)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: Failed to retrieve due schedules")
		return
	}

	for _, schedule := range schedules {
		cronSchedule, err := cron.ParseStandard(schedule.CronExpression)
		if err != nil {
			log.Error().Err(err).Str("schedule_id", schedule.ID).Msg("Scheduler: Invalid cron expression")
			continue
		}
		// Book the next run first so a failing task is not retried every minute.
		if err := s.deps.Schedules.UpdateScheduleRunTimes(schedule.ID, now, cronSchedule.Next(now)); err != nil {
			log.Error().Err(err).Str("schedule_id", schedule.ID).Msg("Scheduler: Failed to update run times")
			continue
		}
		s.executeTask(schedule, now)
	}
}

// executeTask performs the action defined by the schedule.
func (s *Scheduler) executeTask(schedule models.Schedule, now time.Time) {
	log.Info().Str("schedule_id", schedule.ID).Str("project_id", schedule.ProjectID).Str("task_type", schedule.TaskType).Msg("Scheduler: Executing task")

	var (
		detail string
		err    error
	)
	switch schedule.TaskType {
	case models.ScheduleIngest:
		var payload models.IngestPayload
		if err = json.Unmarshal(schedule.Payload, &payload); err != nil {
			err = fmt.Errorf("invalid ingest payload: %w", err)
			break
		}
		var job models.IngestJob
		job, err = s.deps.Ingest.CreateJob(schedule.ProjectID, payload.TemplateID, payload.URL)
		if err != nil {
			break
		}
		err = s.deps.Dispatcher.Dispatch(context.Background(), job.ID)
		detail = fmt.Sprintf("ingest job %s queued", job.ID)
	case models.ScheduleInvoice:
		start := schedule.CreatedAt
		if schedule.LastRunAt != nil {
			start = *schedule.LastRunAt
		}
		var invoices []models.Invoice
		invoices, err = s.deps.Billing.GenerateInvoices(schedule.ProjectID, start, now)
		detail = fmt.Sprintf("%d invoices generated", len(invoices))
	case models.ScheduleArchive:
		err = s.deps.Projects.SetProjectStatus(schedule.ProjectID, models.ProjectArchived)
		detail = "project archived"
	default:
		err = fmt.Errorf("unknown task type '%s' for schedule %s", schedule.TaskType, schedule.ID)
	}

	if err != nil {
		log.Error().Err(err).Str("schedule_id", schedule.ID).Msg("Scheduler: Error executing task")
		msg := fmt.Sprintf("Scheduled task '%s' failed to execute: %v", schedule.Name, err)
		s.deps.Events.CreateEvent("schedule.execute.fail", "error", msg, &schedule.ProjectID, nil)
		return
	}
	msg := fmt.Sprintf("Scheduled task '%s' executed successfully: %s.", schedule.Name, detail)
	s.deps.Events.CreateEvent("schedule.execute.success", "info", msg, &schedule.ProjectID, nil)
}

// ExpireJobPosts closes published job posts whose expiry has passed.
func (s *Scheduler) ExpireJobPosts() {
	closed, err := s.deps.Jobs.ExpireJobPosts(s.now())
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: Failed to expire job posts")
		return
	}
	if closed > 0 {
		log.Info().Int("closed", closed).Msg("Scheduler: Closed expired job posts")
	}
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

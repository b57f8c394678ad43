package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/robfig/cron/v3"
)

// ScheduleServiceProvider defines the interface for schedule services.
type ScheduleServiceProvider interface {
	CreateSchedule(schedule models.Schedule) (models.Schedule, error)
	GetSchedulesForProject(projectID string) ([]models.Schedule, error)
	GetScheduleByID(scheduleID string) (models.Schedule, error)
	GetDueSchedules(at time.Time) ([]models.Schedule, error)
	UpdateSchedule(scheduleID string, schedule models.Schedule) (models.Schedule, error)
	DeleteSchedule(scheduleID string) error
	UpdateScheduleRunTimes(scheduleID string, lastRun time.Time, nextRun time.Time) error
}

// ScheduleService provides business logic for schedule management.
type ScheduleService struct {
	db           *sql.DB
	eventService EventServiceProvider
}

// NewScheduleService creates a new ScheduleService.
func NewScheduleService(db *sql.DB, eventService EventServiceProvider) *ScheduleService {
	return &ScheduleService{
		db:           db,
		eventService: eventService,
	}
}

const scheduleColumns = "id, project_id, name, cron_expression, task_type, payload_json, is_active, last_run_at, next_run_at, created_at"

// validateSchedule checks the cron expression, task type and payload and returns the parsed schedule.
func validateSchedule(schedule models.Schedule) (cron.Schedule, error) {
	if schedule.Name == "" {
		return nil, fmt.Errorf("schedule name is required: %w", ErrInvalidInput)
	}
	cronSchedule, err := cron.ParseStandard(schedule.CronExpression)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %v: %w", err, ErrInvalidInput)
	}
	if !models.ValidScheduleTask(schedule.TaskType) {
		return nil, fmt.Errorf("unknown task type %q: %w", schedule.TaskType, ErrInvalidInput)
	}
	if len(schedule.Payload) > 0 && !json.Valid(schedule.Payload) {
		return nil, fmt.Errorf("payload must be a JSON document: %w", ErrInvalidInput)
	}
	if schedule.TaskType == models.ScheduleIngest {
		var payload models.IngestPayload
		if len(schedule.Payload) == 0 || json.Unmarshal(schedule.Payload, &payload) != nil ||
			payload.TemplateID == "" || payload.URL == "" {
			return nil, fmt.Errorf("ingest schedules need a templateId and url payload: %w", ErrInvalidInput)
		}
	}
	return cronSchedule, nil
}

// CreateSchedule creates a new schedule and saves it to the database.
func (s *ScheduleService) CreateSchedule(schedule models.Schedule) (models.Schedule, error) {
	cronSchedule, err := validateSchedule(schedule)
	if err != nil {
		return models.Schedule{}, err
	}

	schedule.ID = uuid.New().String()
	schedule.CreatedAt = now()
	schedule.PrepareForDB()
	nextRun := cronSchedule.Next(schedule.CreatedAt).UTC()
	schedule.NextRunAt = &nextRun

	stmt, err := s.db.Prepare(`
		INSERT INTO schedules (id, project_id, name, cron_expression, task_type, payload_json, is_active, next_run_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return models.Schedule{}, err
	}
	defer stmt.Close()

	_, err = stmt.Exec(schedule.ID, schedule.ProjectID, schedule.Name, schedule.CronExpression, schedule.TaskType,
		schedule.PayloadJSON, schedule.IsActive, schedule.NextRunAt, schedule.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Schedule{}, fmt.Errorf("project %s: %w", schedule.ProjectID, ErrNotFound)
		}
		return models.Schedule{}, err
	}

	s.eventService.CreateEvent("schedule.create", "info", fmt.Sprintf("Schedule '%s' created.", schedule.Name), &schedule.ProjectID, nil)
	return s.GetScheduleByID(schedule.ID)
}

// GetSchedulesForProject retrieves all schedules for a specific project.
func (s *ScheduleService) GetSchedulesForProject(projectID string) ([]models.Schedule, error) {
	rows, err := s.db.Query("SELECT "+scheduleColumns+" FROM schedules WHERE project_id = ? ORDER BY created_at DESC", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanSchedules(rows)
}

// GetScheduleByID retrieves a single schedule by its ID.
func (s *ScheduleService) GetScheduleByID(scheduleID string) (models.Schedule, error) {
	schedule, err := s.scanSchedule(s.db.QueryRow("SELECT "+scheduleColumns+" FROM schedules WHERE id = ?", scheduleID))
	if err != nil {
		return models.Schedule{}, notFound(err, "schedule", scheduleID)
	}
	return schedule, nil
}

// GetDueSchedules retrieves the active schedules whose next run is at or before at.
func (s *ScheduleService) GetDueSchedules(at time.Time) ([]models.Schedule, error) {
	rows, err := s.db.Query("SELECT "+scheduleColumns+" FROM schedules WHERE is_active = 1 AND next_run_at IS NOT NULL AND next_run_at <= ? ORDER BY next_run_at",
		at.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanSchedules(rows)
}

// UpdateSchedule updates an existing schedule and recomputes its next run.
func (s *ScheduleService) UpdateSchedule(scheduleID string, schedule models.Schedule) (models.Schedule, error) {
	cronSchedule, err := validateSchedule(schedule)
	if err != nil {
		return models.Schedule{}, err
	}

	existing, err := s.GetScheduleByID(scheduleID)
	if err != nil {
		return models.Schedule{}, err
	}

	schedule.PrepareForDB()
	nextRun := cronSchedule.Next(now()).UTC()
	schedule.NextRunAt = &nextRun

	stmt, err := s.db.Prepare(`
		UPDATE schedules
		SET name = ?, cron_expression = ?, task_type = ?, payload_json = ?, is_active = ?, next_run_at = ?
		WHERE id = ?
	`)
	if err != nil {
		return models.Schedule{}, err
	}
	defer stmt.Close()

	_, err = stmt.Exec(schedule.Name, schedule.CronExpression, schedule.TaskType, schedule.PayloadJSON, schedule.IsActive, schedule.NextRunAt, scheduleID)
	if err != nil {
		return models.Schedule{}, err
	}

	s.eventService.CreateEvent("schedule.update", "info", fmt.Sprintf("Schedule '%s' updated.", schedule.Name), &existing.ProjectID, nil)
	return s.GetScheduleByID(scheduleID)
}

// DeleteSchedule removes a schedule from the database.
func (s *ScheduleService) DeleteSchedule(scheduleID string) error {
	schedule, err := s.GetScheduleByID(scheduleID)
	if err != nil {
		return err
	}

	_, err = s.db.Exec("DELETE FROM schedules WHERE id = ?", scheduleID)
	if err == nil {
		s.eventService.CreateEvent("schedule.delete", "warn", fmt.Sprintf("Schedule '%s' was deleted.", schedule.Name), &schedule.ProjectID, nil)
	}
	return err
}

// UpdateScheduleRunTimes updates the last and next run times for a schedule after it executes.
func (s *ScheduleService) UpdateScheduleRunTimes(scheduleID string, lastRun time.Time, nextRun time.Time) error {
	_, err := s.db.Exec("UPDATE schedules SET last_run_at = ?, next_run_at = ? WHERE id = ?", lastRun.UTC(), nextRun.UTC(), scheduleID)
	return err
}

// scanSchedules is a helper function to scan multiple rows into a slice of Schedules.
func (s *ScheduleService) scanSchedules(rows *sql.Rows) ([]models.Schedule, error) {
	schedules := []models.Schedule{}
	for rows.Next() {
		schedule, err := s.scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

// scanSchedule is a helper function to scan a single row into a Schedule struct.
func (s *ScheduleService) scanSchedule(scanner rowScanner) (models.Schedule, error) {
	var schedule models.Schedule
	var payloadJSON sql.NullString
	var lastRun, nextRun sql.NullTime
	err := scanner.Scan(
		&schedule.ID,
		&schedule.ProjectID,
		&schedule.Name,
		&schedule.CronExpression,
		&schedule.TaskType,
		&payloadJSON,
		&schedule.IsActive,
		&lastRun,
		&nextRun,
		&schedule.CreatedAt,
	)
	if err != nil {
		return models.Schedule{}, err
	}
	schedule.PayloadJSON = payloadJSON.String
	schedule.LastRunAt = timePtr(lastRun)
	schedule.NextRunAt = timePtr(nextRun)
	schedule.PrepareForAPI()
	return schedule, nil
}

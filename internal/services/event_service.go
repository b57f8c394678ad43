package services

import (
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Notifier pushes a message to every realtime subscriber of a channel.
type Notifier interface {
	Notify(channel string, message []byte)
}

// UserChannel is the realtime channel of a single user.
func UserChannel(userID string) string { return "user:" + userID }

// ProjectChannel is the realtime channel of a project.
func ProjectChannel(projectID string) string { return "project:" + projectID }

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(eventType, level, message string, projectID, userID *string) error
	GetRecentEvents(limit int) ([]models.Event, error)
	GetEventsForUser(userID string, limit int) ([]models.Event, error)
	GetEventsForProject(projectID string, limit int) ([]models.Event, error)
	GetEventsForManager(managerID string, limit int) ([]models.Event, error)
}

// EventService provides business logic for event management.
type EventService struct {
	db       *sql.DB
	notifier Notifier
}

// NewEventService creates a new EventService. notifier may be nil.
func NewEventService(db *sql.DB, notifier Notifier) *EventService {
	return &EventService{db: db, notifier: notifier}
}

// CreateEvent logs a new event to the database and pushes it to realtime subscribers.
func (s *EventService) CreateEvent(eventType, level, message string, projectID, userID *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		ProjectID: projectID,
		UserID:    userID,
		CreatedAt: now(),
	}

	_, err := s.db.Exec("INSERT INTO events (id, type, level, message, project_id, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		event.ID, event.Type, event.Level, event.Message, event.ProjectID, event.UserID, event.CreatedAt)
	if err != nil {
		return err
	}

	s.publish(event)
	return nil
}

func (s *EventService) publish(event models.Event) {
	if s.notifier == nil {
		return
	}
	msg, err := json.Marshal(map[string]interface{}{"action": "event", "payload": event})
	if err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("Failed to encode event notification")
		return
	}
	if event.UserID != nil {
		s.notifier.Notify(UserChannel(*event.UserID), msg)
	}
	if event.ProjectID != nil {
		s.notifier.Notify(ProjectChannel(*event.ProjectID), msg)
	}
}

// GetRecentEvents retrieves the most recent events from the database.
func (s *EventService) GetRecentEvents(limit int) ([]models.Event, error) {
	return s.query("SELECT id, type, level, message, project_id, user_id, created_at FROM events ORDER BY created_at DESC LIMIT ?", limit)
}

// GetEventsForUser retrieves the most recent events addressed to a user.
func (s *EventService) GetEventsForUser(userID string, limit int) ([]models.Event, error) {
	return s.query("SELECT id, type, level, message, project_id, user_id, created_at FROM events WHERE user_id = ? ORDER BY created_at DESC LIMIT ?", userID, limit)
}

// GetEventsForProject retrieves the most recent events of a project.
func (s *EventService) GetEventsForProject(projectID string, limit int) ([]models.Event, error) {
	return s.query("SELECT id, type, level, message, project_id, user_id, created_at FROM events WHERE project_id = ? ORDER BY created_at DESC LIMIT ?", projectID, limit)
}

// GetEventsForManager retrieves the most recent events of the manager's projects and the manager's own events.
func (s *EventService) GetEventsForManager(managerID string, limit int) ([]models.Event, error) {
	return s.query(`
		SELECT id, type, level, message, project_id, user_id, created_at FROM events
		WHERE user_id = ? OR project_id IN (SELECT id FROM projects WHERE manager_id = ?)
		ORDER BY created_at DESC LIMIT ?`, managerID, managerID, limit)
}

func (s *EventService) query(query string, args ...interface{}) ([]models.Event, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		var projectID, userID sql.NullString
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &projectID, &userID, &event.CreatedAt); err != nil {
			return nil, err
		}
		event.ProjectID = stringPtr(projectID)
		event.UserID = stringPtr(userID)
		events = append(events, event)
	}
	return events, rows.Err()
}

package services

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/annotation-hub-be/internal/models"
)

// TrainingServiceProvider defines the interface for training services.
type TrainingServiceProvider interface {
	GetTrainingsForProject(projectID string) ([]models.Training, error)
	GetTrainingsForAnnotator(annotatorID string) ([]models.Training, error)
	GetTrainingByID(id string) (models.Training, error)
	CreateTraining(training models.Training) (models.Training, error)
	UpdateTraining(id string, training models.Training) (models.Training, error)
	DeleteTraining(id string) error
	InviteAnnotators(id string, annotatorIDs []string) (models.Training, error)
	UpcomingWebinars(annotatorID string, from time.Time) ([]models.UpcomingWebinar, error)
}

// TrainingService provides business logic for trainings and webinars.
type TrainingService struct {
	db           *sql.DB
	eventService EventServiceProvider
}

// NewTrainingService creates a new TrainingService.
func NewTrainingService(db *sql.DB, eventService EventServiceProvider) *TrainingService {
	return &TrainingService{db: db, eventService: eventService}
}

const trainingColumns = "id, project_id, title, description, webinars_json, invited_json, created_at"

func scanTraining(scanner rowScanner) (models.Training, error) {
	var t models.Training
	var desc, webinars, invited sql.NullString
	if err := scanner.Scan(&t.ID, &t.ProjectID, &t.Title, &desc, &webinars, &invited, &t.CreatedAt); err != nil {
		return models.Training{}, err
	}
	t.Description = desc.String
	t.WebinarsJSON = webinars.String
	t.InvitedJSON = invited.String
	t.PrepareForAPI()
	return t, nil
}

func (s *TrainingService) list(query string, args ...interface{}) ([]models.Training, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trainings := []models.Training{}
	for rows.Next() {
		t, err := scanTraining(rows)
		if err != nil {
			return nil, err
		}
		trainings = append(trainings, t)
	}
	return trainings, rows.Err()
}

// GetTrainingsForProject retrieves all trainings of a project.
func (s *TrainingService) GetTrainingsForProject(projectID string) ([]models.Training, error) {
	return s.list("SELECT "+trainingColumns+" FROM trainings WHERE project_id = ? ORDER BY created_at DESC", projectID)
}

// GetTrainingsForAnnotator retrieves the trainings an annotator was invited to.
func (s *TrainingService) GetTrainingsForAnnotator(annotatorID string) ([]models.Training, error) {
	// invited_json is a JSON array of user IDs.
	return s.list("SELECT "+trainingColumns+" FROM trainings WHERE invited_json LIKE ? ORDER BY created_at DESC", `%"`+annotatorID+`"%`)
}

// GetTrainingByID retrieves a single training by its ID.
func (s *TrainingService) GetTrainingByID(id string) (models.Training, error) {
	t, err := scanTraining(s.db.QueryRow("SELECT "+trainingColumns+" FROM trainings WHERE id = ?", id))
	if err != nil {
		return models.Training{}, notFound(err, "training", id)
	}
	return t, nil
}

func prepareWebinars(webinars []models.Webinar) {
	for i := range webinars {
		if webinars[i].ID == "" {
			webinars[i].ID = uuid.New().String()
		}
		webinars[i].ScheduledAt = webinars[i].ScheduledAt.UTC()
	}
	sort.SliceStable(webinars, func(i, j int) bool {
		return webinars[i].ScheduledAt.Before(webinars[j].ScheduledAt)
	})
}

// CreateTraining adds a new training to the database.
func (s *TrainingService) CreateTraining(training models.Training) (models.Training, error) {
	if training.Title == "" {
		return models.Training{}, fmt.Errorf("training title is required: %w", ErrInvalidInput)
	}
	training.ID = uuid.New().String()
	training.CreatedAt = now()
	prepareWebinars(training.Webinars)
	training.PrepareForSave()

	_, err := s.db.Exec("INSERT INTO trainings("+trainingColumns+") VALUES(?, ?, ?, ?, ?, ?, ?)",
		training.ID, training.ProjectID, training.Title, training.Description, training.WebinarsJSON, training.InvitedJSON, training.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Training{}, fmt.Errorf("project %s: %w", training.ProjectID, ErrNotFound)
		}
		return models.Training{}, err
	}
	s.eventService.CreateEvent("training.create", "info", fmt.Sprintf("Training '%s' created.", training.Title), &training.ProjectID, nil)
	return training, nil
}

// UpdateTraining replaces the title, description and webinars of a training. Invitations are kept.
func (s *TrainingService) UpdateTraining(id string, training models.Training) (models.Training, error) {
	if training.Title == "" {
		return models.Training{}, fmt.Errorf("training title is required: %w", ErrInvalidInput)
	}
	prepareWebinars(training.Webinars)
	training.PrepareForSave()

	res, err := s.db.Exec("UPDATE trainings SET title = ?, description = ?, webinars_json = ? WHERE id = ?",
		training.Title, training.Description, training.WebinarsJSON, id)
	if err != nil {
		return models.Training{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Training{}, fmt.Errorf("training %s: %w", id, ErrNotFound)
	}
	return s.GetTrainingByID(id)
}

// DeleteTraining removes a training.
func (s *TrainingService) DeleteTraining(id string) error {
	res, err := s.db.Exec("DELETE FROM trainings WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("training %s: %w", id, ErrNotFound)
	}
	return nil
}

// InviteAnnotators adds annotators to the training's invitation list and notifies the new ones.
func (s *TrainingService) InviteAnnotators(id string, annotatorIDs []string) (models.Training, error) {
	training, err := s.GetTrainingByID(id)
	if err != nil {
		return models.Training{}, err
	}

	var added []string
	for _, annotatorID := range annotatorIDs {
		if training.IsInvited(annotatorID) {
			continue
		}
		role, err := userRole(s.db, annotatorID)
		if err != nil {
			return models.Training{}, err
		}
		if role != models.RoleAnnotator {
			return models.Training{}, fmt.Errorf("user %s is not an annotator: %w", annotatorID, ErrInvalidInput)
		}
		training.InvitedIDs = append(training.InvitedIDs, annotatorID)
		added = append(added, annotatorID)
	}
	if len(added) == 0 {
		return training, nil
	}

	training.PrepareForSave()
	if _, err := s.db.Exec("UPDATE trainings SET invited_json = ? WHERE id = ?", training.InvitedJSON, id); err != nil {
		return models.Training{}, err
	}
	for _, annotatorID := range added {
		uid := annotatorID
		s.eventService.CreateEvent("training.invite", "info", fmt.Sprintf("You were invited to the training '%s'.", training.Title), &training.ProjectID, &uid)
	}
	return training, nil
}

// UpcomingWebinars lists webinars at or after from in trainings the annotator is invited to, soonest first.
func (s *TrainingService) UpcomingWebinars(annotatorID string, from time.Time) ([]models.UpcomingWebinar, error) {
	trainings, err := s.GetTrainingsForAnnotator(annotatorID)
	if err != nil {
		return nil, err
	}
	upcoming := []models.UpcomingWebinar{}
	for _, t := range trainings {
		if !t.IsInvited(annotatorID) {
			continue
		}
		for _, w := range t.Webinars {
			if !w.ScheduledAt.Before(from) {
				upcoming = append(upcoming, models.UpcomingWebinar{TrainingID: t.ID, TrainingTitle: t.Title, Webinar: w})
			}
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Webinar.ScheduledAt.Before(upcoming[j].Webinar.ScheduledAt)
	})
	return upcoming, nil
}

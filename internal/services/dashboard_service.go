package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/isdelr/annotation-hub-be/internal/models"
	"golang.org/x/sync/errgroup"
)

// dailyWindow is the number of days covered by the daily submissions series.
const dailyWindow = 14

// DashboardServiceProvider defines the interface for dashboard aggregations.
type DashboardServiceProvider interface {
	GetProjectDashboard(ctx context.Context, projectID string) (models.ProjectDashboard, error)
	GetOverview(ctx context.Context, managerID string) (models.OverviewDashboard, error)
	GetAnnotatorDashboard(ctx context.Context, annotatorID string) (models.AnnotatorDashboard, error)
}

// DashboardService runs the queries of a dashboard concurrently over the shared pool.
type DashboardService struct {
	db              *sql.DB
	eventService    EventServiceProvider
	trainingService TrainingServiceProvider
	now             func() time.Time
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(db *sql.DB, eventService EventServiceProvider, trainingService TrainingServiceProvider) *DashboardService {
	return &DashboardService{db: db, eventService: eventService, trainingService: trainingService, now: now}
}

func (s *DashboardService) statusCounts(ctx context.Context, query string, args ...interface{}) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int, len(models.TaskStatuses))
	for _, status := range models.TaskStatuses {
		counts[status] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// GetProjectDashboard aggregates task progress, annotator performance and recent throughput of a project.
func (s *DashboardService) GetProjectDashboard(ctx context.Context, projectID string) (models.ProjectDashboard, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT 1 FROM projects WHERE id = ?", projectID).Scan(&exists); err != nil {
		return models.ProjectDashboard{}, notFound(err, "project", projectID)
	}

	d := models.ProjectDashboard{ProjectID: projectID}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.statusCounts(ctx, "SELECT status, COUNT(*) FROM tasks WHERE project_id = ? GROUP BY status", projectID)
		d.StatusCounts = counts
		return err
	})
	g.Go(func() error {
		return s.db.QueryRowContext(ctx, `SELECT COALESCE(AVG(time_taken_seconds), 0) FROM tasks
			WHERE project_id = ? AND status IN (?, ?, ?)`,
			projectID, models.TaskSubmitted, models.TaskAccepted, models.TaskRejected).Scan(&d.AverageTimeSeconds)
	})
	g.Go(func() error {
		stats, err := s.annotatorStats(ctx, projectID)
		d.Annotators = stats
		return err
	})
	g.Go(func() error {
		daily, err := s.dailySubmissions(ctx, projectID)
		d.DailySubmissions = daily
		return err
	})
	if err := g.Wait(); err != nil {
		return models.ProjectDashboard{}, err
	}

	for _, n := range d.StatusCounts {
		d.TotalTasks += n
	}
	if d.TotalTasks > 0 {
		d.CompletionPercent = float64(d.StatusCounts[models.TaskAccepted]) * 100 / float64(d.TotalTasks)
	}
	return d, nil
}

func (s *DashboardService) annotatorStats(ctx context.Context, projectID string) ([]models.AnnotatorStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.annotator_id, u.name, COUNT(*),
		       COALESCE(SUM(CASE WHEN t.submitted_at IS NOT NULL THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN t.status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN t.status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(CASE WHEN t.submitted_at IS NOT NULL THEN t.time_taken_seconds END), 0)
		FROM tasks t JOIN users u ON u.id = t.annotator_id
		WHERE t.project_id = ?
		GROUP BY t.annotator_id, u.name
		ORDER BY u.name`,
		models.TaskAccepted, models.TaskRejected, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []models.AnnotatorStat{}
	for rows.Next() {
		var st models.AnnotatorStat
		if err := rows.Scan(&st.UserID, &st.Name, &st.Assigned, &st.Submitted, &st.Accepted, &st.Rejected, &st.AverageTimeSeconds); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// dailySubmissions counts submissions per UTC day over the last dailyWindow days, oldest first.
func (s *DashboardService) dailySubmissions(ctx context.Context, projectID string) ([]models.DailyCount, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -(dailyWindow - 1))

	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(submitted_at, 1, 10) AS day, COUNT(*) FROM tasks
		WHERE project_id = ? AND submitted_at IS NOT NULL AND submitted_at >= ?
		GROUP BY day`, projectID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDay := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		byDay[day] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	series := make([]models.DailyCount, 0, dailyWindow)
	for i := 0; i < dailyWindow; i++ {
		day := from.AddDate(0, 0, i).Format("2006-01-02")
		series = append(series, models.DailyCount{Date: day, Count: byDay[day]})
	}
	return series, nil
}

// GetOverview aggregates the projects of a manager, or every project when managerID is empty.
func (s *DashboardService) GetOverview(ctx context.Context, managerID string) (models.OverviewDashboard, error) {
	var d models.OverviewDashboard
	scoped := managerID != ""
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		q := "SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) FROM projects"
		args := []interface{}{models.ProjectActive}
		if scoped {
			q += " WHERE manager_id = ?"
			args = append(args, managerID)
		}
		return s.db.QueryRowContext(gctx, q, args...).Scan(&d.TotalProjects, &d.ActiveProjects)
	})
	g.Go(func() error {
		q := "SELECT t.status, COUNT(*) FROM tasks t JOIN projects p ON p.id = t.project_id"
		var args []interface{}
		if scoped {
			q += " WHERE p.manager_id = ?"
			args = append(args, managerID)
		}
		counts, err := s.statusCounts(gctx, q+" GROUP BY t.status", args...)
		d.TaskStatusCounts = counts
		return err
	})
	g.Go(func() error {
		if !scoped {
			return s.db.QueryRowContext(gctx, "SELECT COUNT(*) FROM users WHERE role = ?", models.RoleAnnotator).Scan(&d.TotalAnnotators)
		}
		return s.db.QueryRowContext(gctx, `SELECT COUNT(DISTINCT t.annotator_id) FROM tasks t
			JOIN projects p ON p.id = t.project_id WHERE p.manager_id = ? AND t.annotator_id IS NOT NULL`,
			managerID).Scan(&d.TotalAnnotators)
	})
	g.Go(func() error {
		q := "SELECT COUNT(*) FROM job_posts WHERE status = ?"
		args := []interface{}{models.JobPublished}
		if scoped {
			q += " AND author_id = ?"
			args = append(args, managerID)
		}
		return s.db.QueryRowContext(gctx, q, args...).Scan(&d.OpenJobPosts)
	})
	g.Go(func() error {
		q := `SELECT COALESCE(SUM(CASE WHEN i.status = ? THEN i.amount_cents ELSE 0 END), 0),
		             COALESCE(SUM(CASE WHEN i.status = ? THEN i.amount_cents ELSE 0 END), 0)
		      FROM invoices i JOIN projects p ON p.id = i.project_id`
		args := []interface{}{models.InvoicePending, models.InvoicePaid}
		if scoped {
			q += " WHERE p.manager_id = ?"
			args = append(args, managerID)
		}
		return s.db.QueryRowContext(gctx, q, args...).Scan(&d.PendingInvoiceCents, &d.PaidInvoiceCents)
	})
	g.Go(func() error {
		var events []models.Event
		var err error
		if scoped {
			events, err = s.eventService.GetEventsForManager(managerID, 10)
		} else {
			events, err = s.eventService.GetRecentEvents(10)
		}
		d.RecentEvents = events
		return err
	})
	if err := g.Wait(); err != nil {
		return models.OverviewDashboard{}, err
	}
	return d, nil
}

// GetAnnotatorDashboard aggregates an annotator's tasks, reviews, earnings and upcoming webinars.
func (s *DashboardService) GetAnnotatorDashboard(ctx context.Context, annotatorID string) (models.AnnotatorDashboard, error) {
	var d models.AnnotatorDashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.statusCounts(gctx, "SELECT status, COUNT(*) FROM tasks WHERE annotator_id = ? GROUP BY status", annotatorID)
		d.StatusCounts = counts
		return err
	})
	g.Go(func() error {
		return s.db.QueryRowContext(gctx, "SELECT COUNT(*) FROM tasks WHERE reviewer_id = ? AND status = ?",
			annotatorID, models.TaskSubmitted).Scan(&d.PendingReviews)
	})
	g.Go(func() error {
		return s.db.QueryRowContext(gctx, `SELECT COALESCE(SUM(CASE WHEN status = ? THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN amount_cents ELSE 0 END), 0)
			FROM invoices WHERE annotator_id = ?`,
			models.InvoicePaid, models.InvoicePending, annotatorID).Scan(&d.EarningsCents, &d.PendingEarningsCents)
	})
	g.Go(func() error {
		webinars, err := s.trainingService.UpcomingWebinars(annotatorID, s.now())
		d.UpcomingWebinars = webinars
		return err
	})
	if err := g.Wait(); err != nil {
		return models.AnnotatorDashboard{}, err
	}
	return d, nil
}

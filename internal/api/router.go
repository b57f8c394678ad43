package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/annotation-hub-be/internal/api/handlers"
	"github.com/isdelr/annotation-hub-be/internal/auth"
	appmw "github.com/isdelr/annotation-hub-be/internal/middleware"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/isdelr/annotation-hub-be/internal/websocket"
	"github.com/isdelr/annotation-hub-be/internal/worker"
)

// Dependencies are everything the HTTP surface needs.
type Dependencies struct {
	AllowedOrigins    []string
	SecureCookies     bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateCounter       appmw.Counter

	Tokens *auth.Manager
	Hub    *websocket.Hub
	DB     handlers.Pinger

	Users      services.UserServiceProvider
	Projects   services.ProjectServiceProvider
	Templates  services.TemplateServiceProvider
	Tasks      services.TaskServiceProvider
	Trainings  services.TrainingServiceProvider
	Jobs       services.JobServiceProvider
	Wishlist   services.WishlistServiceProvider
	Billing    services.BillingServiceProvider
	Ingest     services.IngestServiceProvider
	Schedules  services.ScheduleServiceProvider
	Events     services.EventServiceProvider
	Dashboards services.DashboardServiceProvider

	Dispatcher worker.Dispatcher
	Storage    handlers.StorageClient
	Translator handlers.Translator
	Stats      handlers.StatsCollector
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appmw.RequestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Drive-Token"},
		ExposedHeaders:   []string{"Link", "X-Source-URL", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	guard := handlers.NewProjectGuard(d.Projects)
	userHandler := handlers.NewUserHandler(d.Users, d.Tokens, d.SecureCookies)
	projectHandler := handlers.NewProjectHandler(d.Projects)
	templateHandler := handlers.NewTemplateHandler(d.Templates, guard)
	taskHandler := handlers.NewTaskHandler(d.Tasks, guard)
	ingestHandler := handlers.NewIngestHandler(d.Ingest, d.Dispatcher)
	trainingHandler := handlers.NewTrainingHandler(d.Trainings, guard)
	jobHandler := handlers.NewJobHandler(d.Jobs)
	wishlistHandler := handlers.NewWishlistHandler(d.Wishlist)
	invoiceHandler := handlers.NewInvoiceHandler(d.Billing)
	dashboardHandler := handlers.NewDashboardHandler(d.Dashboards)
	eventHandler := handlers.NewEventHandler(d.Events)
	scheduleHandler := handlers.NewScheduleHandler(d.Schedules)
	storageHandler := handlers.NewStorageHandler(d.Storage)
	translateHandler := handlers.NewTranslateHandler(d.Translator)
	systemHandler := handlers.NewSystemHandler(d.DB, d.Stats)
	wsHandler := handlers.NewWebSocketHandler(d.Hub, d.Projects, d.AllowedOrigins)

	rateLimit := func(name string) func(http.Handler) http.Handler {
		return appmw.RateLimit(d.RateCounter, name, d.RateLimitRequests, d.RateLimitWindow)
	}
	managers := auth.RequireRole(models.RoleOwner, models.RoleProjectManager)
	owners := auth.RequireRole(models.RoleOwner)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", systemHandler.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Use(rateLimit("auth"))
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
			r.Post("/logout", userHandler.Logout)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(d.Tokens.Middleware)

			r.Get("/ws", wsHandler.Serve)

			r.Route("/me", func(r chi.Router) {
				r.Get("/", userHandler.GetMe)
				r.Put("/", userHandler.UpdateMe)
				r.Put("/password", userHandler.ChangePassword)
				r.Get("/dashboard", dashboardHandler.Mine)
				r.Get("/tasks", taskHandler.GetMine)
				r.Get("/reviews", taskHandler.GetReviews)
				r.Get("/trainings", trainingHandler.GetMine)
				r.Get("/invoices", invoiceHandler.GetMine)
				r.Get("/events", eventHandler.GetMine)
			})

			r.Route("/users", func(r chi.Router) {
				r.With(managers).Get("/", userHandler.List)
				r.Get("/{id}", userHandler.Get)
				r.With(owners).Delete("/{id}", userHandler.Delete)
			})

			r.Route("/projects", func(r chi.Router) {
				r.Use(managers)
				r.Get("/", projectHandler.GetAll)
				r.Post("/", projectHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(guard.Middleware)
					r.Get("/", projectHandler.Get)
					r.Put("/", projectHandler.Update)
					r.Delete("/", projectHandler.Delete)
					r.Get("/dashboard", dashboardHandler.Project)
					r.Get("/events", eventHandler.GetForProject)

					r.Get("/templates", templateHandler.GetAllForProject)
					r.Post("/templates", templateHandler.Create)
					r.Post("/templates/import", templateHandler.Import)

					r.Get("/tasks", taskHandler.GetAllForProject)
					r.Post("/tasks/assign", taskHandler.Assign)

					r.Get("/ingest", ingestHandler.GetAllForProject)
					r.Post("/ingest", ingestHandler.Create)
					r.Get("/ingest/{jobId}", ingestHandler.Get)

					r.Get("/trainings", trainingHandler.GetAllForProject)
					r.Post("/trainings", trainingHandler.Create)

					r.Get("/invoices", invoiceHandler.GetAllForProject)
					r.Post("/invoices/generate", invoiceHandler.Generate)

					r.Get("/schedules", scheduleHandler.GetAllForProject)
					r.Post("/schedules", scheduleHandler.Create)
					r.Put("/schedules/{scheduleId}", scheduleHandler.Update)
					r.Delete("/schedules/{scheduleId}", scheduleHandler.Delete)
				})
			})

			r.Route("/templates/{id}", func(r chi.Router) {
				r.Get("/", templateHandler.Get)
				r.With(managers).Put("/", templateHandler.Update)
				r.With(managers).Delete("/", templateHandler.Delete)
				r.With(managers).Get("/export", templateHandler.Export)
			})

			r.Route("/tasks/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.Get)
				r.With(managers).Delete("/", taskHandler.Delete)
				r.Post("/submit", taskHandler.Submit)
				r.Post("/review", taskHandler.Review)
				r.With(managers).Post("/reassign", taskHandler.Reassign)
				r.With(managers).Post("/reviewer", taskHandler.SetReviewer)
			})

			r.Route("/trainings/{id}", func(r chi.Router) {
				r.Get("/", trainingHandler.Get)
				r.With(managers).Put("/", trainingHandler.Update)
				r.With(managers).Delete("/", trainingHandler.Delete)
				r.With(managers).Post("/invite", trainingHandler.Invite)
			})

			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", jobHandler.GetAll)
				r.With(managers).Post("/", jobHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", jobHandler.Get)
					r.With(managers).Put("/", jobHandler.Update)
					r.With(managers).Delete("/", jobHandler.Delete)
					r.With(auth.RequireRole(models.RoleAnnotator)).Post("/apply", jobHandler.Apply)
					r.With(managers).Get("/applications", jobHandler.GetApplications)
				})
			})
			r.With(managers).Put("/applications/{id}", jobHandler.UpdateApplication)

			r.Route("/wishlist", func(r chi.Router) {
				r.Use(managers)
				r.Get("/", wishlistHandler.GetAll)
				r.Post("/", wishlistHandler.Add)
				r.Delete("/{expertId}", wishlistHandler.Remove)
			})

			r.With(owners).Post("/invoices/{id}/pay", invoiceHandler.Pay)

			r.With(managers).Get("/dashboard", dashboardHandler.Overview)
			r.Get("/events", eventHandler.GetRecent)
			r.With(owners).Get("/system/stats", systemHandler.Stats)

			r.Route("/storage", func(r chi.Router) {
				r.Use(managers)
				r.Get("/browse", storageHandler.Browse)
				r.Get("/proxy", storageHandler.Proxy)
			})
			r.With(rateLimit("translate")).Post("/translate", translateHandler.Translate)
		})
	})

	return r
}

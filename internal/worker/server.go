package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Server wraps the asynq worker server that processes ingest tasks.
type Server struct {
	server  *asynq.Server
	handler *IngestHandler
}

// NewServer creates a worker server consuming from Redis.
func NewServer(redisOpt asynq.RedisClientOpt, runner JobRunner, concurrency int) *Server {
	if concurrency <= 0 {
		concurrency = 4
	}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{"default": 1},
		Logger:      asynqLogger{logger: log.With().Str("component", "worker").Logger()},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			taskID, _ := asynq.GetTaskID(ctx)
			retry, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.Error().Err(err).
				Str("task_id", taskID).
				Str("task_type", task.Type()).
				Int("retry", retry).
				Int("max_retry", maxRetry).
				Msg("Task failed")
		}),
	})
	return &Server{server: server, handler: NewIngestHandler(runner)}
}

// Start begins processing tasks in the background.
func (s *Server) Start() error {
	mux := asynq.NewServeMux()
	mux.Handle(TypeIngestCSV, s.handler)

	log.Info().Msg("Worker server starting...")
	if err := s.server.Start(mux); err != nil {
		return fmt.Errorf("could not start worker server: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight tasks and stops the server.
func (s *Server) Shutdown() {
	log.Info().Msg("Shutting down worker server...")
	s.server.Shutdown()
}

// asynqLogger routes asynq's logs into zerolog.
type asynqLogger struct {
	logger zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }

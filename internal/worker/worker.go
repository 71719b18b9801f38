package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/mhalushka/rolodex/internal/config"
)

// Mailer delivers confirmation emails. Implemented by mailer.Client.
type Mailer interface {
	SendConfirmation(ctx context.Context, to, confirmLink string) error
}

// TokenIssuer mints email confirmation tokens. Implemented by auth.EmailTokens.
type TokenIssuer interface {
	Issue(email string) (string, error)
}

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

// Implement asynq.Logger interface methods
func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Run starts the Asynq worker server and blocks until shutdown signal.
// Use this for standalone worker mode.
func Run(cfg *config.Config, mail Mailer, tokens TokenIssuer) error {
	srv, mux, err := newServer(cfg, mail, tokens)
	if err != nil {
		return err
	}

	// Run blocks and handles its own signal interception
	return srv.Run(mux)
}

// Start starts the Asynq worker in non-blocking mode and returns a stop function.
// Use this for embedded mode so the caller can coordinate shutdown.
func Start(cfg *config.Config, mail Mailer, tokens TokenIssuer) (stop func(), err error) {
	srv, mux, err := newServer(cfg, mail, tokens)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, mail Mailer, tokens TokenIssuer) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     5,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSendConfirmationEmail, handleSendConfirmationEmail(logger, cfg.PublicBaseURL, mail, tokens))

	logger.Info("Worker starting", "concurrency", 5, "redis", cfg.RedisURL)
	return srv, mux, nil
}

// handleSendConfirmationEmail mints a confirmation token for the address in the
// payload, composes the confirmation link and hands it to the mailer.
func handleSendConfirmationEmail(logger *slog.Logger, publicBaseURL string, mail Mailer, tokens TokenIssuer) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload confirmationEmailPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			// Invalid payload - don't retry
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		token, err := tokens.Issue(payload.Email)
		if err != nil {
			// Signing is deterministic, a failure here won't heal on retry
			logger.Error(
				"Failed to issue confirmation token",
				"email", payload.Email,
				"error", err.Error(),
			)
			return fmt.Errorf("failed to issue confirmation token: %w", asynq.SkipRetry)
		}

		confirmLink := fmt.Sprintf("%s/auth/confirmed_email/%s", strings.TrimRight(publicBaseURL, "/"), token)

		if err := mail.SendConfirmation(ctx, payload.Email, confirmLink); err != nil {
			// Relay may be temporarily down - retryable
			logger.Error(
				"Failed to send confirmation email",
				"email", payload.Email,
				"error", err.Error(),
			)
			return fmt.Errorf("failed to send confirmation email: %w", err)
		}

		logger.Info("Confirmation email sent", "email", payload.Email)
		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)

		// Check if this is the final failure (task will move to dead letter queue)
		if retried >= maxRetry {
			logger.Error(
				"Task moved to dead letter queue (all retries exhausted)",
				"task_type", task.Type(),
				"payload", string(task.Payload()),
			)
		}
	}
}

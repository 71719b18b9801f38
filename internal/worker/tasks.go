package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskSendConfirmationEmail = "email:send_confirmation"
)

type confirmationEmailPayload struct {
	Email string `json:"email"`
}

// Enqueuer pushes background tasks onto the Redis-backed queue. The HTTP
// handlers hold one and never talk to Asynq directly.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer creates an Enqueuer connected to the given Redis URL.
func NewEnqueuer(redisURL string) (*Enqueuer, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	return &Enqueuer{client: asynq.NewClient(opt)}, nil
}

// Close closes the Asynq client connection gracefully.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// EnqueueConfirmationEmail enqueues a confirmation email for the given address.
// The task will be processed by the worker with a 1-minute timeout, retry up
// to 3 times, and retain for 24 hours after completion.
func (e *Enqueuer) EnqueueConfirmationEmail(ctx context.Context, email string) error {
	payload, err := json.Marshal(confirmationEmailPayload{Email: email})
	if err != nil {
		return err
	}

	task := asynq.NewTask(
		TaskSendConfirmationEmail,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
		asynq.Retention(24*time.Hour),
	)

	_, err = e.client.EnqueueContext(ctx, task)
	return err
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	sends    int
	lastTo   string
	lastLink string
	err      error
}

func (f *fakeMailer) SendConfirmation(ctx context.Context, to, confirmLink string) error {
	f.sends++
	f.lastTo = to
	f.lastLink = confirmLink
	return f.err
}

type fakeTokenIssuer struct {
	token string
	err   error
}

func (f *fakeTokenIssuer) Issue(email string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func confirmationTask(t *testing.T, email string) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(confirmationEmailPayload{Email: email})
	require.NoError(t, err)
	return asynq.NewTask(TaskSendConfirmationEmail, payload)
}

func TestHandleSendConfirmationEmail(t *testing.T) {
	mail := &fakeMailer{}
	tokens := &fakeTokenIssuer{token: "tok-123"}
	handler := handleSendConfirmationEmail(discardLogger(), "http://localhost:8080", mail, tokens)

	err := handler(context.Background(), confirmationTask(t, "amelia@example.com"))
	require.NoError(t, err)
	require.Equal(t, 1, mail.sends)
	require.Equal(t, "amelia@example.com", mail.lastTo)
	require.Equal(t, "http://localhost:8080/auth/confirmed_email/tok-123", mail.lastLink)
}

func TestHandleSendConfirmationEmailTrimsBaseURL(t *testing.T) {
	mail := &fakeMailer{}
	tokens := &fakeTokenIssuer{token: "tok-123"}
	handler := handleSendConfirmationEmail(discardLogger(), "http://localhost:8080/", mail, tokens)

	err := handler(context.Background(), confirmationTask(t, "amelia@example.com"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/auth/confirmed_email/tok-123", mail.lastLink)
}

func TestHandleSendConfirmationEmailBadPayload(t *testing.T) {
	mail := &fakeMailer{}
	tokens := &fakeTokenIssuer{token: "tok-123"}
	handler := handleSendConfirmationEmail(discardLogger(), "http://localhost:8080", mail, tokens)

	err := handler(context.Background(), asynq.NewTask(TaskSendConfirmationEmail, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Zero(t, mail.sends)
}

func TestHandleSendConfirmationEmailTokenFailure(t *testing.T) {
	mail := &fakeMailer{}
	tokens := &fakeTokenIssuer{err: errors.New("empty secret")}
	handler := handleSendConfirmationEmail(discardLogger(), "http://localhost:8080", mail, tokens)

	err := handler(context.Background(), confirmationTask(t, "amelia@example.com"))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Zero(t, mail.sends)
}

func TestHandleSendConfirmationEmailRelayFailureRetries(t *testing.T) {
	mail := &fakeMailer{err: errors.New("relay down")}
	tokens := &fakeTokenIssuer{token: "tok-123"}
	handler := handleSendConfirmationEmail(discardLogger(), "http://localhost:8080", mail, tokens)

	err := handler(context.Background(), confirmationTask(t, "amelia@example.com"))
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

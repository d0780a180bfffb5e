package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"umpire-rules-rag/internal/models"
)

// Provider is a chat-style language model
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []models.Message) (models.Completion, error)
}

// TransientError wraps a provider failure that is worth retrying
// (rate limits, server errors, network timeouts)
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err may succeed on retry
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// retryableStatus reports whether an HTTP status code is worth retrying
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

// classify wraps err as transient when it is a network error, a per-call
// timeout or a retryable status. Cancellation is never transient.
func classify(err error, status int) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if status != 0 && retryableStatus(status) {
		return &TransientError{Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransientError{Err: err}
	}
	return err
}

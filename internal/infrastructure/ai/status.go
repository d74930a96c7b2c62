package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/doeshing/sgpt-go/internal/domain"
)

// classifyStatus maps an HTTP failure onto the retry taxonomy.
func classifyStatus(backend string, code int, body []byte) error {
	err := fmt.Errorf("HTTP %d %s: %s", code, http.StatusText(code), bytes.TrimSpace([]byte(snippet(body))))
	switch {
	case code == http.StatusTooManyRequests && bytes.Contains(body, []byte("insufficient_quota")):
		return &domain.FatalError{Backend: backend, Err: err}
	case code == http.StatusRequestTimeout,
		code == http.StatusConflict,
		code == http.StatusTooEarly,
		code == http.StatusTooManyRequests,
		code >= 500:
		return &domain.TransientError{Backend: backend, Err: err}
	default:
		return &domain.FatalError{Backend: backend, Err: err}
	}
}

// classifyTransport labels errors from the HTTP round trip or body read.
// Cancellation of ctx is passed through untouched.
func classifyTransport(ctx context.Context, backend string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &domain.TransientError{Backend: backend, Err: err}
}

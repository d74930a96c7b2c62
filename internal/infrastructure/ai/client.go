// Package ai talks to language-model backends.
//
// Each provider implements ports.Backend and streams chunks over a channel.
// Client wraps a backend with the retry, inactivity-timeout and cancellation
// policy shared by every provider.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/ports"
)

var errIdleTimeout = errors.New("no data received before the request timeout")

// ClientOptions tunes the retry policy. Zero values select the defaults from
// the domain package.
type ClientOptions struct {
	MaxAttempts int
	IdleTimeout time.Duration
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Client applies retries and timeouts around a Backend.
type Client struct {
	backend ports.Backend
	opts    ClientOptions
	logger  ports.Logger
}

// NewClient wraps backend.
func NewClient(backend ports.Backend, opts ClientOptions, logger ports.Logger) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = domain.DefaultMaxAttempts
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = domain.DefaultRequestTimeout
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = domain.DefaultRetryBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = domain.DefaultRetryMaxDelay
	}
	return &Client{backend: backend, opts: opts, logger: logger}
}

// Send streams the response to req. The channel yields deltas followed by
// exactly one chunk with Done or Err set, then closes. If ctx ends while the
// consumer is not reading, the terminal chunk may be dropped; consumers
// should consult ctx.Err() when the channel closes without one.
//
// Transient failures are retried with exponential backoff only while no
// delta has been forwarded. A failure after the first delta, an exhausted
// attempt budget, or a fatal backend error ends the stream with a
// *domain.FatalError. Cancellation ends it with ctx.Err().
func (c *Client) Send(ctx context.Context, req domain.PromptRequest) <-chan domain.Chunk {
	out := make(chan domain.Chunk)
	go c.run(ctx, req, out)
	return out
}

func (c *Client) run(ctx context.Context, req domain.PromptRequest, out chan<- domain.Chunk) {
	defer close(out)
	name := c.backend.Name()

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.backoff(attempt - 1)
			c.logger.Warn("retrying model request", map[string]interface{}{
				"backend": name,
				"attempt": attempt,
				"delay":   delay.String(),
				"error":   lastErr.Error(),
			})
			if !sleep(ctx, delay) {
				send(ctx, out, domain.Chunk{Err: ctx.Err()})
				return
			}
		}

		final, forwarded, err := c.attempt(ctx, req, out)
		if err == nil {
			c.logger.Debug("model response complete", map[string]interface{}{
				"backend": name,
				"attempt": attempt,
				"chars":   len(final),
			})
			send(ctx, out, domain.Chunk{Done: true, Final: final})
			return
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			send(ctx, out, domain.Chunk{Err: ctxErr})
			return
		}
		if !domain.IsTransient(err) || forwarded > 0 {
			send(ctx, out, domain.Chunk{Err: fatal(name, attempt, err)})
			return
		}
		lastErr = err
	}
	c.logger.Error("model request failed", lastErr, map[string]interface{}{
		"backend":  name,
		"attempts": c.opts.MaxAttempts,
	})
	send(ctx, out, domain.Chunk{Err: &domain.FatalError{Backend: name, Attempts: c.opts.MaxAttempts, Err: lastErr}})
}

// attempt runs one backend stream, forwarding deltas. It returns the full
// text and the number of deltas forwarded.
func (c *Client) attempt(ctx context.Context, req domain.PromptRequest, out chan<- domain.Chunk) (string, int, error) {
	attemptCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	watchdog := time.AfterFunc(c.opts.IdleTimeout, func() { cancel(errIdleTimeout) })
	defer watchdog.Stop()

	stream, err := c.backend.Stream(attemptCtx, req)
	if err != nil {
		return "", 0, c.failure(ctx, attemptCtx, err)
	}

	var full strings.Builder
	forwarded := 0
	for {
		select {
		case chunk, ok := <-stream:
			if !ok {
				return "", forwarded, c.failure(ctx, attemptCtx, &domain.TransientError{Backend: c.backend.Name(), Err: errIncompleteStream})
			}
			watchdog.Reset(c.opts.IdleTimeout)
			if chunk.Err != nil {
				return "", forwarded, c.failure(ctx, attemptCtx, chunk.Err)
			}
			if chunk.Delta != "" {
				full.WriteString(chunk.Delta)
				if !send(ctx, out, domain.Chunk{Delta: chunk.Delta}) {
					return "", forwarded, ctx.Err()
				}
				forwarded++
			}
			if chunk.Done {
				if chunk.Final != "" {
					return chunk.Final, forwarded, nil
				}
				return full.String(), forwarded, nil
			}
		case <-attemptCtx.Done():
			return "", forwarded, c.failure(ctx, attemptCtx, context.Cause(attemptCtx))
		}
	}
}

// failure attributes an attempt error: parent cancellation wins, then the
// idle watchdog, then the backend's own classification.
func (c *Client) failure(parent, attemptCtx context.Context, err error) error {
	if ctxErr := parent.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(context.Cause(attemptCtx), errIdleTimeout) {
		return &domain.TransientError{Backend: c.backend.Name(), Err: fmt.Errorf("%w (%s)", errIdleTimeout, c.opts.IdleTimeout)}
	}
	return err
}

func (c *Client) backoff(retry int) time.Duration {
	delay := c.opts.BaseDelay
	for i := 1; i < retry; i++ {
		delay *= 2
		if delay >= c.opts.MaxDelay {
			return c.opts.MaxDelay
		}
	}
	return delay
}

func fatal(backend string, attempts int, err error) error {
	var fatalErr *domain.FatalError
	if errors.As(err, &fatalErr) {
		return err
	}
	var transient *domain.TransientError
	if errors.As(err, &transient) {
		err = transient.Err
	}
	return &domain.FatalError{Backend: backend, Attempts: attempts, Err: err}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

var _ ports.ModelClient = (*Client)(nil)

package ai

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/pkg/logger"
)

// The genai SDK pulls in opencensus, which starts a stats worker at init.
var ignoreSDKWorkers = goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start")

// scriptedBackend plays one script entry per Stream call.
type scriptedBackend struct {
	calls   atomic.Int32
	scripts []func(ctx context.Context) (<-chan domain.Chunk, error)
}

func (s *scriptedBackend) Name() string { return "scripted" }

func (s *scriptedBackend) Stream(ctx context.Context, _ domain.PromptRequest) (<-chan domain.Chunk, error) {
	n := int(s.calls.Add(1)) - 1
	if n >= len(s.scripts) {
		n = len(s.scripts) - 1
	}
	return s.scripts[n](ctx)
}

func emits(chunks ...domain.Chunk) func(ctx context.Context) (<-chan domain.Chunk, error) {
	return func(ctx context.Context) (<-chan domain.Chunk, error) {
		out := make(chan domain.Chunk)
		go func() {
			defer close(out)
			for _, chunk := range chunks {
				if !send(ctx, out, chunk) {
					return
				}
			}
		}()
		return out, nil
	}
}

func fails(err error) func(ctx context.Context) (<-chan domain.Chunk, error) {
	return func(context.Context) (<-chan domain.Chunk, error) { return nil, err }
}

// stalls accepts the request and then sends nothing until cancelled.
func stalls(ctx context.Context) (<-chan domain.Chunk, error) {
	out := make(chan domain.Chunk)
	go func() {
		defer close(out)
		<-ctx.Done()
	}()
	return out, nil
}

func fastOptions(attempts int) ClientOptions {
	return ClientOptions{MaxAttempts: attempts, IdleTimeout: time.Second, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func collect(t *testing.T, ch <-chan domain.Chunk) ([]string, domain.Chunk) {
	t.Helper()
	var deltas []string
	var last domain.Chunk
	for chunk := range ch {
		if chunk.Done || chunk.Err != nil {
			last = chunk
			continue
		}
		deltas = append(deltas, chunk.Delta)
	}
	return deltas, last
}

func transient(msg string) error {
	return &domain.TransientError{Backend: "scripted", Err: errors.New(msg)}
}

func TestClientStreamsDeltasThenDone(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreSDKWorkers)
	backend := &scriptedBackend{scripts: []func(context.Context) (<-chan domain.Chunk, error){
		emits(domain.Chunk{Delta: "ls "}, domain.Chunk{Delta: "-la"}, domain.Chunk{Done: true}),
	}}
	client := NewClient(backend, fastOptions(3), logger.NewNop())

	deltas, last := collect(t, client.Send(context.Background(), domain.PromptRequest{}))
	assert.Equal(t, []string{"ls ", "-la"}, deltas)
	assert.True(t, last.Done)
	assert.Equal(t, "ls -la", last.Final)
}

func TestClientRetriesTransientBeforeFirstDelta(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreSDKWorkers)
	backend := &scriptedBackend{scripts: []func(context.Context) (<-chan domain.Chunk, error){
		fails(transient("503")),
		emits(domain.Chunk{Err: transient("connection reset")}),
		emits(domain.Chunk{Delta: "ok"}, domain.Chunk{Done: true, Final: "ok"}),
	}}
	client := NewClient(backend, fastOptions(3), logger.NewNop())

	deltas, last := collect(t, client.Send(context.Background(), domain.PromptRequest{}))
	require.True(t, last.Done, "last chunk: %+v", last)
	assert.Equal(t, []string{"ok"}, deltas)
	assert.Equal(t, int32(3), backend.calls.Load())
}

func TestClientGivesUpAfterMaxAttempts(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreSDKWorkers)
	backend := &scriptedBackend{scripts: []func(context.Context) (<-chan domain.Chunk, error){
		fails(transient("429")),
	}}
	client := NewClient(backend, fastOptions(3), logger.NewNop())

	_, last := collect(t, client.Send(context.Background(), domain.PromptRequest{}))
	var fatalErr *domain.FatalError
	require.True(t, errors.As(last.Err, &fatalErr), "got %v", last.Err)
	assert.Equal(t, 3, fatalErr.Attempts)
	assert.True(t, domain.IsTransient(fatalErr.Err))
	assert.Equal(t, int32(3), backend.calls.Load())
}

func TestClientDoesNotRetryFatal(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreSDKWorkers)
	backend := &scriptedBackend{scripts: []func(context.Context) (<-chan domain.Chunk, error){
		fails(&domain.FatalError{Backend: "scripted", Err: errors.New("401")}),
	}}
	client := NewClient(backend, fastOptions(3), logger.NewNop())

	_, last := collect(t, client.Send(context.Background(), domain.PromptRequest{}))
	assert.True(t, domain.IsFatal(last.Err))
	assert.Equal(t, int32(1), backend.calls.Load())
}

func TestClientDoesNotRetryAfterForwarding(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreSDKWorkers)
	backend := &scriptedBackend{scripts: []func(context.Context) (<-chan domain.Chunk, error){
		emits(domain.Chunk{Delta: "partial"}, domain.Chunk{Err: transient("reset")}),
	}}
	client := NewClient(backend, fastOptions(3), logger.NewNop())

	deltas, last := collect(t, client.Send(context.Background(), domain.PromptRequest{}))
	assert.Equal(t, []string{"partial"}, deltas)
	assert.True(t, domain.IsFatal(last.Err))
	assert.Equal(t, int32(1), backend.calls.Load())
}

func TestClientIdleTimeoutIsTransient(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreSDKWorkers)
	backend := &scriptedBackend{scripts: []func(context.Context) (<-chan domain.Chunk, error){stalls}}
	opts := fastOptions(2)
	opts.IdleTimeout = 20 * time.Millisecond
	client := NewClient(backend, opts, logger.NewNop())

	_, last := collect(t, client.Send(context.Background(), domain.PromptRequest{}))
	var fatalErr *domain.FatalError
	require.True(t, errors.As(last.Err, &fatalErr), "got %v", last.Err)
	assert.Equal(t, 2, fatalErr.Attempts)
	assert.ErrorIs(t, last.Err, errIdleTimeout)
}

func TestClientCancellationStopsStream(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreSDKWorkers)
	backend := &scriptedBackend{scripts: []func(context.Context) (<-chan domain.Chunk, error){
		func(ctx context.Context) (<-chan domain.Chunk, error) {
			out := make(chan domain.Chunk)
			go func() {
				defer close(out)
				if !send(ctx, out, domain.Chunk{Delta: "first"}) {
					return
				}
				<-ctx.Done()
			}()
			return out, nil
		},
	}}
	client := NewClient(backend, fastOptions(3), logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	stream := client.Send(ctx, domain.PromptRequest{})
	first := <-stream
	require.Equal(t, "first", first.Delta)
	cancel()

	for chunk := range stream {
		assert.False(t, chunk.Done, "no completion after cancel")
		if chunk.Err != nil {
			assert.ErrorIs(t, chunk.Err, context.Canceled)
		}
	}
	assert.Equal(t, int32(1), backend.calls.Load())
}

func TestBackoffIsCapped(t *testing.T) {
	client := NewClient(&scriptedBackend{}, ClientOptions{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}, logger.NewNop())
	assert.Equal(t, 100*time.Millisecond, client.backoff(1))
	assert.Equal(t, 200*time.Millisecond, client.backoff(2))
	assert.Equal(t, 300*time.Millisecond, client.backoff(3))
	assert.Equal(t, 300*time.Millisecond, client.backoff(10))
}

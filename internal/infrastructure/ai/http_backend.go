package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/ports"
)

// errIncompleteStream is reported when the server closes the body before its
// end-of-stream marker.
var errIncompleteStream = errors.New("stream ended before completion")

// httpBackend streams completions from a server-sent-events endpoint. The
// wire format lives in the adapter.
type httpBackend struct {
	name       string
	model      domain.ModelDefinition
	httpClient *http.Client
	adapter    providerAdapter
}

type providerAdapter struct {
	defaultEndpoint string
	buildRequest    func(domain.PromptRequest) ([]byte, error)
	setHeaders      func(*http.Request, domain.ModelDefinition) error
	// parseEvent returns the text delta carried by one event and whether the
	// stream is complete.
	parseEvent func(sseEvent) (delta string, done bool, err error)
}

func newHTTPBackend(name string, model domain.ModelDefinition, client *http.Client, adapter providerAdapter) ports.Backend {
	return &httpBackend{
		name:       name,
		model:      model,
		httpClient: client,
		adapter:    adapter,
	}
}

func (b *httpBackend) Name() string {
	return b.name
}

func (b *httpBackend) Stream(ctx context.Context, req domain.PromptRequest) (<-chan domain.Chunk, error) {
	body, err := b.adapter.buildRequest(req)
	if err != nil {
		return nil, &domain.FatalError{Backend: b.name, Err: fmt.Errorf("build request: %w", err)}
	}

	endpoint := defaultString(b.model.Endpoint, b.adapter.defaultEndpoint)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.FatalError{Backend: b.name, Err: fmt.Errorf("create HTTP request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if err := b.adapter.setHeaders(httpReq, b.model); err != nil {
		return nil, &domain.FatalError{Backend: b.name, Err: err}
	}

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(ctx, b.name, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, classifyStatus(b.name, resp.StatusCode, raw)
	}

	out := make(chan domain.Chunk)
	go b.pump(ctx, resp.Body, out)
	return out, nil
}

func (b *httpBackend) pump(ctx context.Context, body io.ReadCloser, out chan<- domain.Chunk) {
	defer close(out)
	defer body.Close()

	var (
		full     strings.Builder
		done     bool
		parseErr error
		gone     bool
	)
	readErr := readSSE(body, func(ev sseEvent) bool {
		delta, finished, err := b.adapter.parseEvent(ev)
		if err != nil {
			parseErr = err
			return false
		}
		if delta != "" {
			full.WriteString(delta)
			if !send(ctx, out, domain.Chunk{Delta: delta}) {
				gone = true
				return false
			}
		}
		done = finished
		return !finished
	})

	var final domain.Chunk
	switch {
	case gone:
		return
	case parseErr != nil:
		final = domain.Chunk{Err: parseErr}
	case readErr != nil:
		final = domain.Chunk{Err: classifyTransport(ctx, b.name, readErr)}
	case !done:
		final = domain.Chunk{Err: &domain.TransientError{Backend: b.name, Err: errIncompleteStream}}
	default:
		final = domain.Chunk{Done: true, Final: full.String()}
	}
	send(ctx, out, final)
}

// send delivers chunk unless ctx ends first.
func send(ctx context.Context, out chan<- domain.Chunk, chunk domain.Chunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// Package query turns one user question into a streamed model answer,
// consulting the response cache and recording the exchange in the chat
// session.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doeshing/sgpt-go/internal/application/prompt"
	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/ports"
)

var errNoCompletion = errors.New("model stream closed without completion")

// Service orchestrates the query lifecycle end-to-end.
type Service struct {
	Config   domain.RunConfig
	Roles    ports.RoleRepository
	Builder  *prompt.Builder
	Cache    ports.ResponseCache
	Client   ports.ModelClient
	Sessions ports.SessionStore
	Logger   ports.Logger
	Now      func() time.Time
}

// Ask answers req, streaming text into sink as it arrives. The cache and the
// session are written only after a complete answer; a failed or cancelled
// request leaves both untouched.
func (s *Service) Ask(req domain.AskRequest, sink ports.StreamSink) (domain.Answer, error) {
	if s.Roles == nil || s.Builder == nil || s.Client == nil || s.Logger == nil {
		return domain.Answer{}, errors.New("query.Service dependencies not satisfied")
	}
	if req.SessionID != "" && s.Sessions == nil {
		return domain.Answer{}, errors.New("chat sessions are not available")
	}

	ctx := req.Context
	if ctx == nil {
		ctx = context.Background()
	}

	roleName := req.RoleName
	if roleName == "" {
		roleName = domain.RoleDefault
	}
	role, err := s.Roles.Get(roleName)
	if err != nil {
		return domain.Answer{}, err
	}

	var history []domain.Turn
	if req.SessionID != "" {
		history, err = s.Sessions.Load(ctx, req.SessionID)
		if err != nil {
			return domain.Answer{}, fmt.Errorf("load session %s: %w", req.SessionID, err)
		}
	}

	promptReq, err := s.Builder.Build(role, req.Text, req.SessionID, history, s.Config)
	if err != nil {
		return domain.Answer{}, err
	}
	key := promptReq.Fingerprint()
	useCache := s.Config.Caching && !req.NoCache && s.Cache != nil

	if useCache {
		entry, ok, err := s.Cache.Get(key)
		if err != nil {
			s.Logger.Warn("cache lookup failed", map[string]interface{}{"error": err.Error()})
		}
		if ok {
			s.Logger.Debug("cache hit", map[string]interface{}{"key": key[:12], "role": role.Name})
			sink.WriteChunk(entry.Response)
			sink.Done()
			answer := domain.Answer{Request: promptReq, Text: entry.Response, FromCache: true}
			s.recordTurn(ctx, answer)
			return answer, nil
		}
	}

	s.Logger.Info("sending prompt", map[string]interface{}{
		"role":     role.Name,
		"model":    promptReq.Model.Name,
		"messages": len(promptReq.Messages),
		"session":  req.SessionID,
	})
	text, err := s.consume(ctx, s.Client.Send(ctx, promptReq), sink)
	if err != nil {
		return domain.Answer{}, err
	}

	answer := domain.Answer{Request: promptReq, Text: text}
	if useCache {
		entry := domain.CacheEntry{
			Key:       key,
			Response:  text,
			Role:      role.Name,
			Model:     promptReq.Model.Name,
			CreatedAt: s.now(),
		}
		if err := s.Cache.Put(entry); err != nil {
			s.Logger.Warn("cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	s.recordTurn(ctx, answer)
	return answer, nil
}

// consume forwards deltas to sink until the stream completes.
func (s *Service) consume(ctx context.Context, stream <-chan domain.Chunk, sink ports.StreamSink) (string, error) {
	for chunk := range stream {
		switch {
		case chunk.Err != nil:
			sink.Done()
			return "", chunk.Err
		case chunk.Done:
			sink.Done()
			return chunk.Final, nil
		default:
			sink.WriteChunk(chunk.Delta)
		}
	}
	sink.Done()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", errNoCompletion
}

func (s *Service) recordTurn(ctx context.Context, answer domain.Answer) {
	req := answer.Request
	if req.SessionID == "" {
		return
	}
	turn := domain.Turn{
		Role:         req.Role.Name,
		UserText:     req.UserText,
		ResponseText: answer.Text,
		Timestamp:    s.now(),
	}
	if err := s.Sessions.Append(ctx, req.SessionID, turn); err != nil {
		s.Logger.Error("session append failed", err, map[string]interface{}{"session": req.SessionID})
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Describer explains command candidates with the describe role in the
// candidate's own chat session.
type Describer struct {
	Service *Service
	Sink    ports.StreamSink
}

// Describe implements ports.Describer.
func (d Describer) Describe(ctx context.Context, candidate domain.CommandCandidate) error {
	_, err := d.Service.Ask(domain.AskRequest{
		Context:   ctx,
		RoleName:  domain.RoleDescribeShell,
		Text:      candidate.Text,
		SessionID: candidate.Origin.SessionID,
	}, d.Sink)
	return err
}

var _ ports.Describer = Describer{}

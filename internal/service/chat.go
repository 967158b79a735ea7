// Package service provides business logic for the portfolio API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/portfolio-site/portfolio-api/internal/llm"
	"github.com/portfolio-site/portfolio-api/internal/model"
	"github.com/portfolio-site/portfolio-api/internal/prompt"
	"github.com/portfolio-site/portfolio-api/internal/store"
	"github.com/portfolio-site/portfolio-api/pkg/logger"
	"github.com/portfolio-site/portfolio-api/pkg/metrics"
)

var tracer = otel.Tracer("github.com/portfolio-site/portfolio-api/internal/service")

var (
	// ErrInvalidRequest is returned for a request with nothing to answer.
	ErrInvalidRequest = errors.New("invalid chat request")

	// ErrClientDisconnected is returned when the caller went away before or during the stream.
	ErrClientDisconnected = errors.New("client disconnected")

	// ErrUpstream wraps failures reported by the LLM provider.
	ErrUpstream = errors.New("upstream generation failed")
)

// StreamWriter receives the relayed stream. WriteDelta is called once per non-empty delta,
// in order; Finish is called once after the provider completes successfully.
type StreamWriter interface {
	WriteDelta(delta string, index int) error
	Finish(reply *Reply) error
}

// Reply summarizes a completed stream.
type Reply struct {
	Content      string
	FinishReason string
	Model        string
	Locale       prompt.Locale
	TokensIn     int
	TokensOut    int
	Steps        int
}

// ChatOptions tunes generation and persistence.
type ChatOptions struct {
	MaxSteps       int
	MaxTokens      int
	PersistTimeout time.Duration
}

// ChatService relays chat requests to the LLM and records both sides of the exchange.
type ChatService struct {
	store   store.Store
	llm     llm.Client
	prompts *prompt.Builder
	opts    ChatOptions
	logger  *logger.Logger

	pending sync.WaitGroup
}

// NewChatService creates a new chat service.
func NewChatService(st store.Store, client llm.Client, prompts *prompt.Builder, opts ChatOptions, log *logger.Logger) *ChatService {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = llm.DefaultMaxSteps
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 10 * time.Second
	}

	return &ChatService{
		store:   st,
		llm:     client,
		prompts: prompts,
		opts:    opts,
		logger:  log.Component("relay"),
	}
}

// Stream answers req, relaying every delta to w as it arrives.
//
// The newest user message is persisted before the provider is called. The assistant
// reply is persisted in the background after the stream completes, and only when it
// produced text. Nothing is persisted when ctx is already done on entry.
func (s *ChatService) Stream(ctx context.Context, req *model.ChatRequest, w StreamWriter) (*Reply, error) {
	locale := prompt.ParseLocale(req.Locale)

	ctx, span := tracer.Start(ctx, "chat.stream")
	defer span.End()
	span.SetAttributes(
		attribute.String("chat.locale", string(locale)),
		attribute.Int("chat.messages", len(req.Messages)),
		attribute.String("llm.provider", s.llm.Name()),
		attribute.String("llm.model", s.llm.Model()),
	)

	if ctx.Err() != nil {
		metrics.RecordChatRequest("cancelled", string(locale))
		span.SetStatus(codes.Error, "client disconnected")
		return nil, ErrClientDisconnected
	}

	messages := make([]llm.ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		text := m.Text()
		// Providers reject empty turns, which interrupted replies leave in the history.
		if m.Role == model.RoleSystem || text == "" {
			continue
		}
		messages = append(messages, llm.ChatMessage{Role: string(m.Role), Content: text})
	}
	if len(messages) == 0 {
		metrics.RecordChatRequest("invalid", string(locale))
		return nil, ErrInvalidRequest
	}

	if last, ok := req.LastUserMessage(); ok {
		s.persist(ctx, model.RoleUser, last.Text())
	}

	var acc strings.Builder
	start := time.Now()

	resp, err := s.llm.CompleteStream(ctx, &llm.CompletionRequest{
		SystemPrompts: []string{s.prompts.Build(string(locale))},
		Messages:      messages,
		MaxSteps:      s.opts.MaxSteps,
		MaxTokens:     s.opts.MaxTokens,
	}, func(token string, index int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.WriteDelta(token, index); err != nil {
			return fmt.Errorf("%w: %v", ErrClientDisconnected, err)
		}
		acc.WriteString(token)
		return nil
	})
	elapsed := time.Since(start)
	if err == nil && ctx.Err() != nil {
		// The caller left after the last delta; the reply was never fully delivered.
		err = ctx.Err()
	}

	if err != nil {
		span.RecordError(err)
		if ctx.Err() != nil || errors.Is(err, ErrClientDisconnected) || errors.Is(err, context.Canceled) {
			metrics.RecordChatRequest("cancelled", string(locale))
			metrics.RecordLLMStream(s.streamStats("cancelled", elapsed))
			span.SetStatus(codes.Error, "client disconnected")
			s.logger.Info("Chat stream abandoned by client",
				zap.Int("bytes_relayed", acc.Len()),
				zap.Error(err),
			)
			if errors.Is(err, ErrClientDisconnected) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrClientDisconnected, err)
		}

		metrics.RecordChatRequest("error", string(locale))
		metrics.RecordLLMStream(s.streamStats("error", elapsed))
		span.SetStatus(codes.Error, "upstream error")
		s.logger.Error("Chat stream failed",
			zap.String("provider", s.llm.Name()),
			zap.String("model", s.llm.Model()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	reply := &Reply{
		Content:      acc.String(),
		FinishReason: resp.StopReason,
		Model:        resp.Model,
		Locale:       locale,
		TokensIn:     resp.TokensIn,
		TokensOut:    resp.TokensOut,
		Steps:        resp.Steps,
	}

	stats := s.streamStats("success", elapsed)
	stats.Steps, stats.TokensIn, stats.TokensOut = resp.Steps, resp.TokensIn, resp.TokensOut
	metrics.RecordLLMStream(stats)
	metrics.RecordChatRequest("completed", string(locale))
	span.SetAttributes(
		attribute.Int("llm.steps", resp.Steps),
		attribute.Int("llm.tokens_in", resp.TokensIn),
		attribute.Int("llm.tokens_out", resp.TokensOut),
	)

	if err := w.Finish(reply); err != nil {
		s.logger.Warn("Failed to finish chat stream", zap.Error(err))
	}

	if reply.Content != "" {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			s.persist(ctx, model.RoleAssistant, reply.Content)
		}()
	}

	return reply, nil
}

// persist appends a turn on a context detached from the caller's cancellation.
// Failures are logged and never surface to the caller.
func (s *ChatService) persist(ctx context.Context, role model.Role, content string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PersistTimeout)
	defer cancel()

	turn := &model.ChatTurn{Role: role, Content: content}
	start := time.Now()
	err := s.store.Append(ctx, turn)
	metrics.RecordStoreAppend(string(role), err, time.Since(start))
	if err != nil {
		s.logger.Error("Failed to persist chat turn",
			zap.String("role", string(role)),
			zap.Int("content_length", len(content)),
			zap.Error(err),
		)
	}
}

func (s *ChatService) streamStats(status string, d time.Duration) metrics.LLMStream {
	return metrics.LLMStream{
		Provider: s.llm.Name(),
		Model:    s.llm.Model(),
		Status:   status,
		Duration: d,
	}
}

// Wait blocks until background persistence has drained or ctx is done.
func (s *ChatService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListTurns returns the most recent persisted turns, newest first.
func (s *ChatService) ListTurns(ctx context.Context, limit int) (*model.ListTurnsResponse, error) {
	turns, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	if turns == nil {
		turns = []model.ChatTurn{}
	}
	return &model.ListTurnsResponse{Turns: turns, Count: len(turns)}, nil
}

// Ready reports whether the turn store is reachable.
func (s *ChatService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

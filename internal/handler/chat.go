package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/portfolio-site/portfolio-api/internal/middleware"
	"github.com/portfolio-site/portfolio-api/internal/model"
	"github.com/portfolio-site/portfolio-api/internal/service"
	"github.com/portfolio-site/portfolio-api/pkg/logger"
	"github.com/portfolio-site/portfolio-api/pkg/metrics"
)

// StatusClientClosedRequest is the non-standard status reported when the caller went away.
const StatusClientClosedRequest = 499

const maxChatBodyBytes = 8 << 20

const chatFailureMessage = "Failed to process chat request"

// ChatHandler handles the streaming chat endpoint.
type ChatHandler struct {
	chatService *service.ChatService
	logger      *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chatSvc *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatSvc,
		logger:      log,
	}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.WithCorrelation(middleware.GetCorrelationID(ctx))

	if ctx.Err() != nil {
		w.WriteHeader(StatusClientClosedRequest)
		return
	}

	var req model.ChatRequest
	if err := decodeJSON(w, r, maxChatBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessages(req.Messages); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateLocale(req.Locale); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Locale = resolveLocale(r, req.Locale)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sw := &sseWriter{w: w, flusher: flusher}
	defer sw.close()

	reply, err := h.chatService.Stream(ctx, &req, sw)
	switch {
	case err == nil:
		log.Debug("chat stream completed",
			zap.String("locale", string(reply.Locale)),
			zap.String("finish_reason", reply.FinishReason),
			zap.Int("steps", reply.Steps),
			zap.Int("reply_bytes", len(reply.Content)),
		)

	case errors.Is(err, service.ErrClientDisconnected):
		if !sw.started {
			w.WriteHeader(StatusClientClosedRequest)
		}

	case errors.Is(err, service.ErrInvalidRequest):
		if !sw.started {
			writeError(w, http.StatusBadRequest, "messages must include a user or assistant turn")
		}

	default:
		log.Error("chat request failed", zap.Bool("stream_started", sw.started), zap.Error(err))
		if !sw.started {
			writeError(w, http.StatusInternalServerError, chatFailureMessage)
			return
		}
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{Type: "error", Error: chatFailureMessage})
	}
}

// resolveLocale picks the body locale, then X-Locale, then the primary Accept-Language tag.
func resolveLocale(r *http.Request, bodyLocale string) string {
	if bodyLocale != "" {
		return bodyLocale
	}
	if v := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Locale"))); v != "" {
		return v
	}
	if v := r.Header.Get("Accept-Language"); v != "" {
		tag, _, _ := strings.Cut(v, ",")
		tag, _, _ = strings.Cut(tag, ";")
		tag, _, _ = strings.Cut(strings.TrimSpace(tag), "-")
		return strings.ToLower(tag)
	}
	return ""
}

// sseWriter relays the chat stream as server-sent events. Headers are sent on the first
// write so that errors raised before any content still get a plain HTTP status.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
	closed  func()
}

func (s *sseWriter) start() {
	if s.started {
		return
	}
	s.started = true

	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // Disable nginx buffering
	s.w.WriteHeader(http.StatusOK)

	s.closed = metrics.StreamOpened()
}

func (s *sseWriter) close() {
	if s.closed != nil {
		s.closed()
	}
}

func (s *sseWriter) WriteDelta(delta string, index int) error {
	s.start()
	return sendSSEEvent(s.w, s.flusher, "content", &model.ContentEvent{
		Type:  "content",
		Delta: delta,
		Index: index,
	})
}

func (s *sseWriter) Finish(reply *service.Reply) error {
	s.start()
	if err := sendSSEEvent(s.w, s.flusher, "done", &model.DoneEvent{
		Type:         "done",
		FinishReason: reply.FinishReason,
	}); err != nil {
		return err
	}
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}

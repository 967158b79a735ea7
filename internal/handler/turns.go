package handler

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/portfolio-site/portfolio-api/internal/middleware"
	"github.com/portfolio-site/portfolio-api/internal/service"
	"github.com/portfolio-site/portfolio-api/internal/store"
	"github.com/portfolio-site/portfolio-api/pkg/logger"
)

// TurnHandler serves the administrative transcript.
type TurnHandler struct {
	chatService *service.ChatService
	logger      *logger.Logger
}

// NewTurnHandler creates a new turn handler.
func NewTurnHandler(chatSvc *service.ChatService, log *logger.Logger) *TurnHandler {
	return &TurnHandler{
		chatService: chatSvc,
		logger:      log,
	}
}

// List handles GET /api/admin/chat/turns
func (h *TurnHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 || parsed > store.MaxLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(store.MaxLimit))
			return
		}
		limit = parsed
	}

	resp, err := h.chatService.ListTurns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list turns",
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to list turns")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/portfolio-site/portfolio-api/internal/leetcode"
	"github.com/portfolio-site/portfolio-api/internal/model"
	"github.com/portfolio-site/portfolio-api/pkg/logger"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// RatingFetcher looks up a LeetCode profile.
type RatingFetcher interface {
	Rating(ctx context.Context, username string) (*model.LeetCodeRating, error)
}

// LeetCodeHandler serves public LeetCode ratings.
type LeetCodeHandler struct {
	client RatingFetcher
	logger *logger.Logger
}

// NewLeetCodeHandler creates a new LeetCode handler.
func NewLeetCodeHandler(client RatingFetcher, log *logger.Logger) *LeetCodeHandler {
	return &LeetCodeHandler{client: client, logger: log}
}

// Rating handles GET /api/leetcode/{username}
func (h *LeetCodeHandler) Rating(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if !usernamePattern.MatchString(username) {
		writeError(w, http.StatusBadRequest, "Username is required")
		return
	}

	rating, err := h.client.Rating(r.Context(), username)
	if errors.Is(err, leetcode.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "User not found or API response invalid")
		return
	}
	if err != nil {
		h.logger.Warn("leetcode lookup failed", zap.String("username", username), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to fetch LeetCode rating")
		return
	}

	writeJSON(w, http.StatusOK, rating)
}

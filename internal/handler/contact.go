package handler

import (
	"net/http"

	"github.com/portfolio-site/portfolio-api/internal/middleware"
	"github.com/portfolio-site/portfolio-api/internal/model"
	"github.com/portfolio-site/portfolio-api/internal/service"
)

const maxContactBodyBytes = 1 << 20

// ContactHandler handles the contact form endpoint.
type ContactHandler struct {
	contactService *service.ContactService
}

// NewContactHandler creates a new contact handler.
func NewContactHandler(contactSvc *service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactSvc}
}

// Submit handles POST /api/contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.ContactRequest
	if err := decodeJSON(w, r, maxContactBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateContact(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.contactService.Submit(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to send your message. Please try again later.")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

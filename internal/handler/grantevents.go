package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gamaccess/gamaccess/internal/handler/dto"
	"github.com/gamaccess/gamaccess/internal/repository"
)

const (
	defaultGrantEventLimit = 100
	maxGrantEventLimit     = 500
)

// GrantEventHandler serves the audit log listing. Admin-scoped.
type GrantEventHandler struct {
	logger     *slog.Logger
	repository *repository.Repository
}

// NewGrantEventHandler creates a GrantEventHandler.
func NewGrantEventHandler(logger *slog.Logger, repo *repository.Repository) *GrantEventHandler {
	return &GrantEventHandler{
		logger:     logger,
		repository: repo,
	}
}

// ListGrantEvents handles GET /api/v1/grant-events?limit=.
func (h *GrantEventHandler) ListGrantEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultGrantEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxGrantEventLimit {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST",
				fmt.Sprintf("limit must be a positive integer no greater than %d", maxGrantEventLimit))
			return
		}
		limit = n
	}

	events, err := h.repository.ListGrantEvents(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list grant events", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list grant events")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToGrantEventListResponse(events))
}

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gamaccess/gamaccess/internal/auth"
	"github.com/gamaccess/gamaccess/internal/handler/dto"
	"github.com/gamaccess/gamaccess/internal/middleware"
	"github.com/gamaccess/gamaccess/internal/service"
)

// GrantHandler serves the access-granting endpoint.
type GrantHandler struct {
	logger  *slog.Logger
	granter *service.AccessGranter
}

// NewGrantHandler creates a GrantHandler.
func NewGrantHandler(logger *slog.Logger, granter *service.AccessGranter) *GrantHandler {
	return &GrantHandler{
		logger:  logger,
		granter: granter,
	}
}

// GrantAccess handles POST /api/v1/grant-access. The batch result is
// always 200 when processing ran; per-network failures are carried
// inside the result records, not as an HTTP error.
func (h *GrantHandler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	var req dto.GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if err := middleware.ValidateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL", err.Error())
		return
	}
	if err := middleware.ValidateNetworkCodes(req.Networks); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_NETWORK", err.Error())
		return
	}

	requestedBy := auth.KeyPrefixFromContext(r.Context())

	grants, err := h.granter.GrantBatch(r.Context(), req.Email, req.Networks, requestedBy)
	if err != nil {
		if errors.Is(err, service.ErrNoNetworks) {
			writeError(w, http.StatusBadRequest, "NO_NETWORKS",
				"No networks specified and no default networks configured")
			return
		}
		h.logger.Error("grant batch failed",
			slog.String("email", req.Email),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process grant request")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToGrantResponse(req.Email, grants))
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/gamaccess/gamaccess/internal/handler/dto"
	"github.com/gamaccess/gamaccess/internal/service"
)

// NetworkHandler serves the network listing endpoint.
type NetworkHandler struct {
	logger *slog.Logger
	lister *service.NetworkLister
}

// NewNetworkHandler creates a NetworkHandler.
func NewNetworkHandler(logger *slog.Logger, lister *service.NetworkLister) *NetworkHandler {
	return &NetworkHandler{
		logger: logger,
		lister: lister,
	}
}

// ListNetworks handles GET /api/v1/networks. ?refresh=true bypasses
// the cache.
func (h *NetworkHandler) ListNetworks(w http.ResponseWriter, r *http.Request) {
	forceRefresh := r.URL.Query().Get("refresh") == "true"

	networks, err := h.lister.List(r.Context(), forceRefresh)
	if err != nil {
		h.logger.Error("network listing failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "REMOTE_FAULT", "Failed to list networks")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToNetworkListResponse(networks))
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vistalink/screen-setup/internal/api/http/dto"
	"github.com/vistalink/screen-setup/internal/radio"
)

// NetworkScanner lists nearby wireless networks, strongest first.
type NetworkScanner interface {
	ScanNetworks(ctx context.Context) ([]radio.Network, error)
}

type NetworksHandler struct {
	scanner NetworkScanner
}

func NewNetworksHandler(scanner NetworkScanner) *NetworksHandler {
	return &NetworksHandler{scanner: scanner}
}

// List returns the networks visible to the device so the setup form can
// offer a picker instead of free-text entry.
// GET /api/v1/networks
func (h *NetworksHandler) List(c *gin.Context) {
	networks, err := h.scanner.ScanNetworks(c.Request.Context())
	if err != nil {
		slog.Error("Failed to scan networks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to scan networks"})
		return
	}

	resp := dto.ListNetworksResponse{Networks: make([]dto.NetworkResponse, len(networks))}
	for i, n := range networks {
		resp.Networks[i] = dto.NetworkResponse{SSID: n.SSID, Quality: n.Quality, Encrypted: n.Encrypted}
	}
	c.JSON(http.StatusOK, resp)
}

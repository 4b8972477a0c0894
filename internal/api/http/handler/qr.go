package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vistalink/screen-setup/internal/api/http/dto"
	"github.com/vistalink/screen-setup/internal/qr"
	"github.com/vistalink/screen-setup/internal/wifi"
)

type QRHandler struct {
	cache   *qr.Cache
	network wifi.Credentials
}

// NewQRHandler serves join codes for the given setup network.
func NewQRHandler(cache *qr.Cache, network wifi.Credentials) *QRHandler {
	return &QRHandler{cache: cache, network: network}
}

// JoinCode renders the setup network's QR image and returns where to fetch it.
// GET /api/v1/join-qr
func (h *QRHandler) JoinCode(c *gin.Context) {
	content := wifi.JoinCode(h.network)
	if _, err := h.cache.PNG(content); err != nil {
		slog.Error("Failed to render join code", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render join code"})
		return
	}

	filename := qr.Filename(content)
	c.JSON(http.StatusOK, dto.JoinQRResponse{
		SSID:     h.network.SSID,
		Filename: filename,
		URL:      "/qr/" + filename,
	})
}

// Image serves a rendered QR image from the cache.
// GET /qr/:filename
func (h *QRHandler) Image(c *gin.Context) {
	path, ok := h.cache.Resolve(c.Param("filename"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.File(path)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vistalink/screen-setup/internal/api/http/dto"
	"github.com/vistalink/screen-setup/internal/i18n"
	"github.com/vistalink/screen-setup/internal/wifi"
)

// CredentialSink receives a validated submission for the provisioning flow.
type CredentialSink interface {
	Put(c wifi.Credentials) error
}

// SubmissionObserver counts submission outcomes. Optional.
type SubmissionObserver interface {
	ObserveSubmission(accepted bool)
}

type ConnectHandler struct {
	sink     CredentialSink
	observer SubmissionObserver
	catalog  *i18n.Catalog
}

func NewConnectHandler(sink CredentialSink, observer SubmissionObserver, catalog *i18n.Catalog) *ConnectHandler {
	return &ConnectHandler{sink: sink, observer: observer, catalog: catalog}
}

// Connect validates a credential submission and deposits it for the flow.
// The passphrase is never logged.
// POST /api/v1/connect
func (h *ConnectHandler) Connect(c *gin.Context) {
	var req dto.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.observe(false)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creds := wifi.Credentials{SSID: req.SSID, Passphrase: req.Password}
	if err := creds.Validate(); err != nil {
		h.observe(false)
		slog.Warn("Rejected credential submission", "ssid", creds.SSID, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sink.Put(creds); err != nil {
		h.observe(false)
		slog.Error("Failed to store credential submission", "ssid", creds.SSID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store submission"})
		return
	}

	h.observe(true)
	slog.Info("Credentials submitted", "ssid", creds.SSID)
	lang := h.catalog.Match(c.GetHeader("Accept-Language"))
	c.JSON(http.StatusOK, dto.ConnectResponse{Message: h.catalog.Lookup(lang, "setup.submitted")})
}

func (h *ConnectHandler) observe(accepted bool) {
	if h.observer != nil {
		h.observer.ObserveSubmission(accepted)
	}
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vistalink/screen-setup/internal/api/http/dto"
	"github.com/vistalink/screen-setup/internal/i18n"
	"github.com/vistalink/screen-setup/internal/provisioning"
	"github.com/vistalink/screen-setup/internal/sysinfo"
	"github.com/vistalink/screen-setup/internal/wifi"
)

// StatusSource is the slice of the provisioning machine the portal reads.
type StatusSource interface {
	Snapshot() (provisioning.Session, bool)
	APNetwork() wifi.Credentials
	Active() bool
}

// VitalsSource supplies the device vitals block on status responses.
type VitalsSource interface {
	Collect(ctx context.Context) sysinfo.Snapshot
}

type StatusHandler struct {
	source  StatusSource
	vitals  VitalsSource
	catalog *i18n.Catalog
}

func NewStatusHandler(source StatusSource, vitals VitalsSource, catalog *i18n.Catalog) *StatusHandler {
	return &StatusHandler{source: source, vitals: vitals, catalog: catalog}
}

// Status reports the current provisioning session. Messages are localized
// from the Accept-Language header. The target network's passphrase never
// appears in the response.
// GET /api/v1/status
func (h *StatusHandler) Status(c *gin.Context) {
	lang := h.catalog.Match(c.GetHeader("Accept-Language"))

	var system *sysinfo.Snapshot
	if h.vitals != nil {
		snap := h.vitals.Collect(c.Request.Context())
		system = &snap
	}

	session, ok := h.source.Snapshot()
	if !ok {
		c.JSON(http.StatusOK, dto.StatusResponse{Active: false, State: "idle", System: system})
		return
	}

	resp := dto.StatusResponse{
		Active:    h.source.Active(),
		State:     session.State.String(),
		Message:   h.catalog.Lookup(lang, "status."+session.State.String()),
		Attempt:   session.AttemptCount,
		Warnings:  session.Warnings,
		StartedAt: &session.StartedAt,
		UpdatedAt: &session.UpdatedAt,
		System:    system,
	}
	if session.Credentials != nil {
		resp.Network = session.Credentials.SSID
	}
	if session.LastError != nil {
		resp.LastError = &dto.FlowErrorResponse{
			Kind:    string(session.LastError.Kind),
			Message: h.catalog.Lookup(lang, "error."+string(session.LastError.Kind)),
			Detail:  session.LastError.Message,
		}
	}
	c.JSON(http.StatusOK, resp)
}

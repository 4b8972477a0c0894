package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vistalink/screen-setup/internal/api/http/dto"
	"github.com/vistalink/screen-setup/internal/i18n"
)

type StringsHandler struct {
	catalog *i18n.Catalog
}

func NewStringsHandler(catalog *i18n.Catalog) *StringsHandler {
	return &StringsHandler{catalog: catalog}
}

// Strings returns the setup form's UI strings in the negotiated language so
// the page can localize itself.
// GET /api/v1/strings
func (h *StringsHandler) Strings(c *gin.Context) {
	lang := h.catalog.Match(c.GetHeader("Accept-Language"))
	c.JSON(http.StatusOK, dto.StringsResponse{
		Language: lang,
		Strings:  h.catalog.Section(lang, "setup"),
	})
}

// Package statusview renders provisioning progress on the device console.
package statusview

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/vistalink/screen-setup/internal/i18n"
	"github.com/vistalink/screen-setup/internal/provisioning"
	"github.com/vistalink/screen-setup/internal/qr"
	"github.com/vistalink/screen-setup/internal/wifi"
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true)
	detailStyle  = lipgloss.NewStyle().Faint(true)
)

// Console writes state changes and the setup join code to a terminal. It
// implements both provisioning.Sink and provisioning.APPresenter.
type Console struct {
	mu        sync.Mutex
	out       io.Writer
	catalog   *i18n.Catalog
	lang      string
	portalURL string
}

func NewConsole(out io.Writer, catalog *i18n.Catalog, lang string) *Console {
	if lang == "" {
		lang = i18n.DefaultLanguage
	}
	return &Console{out: out, catalog: catalog, lang: lang}
}

// SetPortalURL adds the setup portal address to the join code display.
func (c *Console) SetPortalURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.portalURL = url
}

func (c *Console) Publish(e provisioning.StatusEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := styleFor(e.State).Render(c.message(e.State))
	if e.Detail != "" {
		line += " " + detailStyle.Render("("+e.Detail+")")
	}
	if e.Attempt > 0 {
		line += " " + detailStyle.Render(fmt.Sprintf("attempt %d", e.Attempt))
	}
	fmt.Fprintf(c.out, "%s %s\n", detailStyle.Render(e.At.Format("15:04:05")), line)
}

// ShowJoinCode prints the setup network details with a scannable QR block.
func (c *Console) ShowJoinCode(ap wifi.Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, headerStyle.Render(c.message(provisioning.StateAPActive)))
	fmt.Fprintf(c.out, "  %s %s\n", detailStyle.Render("network:"), ap.SSID)
	if !ap.Open() {
		fmt.Fprintf(c.out, "  %s %s\n", detailStyle.Render("password:"), ap.Passphrase)
	}
	if c.portalURL != "" {
		fmt.Fprintf(c.out, "  %s %s\n", detailStyle.Render("portal:"), c.portalURL)
	}

	block, err := qr.Terminal(wifi.JoinCode(ap))
	if err != nil {
		slog.Warn("Failed to render join code", "error", err)
		return
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, block)
}

func (c *Console) message(s provisioning.State) string {
	if c.catalog == nil {
		return s.String()
	}
	return c.catalog.Lookup(c.lang, "status."+s.String())
}

func styleFor(s provisioning.State) lipgloss.Style {
	switch s {
	case provisioning.StateSucceeded:
		return successStyle
	case provisioning.StateFailed:
		return errorStyle
	default:
		return infoStyle
	}
}

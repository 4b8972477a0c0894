package radio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vistalink/screen-setup/internal/wifi"
)

const (
	DefaultInterface      = "wlan0"
	DefaultSupplicantPath = "/etc/wpa_supplicant/wpa_supplicant.conf"
	DefaultCountryCode    = "US"
)

type Config struct {
	Interface      string
	SupplicantPath string
	CountryCode    string
	APStartCommand []string
	APStopCommand  []string
}

// ScriptController drives the wireless interface through the stock system
// tools: hostapd/dnsmasq via the AP scripts, wpa_supplicant + dhcpcd for
// station mode, iwlist/iw for scanning and client state.
type ScriptController struct {
	cfg    Config
	runner CommandRunner
}

func NewScriptController(cfg Config, runner CommandRunner) *ScriptController {
	if cfg.Interface == "" {
		cfg.Interface = DefaultInterface
	}
	if cfg.SupplicantPath == "" {
		cfg.SupplicantPath = DefaultSupplicantPath
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = DefaultCountryCode
	}
	if len(cfg.APStartCommand) == 0 {
		cfg.APStartCommand = []string{"bash", "/opt/screen-setup/setup_ap.sh"}
	}
	if len(cfg.APStopCommand) == 0 {
		cfg.APStopCommand = []string{"bash", "/opt/screen-setup/stop_ap.sh"}
	}
	return &ScriptController{cfg: cfg, runner: runner}
}

func (c *ScriptController) StartAP(ctx context.Context) error {
	slog.Info("Starting access point", "interface", c.cfg.Interface)
	if err := c.runner.Run(ctx, c.cfg.APStartCommand[0], c.cfg.APStartCommand[1:]...); err != nil {
		return fmt.Errorf("failed to start access point: %w", err)
	}
	return nil
}

func (c *ScriptController) StopAP(ctx context.Context) error {
	slog.Info("Stopping access point", "interface", c.cfg.Interface)
	if err := c.runner.Run(ctx, c.cfg.APStopCommand[0], c.cfg.APStopCommand[1:]...); err != nil {
		return fmt.Errorf("failed to stop access point: %w", err)
	}
	return nil
}

// ApplyStation points the interface at the given network: backs up and
// rewrites wpa_supplicant.conf, reloads wpa_supplicant, then bounces dhcpcd
// for a fresh lease.
func (c *ScriptController) ApplyStation(ctx context.Context, creds wifi.Credentials) error {
	conf, err := SupplicantConfig(creds, c.cfg.CountryCode)
	if err != nil {
		return fmt.Errorf("failed to render supplicant config: %w", err)
	}

	if data, err := os.ReadFile(c.cfg.SupplicantPath); err == nil {
		if err := os.WriteFile(c.cfg.SupplicantPath+".backup", data, 0o600); err != nil {
			return fmt.Errorf("failed to back up supplicant config: %w", err)
		}
	}
	if err := c.writeSupplicant(conf); err != nil {
		return err
	}

	slog.Info("Applying station credentials", "interface", c.cfg.Interface, "ssid", creds.SSID)
	if err := c.runner.Run(ctx, "wpa_cli", "-i", c.cfg.Interface, "reconfigure"); err != nil {
		return fmt.Errorf("failed to reload wpa_supplicant: %w", err)
	}
	if err := c.runner.Run(ctx, "systemctl", "restart", "dhcpcd"); err != nil {
		return fmt.Errorf("failed to restart dhcpcd: %w", err)
	}
	return nil
}

func (c *ScriptController) writeSupplicant(conf string) error {
	tmp, err := os.CreateTemp(filepath.Dir(c.cfg.SupplicantPath), ".wpa-*")
	if err != nil {
		return fmt.Errorf("failed to create supplicant config: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(conf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write supplicant config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write supplicant config: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set supplicant config mode: %w", err)
	}
	if err := os.Rename(tmpName, c.cfg.SupplicantPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to install supplicant config: %w", err)
	}
	return nil
}

// CurrentSSID reports the network the interface is associated with, or an
// empty string when not associated.
func (c *ScriptController) CurrentSSID(ctx context.Context) (string, error) {
	out, err := c.runner.Output(ctx, "iwgetid", c.cfg.Interface, "--raw")
	if err != nil {
		return "", fmt.Errorf("failed to query current ssid: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ConnectedClient reports the MAC of the first station joined to the AP.
func (c *ScriptController) ConnectedClient(ctx context.Context) (string, bool) {
	out, err := c.runner.Output(ctx, "iw", "dev", c.cfg.Interface, "station", "dump")
	if err != nil {
		return "", false
	}
	first, _, _ := strings.Cut(string(out), "\n")
	fields := strings.Fields(first)
	if len(fields) < 2 {
		return "", false
	}
	return fields[1], true
}

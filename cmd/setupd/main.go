package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vistalink/screen-setup/internal/activation"
	internalhttp "github.com/vistalink/screen-setup/internal/api/http"
	"github.com/vistalink/screen-setup/internal/dnsconf"
	"github.com/vistalink/screen-setup/internal/i18n"
	"github.com/vistalink/screen-setup/internal/intake"
	"github.com/vistalink/screen-setup/internal/netcheck"
	"github.com/vistalink/screen-setup/internal/provisioning"
	"github.com/vistalink/screen-setup/internal/qr"
	"github.com/vistalink/screen-setup/internal/radio"
	"github.com/vistalink/screen-setup/internal/statusview"
	"github.com/vistalink/screen-setup/internal/sysinfo"
	"github.com/vistalink/screen-setup/internal/telemetry"
	"github.com/vistalink/screen-setup/internal/wifi"
)

var AppVersion string

func main() {
	InitConfig()

	slog.Info("Vista screen setup", "version", AppVersion)

	runner := radio.ExecRunner{}
	controller := radio.NewScriptController(radio.Config{
		Interface:      config.Radio.Interface,
		SupplicantPath: config.Radio.SupplicantPath,
		CountryCode:    config.Radio.CountryCode,
		APStartCommand: []string{"bash", config.Radio.APStartScript},
		APStopCommand:  []string{"bash", config.Radio.APStopScript},
	}, runner)

	var prober provisioning.Prober
	switch config.Flow.ProbeMode {
	case "dial":
		prober = netcheck.NewDialProber(config.Flow.ProbeTarget, config.Flow.ProbeTimeout)
	default:
		prober = netcheck.NewPingProber(runner, config.Flow.ProbeTarget, config.Flow.ProbeTimeout)
	}

	policy := dnsconf.Policy{
		MaxAttempts: config.DNS.MaxAttempts,
		Delay:       config.DNS.Delay,
		Nameservers: config.DNS.Nameservers,
	}
	resetter := dnsconf.NewResetter(config.DNS.ResolvPath, policy)

	if err := os.MkdirAll(filepath.Dir(config.Paths.SlotPath), 0o755); err != nil {
		slog.Error("Failed to create state directory", "error", err)
		os.Exit(1)
	}
	store := intake.NewStore(config.Paths.SlotPath)
	waiter := intake.NewWaiter(store, 0)

	identity, err := activation.LoadIdentity(config.Paths.DeviceIDPath, config.Radio.Interface, config.Activation.DeviceType)
	if err != nil {
		slog.Error("Failed to load device identity", "error", err)
		os.Exit(1)
	}
	slog.Info("Device identity loaded", "device_id", identity.DeviceID, "mac_address", identity.MACAddress)

	collector := sysinfo.NewCollector()
	activator := activation.NewClient(activation.Config{
		BaseURL:     config.Activation.ServerURL,
		APIKey:      config.Activation.APIKey,
		MaxAttempts: config.Activation.MaxAttempts,
		Timeout:     config.Activation.Timeout,
	}, identity, func(ctx context.Context) any { return collector.Collect(ctx) })

	metrics := telemetry.NewMetrics()

	machine := provisioning.NewMachine(
		controller,
		metrics.Prober(prober),
		metrics.Resetter(resetter),
		waiter,
		metrics.Activator(activator),
	)
	machine.SetAPNetwork(wifi.Credentials{SSID: config.AP.SSID, Passphrase: config.AP.Passphrase})
	machine.SetDNSPolicy(policy)
	machine.SetVerifyBudget(config.Flow.VerifyBudget)
	machine.SetCredentialWait(config.Flow.CredentialWait)

	catalog, err := i18n.NewCatalog()
	if err != nil {
		slog.Error("Failed to load locale catalogs", "error", err)
		os.Exit(1)
	}

	qrCache, err := qr.NewCache(config.Paths.QRCacheDir, qr.DefaultTTL)
	if err != nil {
		slog.Error("Failed to create qr cache", "error", err)
		os.Exit(1)
	}

	console := statusview.NewConsole(os.Stdout, catalog, config.Flow.Language)
	console.SetPortalURL(config.AP.PortalURL)
	machine.SetPresenter(console)
	machine.SetSink(provisioning.MultiSink{console, metrics})

	gin.SetMode(gin.ReleaseMode)
	portal := internalhttp.NewPortalServer(config.Portal, &internalhttp.Services{
		Status:  machine,
		Store:   store,
		Scanner: controller,
		Vitals:  collector,
		QRCache: qrCache,
		Catalog: catalog,
		Metrics: metrics,
	})
	machine.SetConfigUI(portal)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go qrCache.StartCleanup(ctx, time.Hour)

	session, err := machine.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("Setup interrupted", "state", session.State)
			return
		}
		slog.Error("Setup aborted", "state", session.State, "error", err)
		os.Exit(1)
	}
	if session.State == provisioning.StateFailed {
		slog.Error("Setup failed", "error", session.LastError)
		os.Exit(1)
	}
	slog.Info("Setup complete", "state", session.State, "attempts", session.AttemptCount)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vistalink/screen-setup/internal/activation"
	"github.com/vistalink/screen-setup/internal/sysinfo"
)

func runActivate(args []string) error {
	fs := flag.NewFlagSet("activate", flag.ExitOnError)
	server := fs.String("server", "http://localhost:5001", "Activation server URL")
	key := fs.String("key", "", "API key (defaults to ACTIVATION_API_KEY)")
	idPath := fs.String("id-path", "/var/lib/screen-setup/device_id", "Device ID file")
	iface := fs.String("interface", "wlan0", "Wireless interface")
	deviceType := fs.String("device-type", activation.DefaultDeviceType, "Reported device type")
	timeout := fs.Duration("timeout", 10*time.Second, "Per-request timeout")
	attempts := fs.Int("attempts", 3, "Maximum attempts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *server == "" {
		return fmt.Errorf("--server is required")
	}
	if *key == "" {
		*key = os.Getenv("ACTIVATION_API_KEY")
	}

	identity, err := activation.LoadIdentity(*idPath, *iface, *deviceType)
	if err != nil {
		return err
	}

	collector := sysinfo.NewCollector()
	client := activation.NewClient(activation.Config{
		BaseURL:     *server,
		APIKey:      *key,
		MaxAttempts: *attempts,
		Timeout:     *timeout,
	}, identity, func(ctx context.Context) any { return collector.Collect(ctx) })

	if err := client.Activate(context.Background()); err != nil {
		return err
	}

	fmt.Println("Activation successful!")
	fmt.Printf("  Device ID: %s\n", identity.DeviceID)
	fmt.Printf("  MAC:       %s\n", identity.MACAddress)
	fmt.Printf("  Hostname:  %s\n", identity.Hostname)
	fmt.Printf("  Server:    %s\n", *server)
	return nil
}

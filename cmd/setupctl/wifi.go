package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vistalink/screen-setup/internal/radio"
	"github.com/vistalink/screen-setup/internal/wifi"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
	openStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func runWifi(args []string) error {
	fs := flag.NewFlagSet("wifi", flag.ExitOnError)
	iface := fs.String("interface", "wlan0", "Wireless interface")
	current := fs.Bool("current", false, "Show the associated network instead of scanning")
	ssid := fs.String("ssid", "", "Apply these station credentials instead of scanning")
	password := fs.String("password", "", "Passphrase for --ssid (empty for an open network)")
	timeout := fs.Duration("timeout", 15*time.Second, "Command timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	controller := radio.NewScriptController(radio.Config{Interface: *iface}, radio.ExecRunner{})
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *current {
		ssid, err := controller.CurrentSSID(ctx)
		if err != nil {
			return err
		}
		if ssid == "" {
			fmt.Println("not associated")
			return nil
		}
		fmt.Println(ssid)
		return nil
	}

	if *ssid != "" {
		creds := wifi.Credentials{SSID: *ssid, Passphrase: *password}
		if err := creds.Validate(); err != nil {
			return err
		}
		if err := controller.ApplyStation(ctx, creds); err != nil {
			return err
		}
		fmt.Printf("Applied credentials for %s on %s\n", creds.SSID, *iface)
		return nil
	}

	networks, err := controller.ScanNetworks(ctx)
	if err != nil {
		return err
	}
	if len(networks) == 0 {
		fmt.Println("no networks found")
		return nil
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Networks on %s", *iface)))
	for _, n := range networks {
		security := openStyle.Render("open")
		if n.Encrypted {
			security = "wpa"
		}
		bar := strings.Repeat("|", (n.Quality+9)/10)
		fmt.Printf("  %-32s %s %s %s\n",
			n.SSID,
			faintStyle.Render(fmt.Sprintf("%3d", n.Quality)),
			bar,
			security)
	}
	return nil
}

package main

import (
	"flag"
	"fmt"

	"github.com/vistalink/screen-setup/internal/qr"
	"github.com/vistalink/screen-setup/internal/wifi"
)

func runQR(args []string) error {
	fs := flag.NewFlagSet("qr", flag.ExitOnError)
	ssid := fs.String("ssid", "", "Network name")
	password := fs.String("password", "", "Network passphrase (empty for an open network)")
	out := fs.String("out", "", "Also write a PNG to this path")
	size := fs.Int("size", qr.DefaultSize, "PNG size in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *ssid == "" {
		return fmt.Errorf("--ssid is required")
	}

	creds := wifi.Credentials{SSID: *ssid, Passphrase: *password}
	if err := creds.Validate(); err != nil {
		return err
	}

	content := wifi.JoinCode(creds)
	block, err := qr.Terminal(content)
	if err != nil {
		return err
	}
	fmt.Println(block)

	if *out != "" {
		if err := qr.WritePNG(content, *out, *size); err != nil {
			return err
		}
		fmt.Printf("  PNG: %s\n", *out)
	}
	return nil
}

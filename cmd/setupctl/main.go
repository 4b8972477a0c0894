// setupctl is the operator companion to setupd: render join codes, inspect
// nearby networks, fire a manual activation, or dump device metrics.
package main

import (
	"fmt"
	"log/slog"
	"os"
)

var AppVersion string

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "qr":
		err = runQR(os.Args[2:])
	case "wifi":
		err = runWifi(os.Args[2:])
	case "activate":
		err = runActivate(os.Args[2:])
	case "metrics":
		err = runMetrics(os.Args[2:])
	case "version":
		version := AppVersion
		if version == "" {
			version = "dev"
		}
		fmt.Println("setupctl", version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Usage: setupctl <command> [flags]

Commands:
  qr        Render a Wi-Fi join code
  wifi      Scan nearby networks, apply credentials, or show the associated one
  activate  Announce this device to the activation server
  metrics   Show a device metrics snapshot
  version   Print the version`)
}

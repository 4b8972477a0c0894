package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vistalink/screen-setup/internal/sysinfo"
)

var (
	labelStyle = lipgloss.NewStyle().Faint(true).Width(18)
	valueStyle = lipgloss.NewStyle().Bold(true)
)

func runMetrics(args []string) error {
	fs := flag.NewFlagSet("metrics", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print the snapshot as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap := sysinfo.NewCollector().Collect(context.Background())

	if *asJSON {
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	printRow("Hostname", snap.Hostname)
	printRow("Platform", snap.Platform)
	printRow("Uptime", (time.Duration(snap.UptimeSec) * time.Second).String())
	printRow("CPU", fmt.Sprintf("%.1f%%", snap.CPUPercent))
	printRow("Memory", fmt.Sprintf("%s / %s (%.1f%%)",
		formatBytes(snap.MemUsed), formatBytes(snap.MemTotal), snap.MemPercent))
	printRow("Disk", fmt.Sprintf("%s / %s (%.1f%%)",
		formatBytes(snap.DiskUsed), formatBytes(snap.DiskTotal), snap.DiskPercent))
	printRow("Net sent", formatBytes(snap.BytesSent))
	printRow("Net received", formatBytes(snap.BytesRecv))
	if snap.TemperatureC > 0 {
		printRow("Temperature", fmt.Sprintf("%.1f C", snap.TemperatureC))
	}
	return nil
}

func printRow(label, value string) {
	fmt.Println(labelStyle.Render(label) + valueStyle.Render(value))
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

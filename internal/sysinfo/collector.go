package sysinfo

import (
	"context"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"
)

const defaultThermalPath = "/sys/class/thermal/thermal_zone0/temp"

// Snapshot is a point-in-time reading of the device's vitals. It rides along
// with the activation payload and feeds the status endpoint.
type Snapshot struct {
	Hostname     string    `json:"hostname"`
	Platform     string    `json:"platform"`
	UptimeSec    uint64    `json:"uptime_seconds"`
	CPUPercent   float64   `json:"cpu_percent"`
	MemTotal     uint64    `json:"memory_total_bytes"`
	MemUsed      uint64    `json:"memory_used_bytes"`
	MemPercent   float64   `json:"memory_percent"`
	DiskTotal    uint64    `json:"disk_total_bytes"`
	DiskUsed     uint64    `json:"disk_used_bytes"`
	DiskPercent  float64   `json:"disk_percent"`
	BytesSent    uint64    `json:"network_bytes_sent"`
	BytesRecv    uint64    `json:"network_bytes_recv"`
	TemperatureC float64   `json:"temperature_celsius,omitempty"`
	CollectedAt  time.Time `json:"collected_at"`
}

type Collector struct {
	diskPath    string
	thermalPath string
}

func NewCollector() *Collector {
	return &Collector{diskPath: "/", thermalPath: defaultThermalPath}
}

// Collect gathers whatever it can and never fails: a missing sensor just
// leaves its field zero.
func (c *Collector) Collect(ctx context.Context) Snapshot {
	snap := Snapshot{CollectedAt: time.Now().UTC()}

	if hn, err := os.Hostname(); err == nil {
		snap.Hostname = hn
	}
	if info, err := host.InfoWithContext(ctx); err == nil {
		snap.Platform = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	} else {
		snap.Platform = runtime.GOOS
	}
	if up, err := host.UptimeWithContext(ctx); err == nil {
		snap.UptimeSec = up
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		snap.CPUPercent = round1(pct[0])
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemTotal = vm.Total
		snap.MemUsed = vm.Used
		snap.MemPercent = round1(vm.UsedPercent)
	}
	if du, err := disk.UsageWithContext(ctx, c.diskPath); err == nil {
		snap.DiskTotal = du.Total
		snap.DiskUsed = du.Used
		snap.DiskPercent = round1(du.UsedPercent)
	}
	if counters, err := psnet.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
		snap.BytesSent = counters[0].BytesSent
		snap.BytesRecv = counters[0].BytesRecv
	}
	snap.TemperatureC = c.temperature(ctx)

	return snap
}

// temperature tries the sensor framework first and falls back to the raw
// thermal zone file, which Raspberry Pi OS exposes even without lm-sensors.
func (c *Collector) temperature(ctx context.Context) float64 {
	if temps, err := sensors.TemperaturesWithContext(ctx); err == nil {
		for _, t := range temps {
			key := strings.ToLower(t.SensorKey)
			if t.Temperature <= 0 {
				continue
			}
			if strings.Contains(key, "cpu") || strings.Contains(key, "soc") ||
				strings.Contains(key, "coretemp") || strings.Contains(key, "thermal") {
				return round1(t.Temperature)
			}
		}
	}
	if v, ok := readThermalZone(c.thermalPath); ok {
		return v
	}
	return 0
}

// readThermalZone parses the millidegree reading from a thermal zone file.
func readThermalZone(path string) (float64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	milli, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return round1(float64(milli) / 1000), true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

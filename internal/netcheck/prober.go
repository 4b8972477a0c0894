package netcheck

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"
)

const (
	DefaultTarget  = "8.8.8.8"
	DefaultTimeout = 5 * time.Second
)

// Runner executes a system command. Satisfied by radio.ExecRunner.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// PingProber answers whether the device is online by sending a single ICMP
// echo through the ping binary. Probes are read-only and safe to repeat.
type PingProber struct {
	runner  Runner
	target  string
	timeout time.Duration
}

func NewPingProber(runner Runner, target string, timeout time.Duration) *PingProber {
	if target == "" {
		target = DefaultTarget
	}
	if timeout <= 0 || timeout > DefaultTimeout {
		timeout = DefaultTimeout
	}
	return &PingProber{runner: runner, target: target, timeout: timeout}
}

func (p *PingProber) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	secs := int(p.timeout / time.Second)
	if secs < 1 {
		secs = 1
	}
	if err := p.runner.Run(ctx, "ping", "-c", "1", "-W", strconv.Itoa(secs), p.target); err != nil {
		slog.Debug("Ping probe failed", "target", p.target, "error", err)
		return false
	}
	return true
}

// DialProber answers the same question without ICMP privileges by opening a
// TCP connection to a public resolver port.
type DialProber struct {
	addr    string
	timeout time.Duration
}

func NewDialProber(addr string, timeout time.Duration) *DialProber {
	if addr == "" {
		addr = DefaultTarget
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "53")
	}
	if timeout <= 0 || timeout > DefaultTimeout {
		timeout = DefaultTimeout
	}
	return &DialProber{addr: addr, timeout: timeout}
}

func (p *DialProber) Online(ctx context.Context) bool {
	d := net.Dialer{Timeout: p.timeout}
	conn, err := d.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		slog.Debug("Dial probe failed", "addr", p.addr, "error", err)
		return false
	}
	conn.Close()
	return true
}

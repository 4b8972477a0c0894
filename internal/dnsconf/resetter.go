package dnsconf

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const DefaultPath = "/etc/resolv.conf"

var ErrNameserverMissing = errors.New("nameserver missing from resolver config")

// Policy bounds how hard the flow pushes on DNS before moving on. The retry
// loop itself lives with the caller; the resetter only performs single
// rewrites and reads.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Nameservers []string
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
		Nameservers: []string{"8.8.8.8", "8.8.4.4"},
	}
}

// Resetter rewrites the system resolver config to a known-good nameserver
// set. Writes go through a temp file in the same directory plus rename, so
// the config is never observed half-written.
type Resetter struct {
	path        string
	backupPath  string
	nameservers []string
}

func NewResetter(path string, policy Policy) *Resetter {
	if path == "" {
		path = DefaultPath
	}
	nameservers := policy.Nameservers
	if len(nameservers) == 0 {
		nameservers = DefaultPolicy().Nameservers
	}
	return &Resetter{
		path:        path,
		backupPath:  path + ".backup",
		nameservers: nameservers,
	}
}

func (r *Resetter) Reset() error {
	if data, err := os.ReadFile(r.path); err == nil {
		if err := os.WriteFile(r.backupPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to back up resolver config: %w", err)
		}
	}

	var b strings.Builder
	for _, ns := range r.nameservers {
		fmt.Fprintf(&b, "nameserver %s\n", ns)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".resolv-*")
	if err != nil {
		return fmt.Errorf("failed to create temp resolver config: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write resolver config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write resolver config: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set resolver config mode: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to install resolver config: %w", err)
	}

	slog.Debug("Resolver config rewritten", "path", r.path, "nameservers", r.nameservers)
	return nil
}

// Verify reads the resolver config back and requires every configured
// nameserver to be present.
func (r *Resetter) Verify() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("failed to read resolver config: %w", err)
	}
	content := string(data)
	for _, ns := range r.nameservers {
		if !strings.Contains(content, "nameserver "+ns) {
			return fmt.Errorf("%w: %s", ErrNameserverMissing, ns)
		}
	}
	return nil
}

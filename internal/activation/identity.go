package activation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const DefaultDeviceType = "smart_screen"

// Identity is what the device introduces itself as: a uuid4 minted on first
// boot and persisted, plus the wireless MAC and hostname.
type Identity struct {
	DeviceID   string `json:"device_id"`
	MACAddress string `json:"mac_address"`
	Hostname   string `json:"hostname"`
	DeviceType string `json:"device_type"`
}

// LoadIdentity assembles the device identity. The id file is created once
// and reused on every subsequent run; MAC and hostname are best effort.
func LoadIdentity(idPath, iface, deviceType string) (Identity, error) {
	id, err := ensureDeviceID(idPath)
	if err != nil {
		return Identity{}, err
	}
	if deviceType == "" {
		deviceType = DefaultDeviceType
	}
	hostname, _ := os.Hostname()
	return Identity{
		DeviceID:   id,
		MACAddress: readMAC(filepath.Join("/sys/class/net", iface, "address")),
		Hostname:   hostname,
		DeviceType: deviceType,
	}, nil
}

func ensureDeviceID(path string) (string, error) {
	if data, err := os.ReadFile(path); err == nil {
		id := strings.TrimSpace(string(data))
		if _, err := uuid.Parse(id); err == nil {
			return id, nil
		}
		// Garbled id file: mint a fresh one below.
	}

	id := uuid.NewString()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create device id directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}
	return id, nil
}

func readMAC(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

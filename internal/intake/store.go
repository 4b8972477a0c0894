package intake

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vistalink/screen-setup/internal/wifi"
)

const DefaultSlotName = "wifi_credentials.tmp"

// Store is the single-slot hand-off between the setup portal and the
// provisioning flow. The portal deposits one submission; the flow consumes
// it exactly once. The slot is a plain JSON file so a submission survives a
// process restart.
type Store struct {
	path string
}

type payload struct {
	SSID       string `json:"ssid"`
	Passphrase string `json:"password"`
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Put deposits a submission, replacing any previous one. The slot file is
// written via temp+rename so a reader never observes a partial payload.
func (s *Store) Put(c wifi.Credentials) error {
	data, err := json.Marshal(payload{SSID: c.SSID, Passphrase: c.Passphrase})
	if err != nil {
		return fmt.Errorf("failed to encode hand-off payload: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".intake-*")
	if err != nil {
		return fmt.Errorf("failed to create hand-off file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write hand-off file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write hand-off file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set hand-off file mode: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to install hand-off file: %w", err)
	}
	return nil
}

// Take reads and clears the slot. The second of two consecutive calls finds
// nothing. A garbled payload is still cleared so it cannot wedge the flow.
func (s *Store) Take() (wifi.Credentials, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return wifi.Credentials{}, false, nil
	}
	if err != nil {
		return wifi.Credentials{}, false, fmt.Errorf("failed to read hand-off file: %w", err)
	}

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return wifi.Credentials{}, false, fmt.Errorf("failed to clear hand-off file: %w", err)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return wifi.Credentials{}, false, fmt.Errorf("failed to decode hand-off payload: %w", err)
	}
	return wifi.Credentials{SSID: p.SSID, Passphrase: p.Passphrase}, true, nil
}

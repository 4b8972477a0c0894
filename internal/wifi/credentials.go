package wifi

import (
	"errors"
)

const (
	MaxSSIDLen       = 32
	MinPassphraseLen = 8
	MaxPassphraseLen = 63
)

var (
	ErrSSIDRequired      = errors.New("ssid is required")
	ErrSSIDTooLong       = errors.New("ssid exceeds 32 bytes")
	ErrPassphraseLength  = errors.New("passphrase must be 8 to 63 characters")
	ErrPassphraseCharset = errors.New("passphrase must be printable ASCII")
)

// Credentials identifies a station network. An empty Passphrase means an
// open network.
type Credentials struct {
	SSID       string
	Passphrase string
}

func (c Credentials) Open() bool {
	return c.Passphrase == ""
}

// Validate enforces the 802.11 limits: SSID 1-32 bytes, passphrase either
// empty or 8-63 printable ASCII characters.
func (c Credentials) Validate() error {
	if c.SSID == "" {
		return ErrSSIDRequired
	}
	if len(c.SSID) > MaxSSIDLen {
		return ErrSSIDTooLong
	}
	if c.Passphrase == "" {
		return nil
	}
	if len(c.Passphrase) < MinPassphraseLen || len(c.Passphrase) > MaxPassphraseLen {
		return ErrPassphraseLength
	}
	for i := 0; i < len(c.Passphrase); i++ {
		if c.Passphrase[i] < 0x20 || c.Passphrase[i] > 0x7e {
			return ErrPassphraseCharset
		}
	}
	return nil
}

package wifi

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

var ErrOpenNetwork = errors.New("open network has no psk")

const (
	pskIterations = 4096
	pskKeyLen     = 32
)

// DerivePSK computes the WPA-PSK for the credentials the same way
// wpa_passphrase does: PBKDF2-SHA1 over the passphrase with the SSID as
// salt, 4096 rounds, 256-bit key, hex encoded.
func DerivePSK(c Credentials) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	if c.Open() {
		return "", ErrOpenNetwork
	}
	key := pbkdf2.Key([]byte(c.Passphrase), []byte(c.SSID), pskIterations, pskKeyLen, sha1.New)
	return hex.EncodeToString(key), nil
}

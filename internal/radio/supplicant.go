package radio

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/vistalink/screen-setup/internal/wifi"
)

// SupplicantConfig renders a complete wpa_supplicant.conf for the given
// network. Protected networks get the derived 256-bit PSK rather than the
// plaintext passphrase; open networks get key_mgmt=NONE.
func SupplicantConfig(c wifi.Credentials, country string) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	if country == "" {
		country = DefaultCountryCode
	}

	var b strings.Builder
	b.WriteString("ctrl_interface=DIR=/var/run/wpa_supplicant GROUP=netdev\n")
	b.WriteString("update_config=1\n")
	fmt.Fprintf(&b, "country=%s\n", country)
	b.WriteString("\nnetwork={\n")
	fmt.Fprintf(&b, "\tssid=%s\n", supplicantSSID(c.SSID))
	b.WriteString("\tscan_ssid=1\n")
	if c.Open() {
		b.WriteString("\tkey_mgmt=NONE\n")
	} else {
		psk, err := wifi.DerivePSK(c)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\tpsk=%s\n", psk)
		b.WriteString("\tkey_mgmt=WPA-PSK\n")
	}
	b.WriteString("}\n")
	return b.String(), nil
}

// supplicantSSID quotes the SSID, falling back to wpa_supplicant's hex form
// when the name contains bytes the quoted form cannot carry.
func supplicantSSID(ssid string) string {
	for i := 0; i < len(ssid); i++ {
		if ssid[i] < 0x20 || ssid[i] > 0x7e || ssid[i] == '"' || ssid[i] == '\\' {
			return hex.EncodeToString([]byte(ssid))
		}
	}
	return `"` + ssid + `"`
}

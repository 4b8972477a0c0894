package wifi

import (
	"fmt"
	"strings"
)

// qrEscaper handles the characters the WIFI: URI scheme reserves.
var qrEscaper = strings.NewReplacer(
	`\`, `\\`,
	`;`, `\;`,
	`,`, `\,`,
	`:`, `\:`,
	`"`, `\"`,
)

// JoinCode renders the credentials as a WIFI: payload suitable for QR
// encoding, e.g. WIFI:T:WPA;S:MyNet;P:secret;;. Open networks use T:nopass
// and omit the P field.
func JoinCode(c Credentials) string {
	if c.Open() {
		return fmt.Sprintf("WIFI:T:nopass;S:%s;;", qrEscaper.Replace(c.SSID))
	}
	return fmt.Sprintf("WIFI:T:WPA;S:%s;P:%s;;", qrEscaper.Replace(c.SSID), qrEscaper.Replace(c.Passphrase))
}

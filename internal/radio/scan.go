package radio

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

type Network struct {
	SSID      string `json:"ssid"`
	Quality   int    `json:"quality"`
	Encrypted bool   `json:"encrypted"`
}

var essidRe = regexp.MustCompile(`ESSID:"(.*)"`)

// ScanNetworks lists nearby networks via iwlist, strongest first. Hidden
// SSIDs are dropped and duplicate SSIDs keep their best reading.
func (c *ScriptController) ScanNetworks(ctx context.Context) ([]Network, error) {
	out, err := c.runner.Output(ctx, "iwlist", c.cfg.Interface, "scan")
	if err != nil {
		return nil, fmt.Errorf("failed to scan networks: %w", err)
	}
	return parseScan(string(out)), nil
}

func parseScan(out string) []Network {
	var cells []Network
	cur := -1
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Cell "):
			cells = append(cells, Network{})
			cur = len(cells) - 1
		case cur < 0:
		case strings.HasPrefix(trimmed, "ESSID:"):
			if m := essidRe.FindStringSubmatch(trimmed); m != nil {
				cells[cur].SSID = m[1]
			}
		case strings.HasPrefix(trimmed, "Quality"):
			cells[cur].Quality = parseQuality(trimmed)
		case strings.HasPrefix(trimmed, "Encryption key:"):
			cells[cur].Encrypted = strings.Contains(strings.ToLower(trimmed), "on")
		}
	}

	seen := make(map[string]int)
	var result []Network
	for _, n := range cells {
		if n.SSID == "" {
			continue
		}
		if i, ok := seen[n.SSID]; ok {
			if n.Quality > result[i].Quality {
				result[i] = n
			}
			continue
		}
		seen[n.SSID] = len(result)
		result = append(result, n)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Quality > result[j].Quality })
	return result
}

// parseQuality extracts N from lines like "Quality=70/70  Signal level=-40 dBm".
func parseQuality(line string) int {
	i := strings.IndexAny(line, "=:")
	if i < 0 {
		return 0
	}
	rest := line[i+1:]
	if j := strings.Index(rest, "/"); j >= 0 {
		rest = rest[:j]
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0
	}
	return n
}

package iw

import (
	"regexp"
	"strings"

	"wifiwatch/internal/models"
)

var (
	connectedPattern = regexp.MustCompile(`Connected to ([a-fA-F0-9:]*)`)
	ssidPattern      = regexp.MustCompile(`SSID: (.*)`)
)

const connectedMarker = "Connected to "

// ParseLink reads `iw dev <iface> link` output. It returns nil unless the
// first line reports an association.
func ParseLink(text string) *models.LinkInfo {
	lines := strings.Split(lineBreaks.Replace(text), "\n")
	if len(lines) == 0 || !strings.Contains(lines[0], connectedMarker) {
		return nil
	}

	link := &models.LinkInfo{}
	for _, line := range lines {
		if strings.Contains(line, connectedMarker) {
			if m := connectedPattern.FindStringSubmatch(line); m != nil {
				link.Address = strings.ToLower(m[1])
			}
		} else if strings.Contains(line, "SSID") {
			if m := ssidPattern.FindStringSubmatch(line); m != nil {
				link.SSID = strings.TrimRight(m[1], " \t")
			}
		}
	}
	return link
}

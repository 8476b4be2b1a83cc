package iw

import (
	"regexp"
	"strings"
)

var leasePattern = regexp.MustCompile(`leased (\b(?:\d{1,3}\.){3}\d{1,3}\b) for [0-9]+ seconds`)

// ParseLease extracts the address dhclient reports leasing. dhclient writes
// this to stderr. The last lease line wins.
func ParseLease(text string) (string, bool) {
	ip := ""
	for _, line := range strings.Split(lineBreaks.Replace(text), "\n") {
		if m := leasePattern.FindStringSubmatch(line); m != nil {
			ip = m[1]
		}
	}
	return ip, ip != ""
}

// ParseInterfaces lists the interface names in `iw dev` output.
func ParseInterfaces(text string) []string {
	var ifaces []string
	scanner := newLineScanner(text)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 2 && fields[0] == "Interface" {
			ifaces = append(ifaces, fields[1])
		}
	}
	return ifaces
}

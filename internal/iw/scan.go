// Package iw turns the text printed by iw, ifconfig and dhclient into models.
package iw

import (
	"bufio"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"wifiwatch/internal/models"
)

// ErrNoNetworks is returned when scan output contains no BSS blocks.
var ErrNoNetworks = errors.New("no networks found")

var (
	macPattern   = regexp.MustCompile(`([0-9a-fA-F]{2}:){5}[0-9a-fA-F]{2}`)
	lineBreaks   = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	maxLineBytes = 1024 * 1024
)

// Line prefixes recognised inside a BSS block, after leading whitespace is stripped.
const (
	prefixBSS     = "BSS"
	prefixChannel = "DS Parameter set: channel "
	prefixSignal  = "signal:"
	prefixSSID    = "SSID"
	prefixRSN     = "RSN:"
	prefixWPS     = "WPS:"
)

// ParseScan converts the output of `iw dev <iface> scan` into records, in the
// order their BSS blocks appear. Blocks whose BSS line carries no hardware
// address are dropped. ErrNoNetworks is returned alongside an empty slice when
// the text has no BSS line at all.
func ParseScan(text string) ([]models.NetworkRecord, error) {
	networks := make([]models.NetworkRecord, 0)
	blocks := 0

	var cur *models.NetworkRecord
	flush := func() {
		if cur != nil && cur.Address != "" {
			networks = append(networks, *cur)
		}
		cur = nil
	}

	scanner := newLineScanner(text)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t")

		if strings.HasPrefix(line, prefixBSS) {
			blocks++
			flush()
			rec := models.NewNetworkRecord(strings.ToLower(macPattern.FindString(line)))
			cur = &rec
			continue
		}
		if cur == nil {
			continue
		}
		applyLine(cur, strings.TrimLeft(line, " \t"))
	}
	flush()

	if blocks == 0 {
		return networks, ErrNoNetworks
	}
	return networks, nil
}

func applyLine(rec *models.NetworkRecord, line string) {
	switch {
	case strings.HasPrefix(line, prefixChannel):
		if ch, ok := leadingInt(strings.TrimPrefix(line, prefixChannel)); ok {
			rec.Channel = models.IntPtr(ch)
		}
	case strings.HasPrefix(line, prefixSignal):
		if sig, ok := leadingInt(strings.TrimSpace(strings.TrimPrefix(line, prefixSignal))); ok {
			rec.Signal = models.IntPtr(sig)
		}
	case strings.HasPrefix(line, prefixSSID):
		if _, ssid, ok := strings.Cut(line, "SSID: "); ok {
			rec.SSID = ssid
		}
	case strings.HasPrefix(line, prefixRSN):
		rec.EncryptionAny = true
		rec.EncryptionWEP = false
		rec.EncryptionWPA2 = true
	case strings.HasPrefix(line, prefixWPS):
		rec.EncryptionAny = true
		rec.EncryptionWEP = false
		rec.EncryptionWPA = true
	}
}

// leadingInt parses the integer part of the first number in s, e.g. "-67.00 dBm" -> -67.
func leadingInt(s string) (int, bool) {
	end := 0
	if end < len(s) && s[end] == '-' {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return v, true
}

func newLineScanner(text string) *bufio.Scanner {
	scanner := bufio.NewScanner(strings.NewReader(lineBreaks.Replace(text)))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}

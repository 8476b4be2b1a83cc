package iw

import (
	"regexp"
	"strings"
)

// Diagnostic classifies the stderr of a scan command.
type Diagnostic int

const (
	DiagnosticNone Diagnostic = iota
	// DiagnosticBusy means scans overlap faster than the device can serve them.
	DiagnosticBusy
	// DiagnosticAllocation means the device could not enumerate every network.
	DiagnosticAllocation
	DiagnosticOther
)

// BusyExitCode is the status iw exits with on -EBUSY.
const BusyExitCode = 240

var abortedPattern = regexp.MustCompile(`(?i)scan aborted`)

// Diagnose inspects scan stderr.
func Diagnose(stderr string) Diagnostic {
	switch {
	case strings.TrimSpace(stderr) == "":
		return DiagnosticNone
	case strings.Contains(stderr, "Device or resource busy"):
		return DiagnosticBusy
	case strings.Contains(stderr, "Allocation failed"):
		return DiagnosticAllocation
	default:
		return DiagnosticOther
	}
}

// Aborted reports whether the scan was interrupted before completing.
func Aborted(stdout string) bool {
	return abortedPattern.MatchString(stdout)
}

package command

import (
	"regexp"
	"sort"
	"strings"
)

// safeValue is the set of characters a value may contain to be substituted.
// It is a filter, not shell escaping.
var safeValue = regexp.MustCompile(`(?i)^[a-z0-9~!@#$%^&*()\-+=_\[\]{}\\|/,.<>?'’: ]+$`)

// Translate replaces each :NAME placeholder in tmpl with values[name].
// Empty values and values that fail the safety filter are skipped, which
// leaves their placeholder in the output. Longer names are substituted first
// so :INTERFACE never clobbers :INTERFACE2.
func Translate(tmpl string, values map[string]string) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		value := values[name]
		if value == "" || !IsSafe(value) {
			continue
		}
		tmpl = strings.ReplaceAll(tmpl, ":"+strings.ToUpper(name), value)
	}
	return tmpl
}

// IsSafe reports whether value passes the substitution filter.
func IsSafe(value string) bool {
	return safeValue.MatchString(value)
}

// HasPlaceholder reports whether a :NAME placeholder survived translation.
func HasPlaceholder(cmd, name string) bool {
	return strings.Contains(cmd, ":"+strings.ToUpper(name))
}

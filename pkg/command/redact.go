package command

import (
	"regexp"
	"sort"
	"strings"
)

const redacted = "******"

var secretFlags = regexp.MustCompile(`(?i)((?:--?|\b)(?:password|passwd|secret|token|access-key|secret-key)(?:=|:|\s+))("[^"]*"|'[^']*'|\S+)`)

// Redact masks the given secret values and the values of password like flags in s
func Redact(s string, secrets ...string) string {
	sorted := append([]string(nil), secrets...)
	// longest first so a secret containing another one is masked whole
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	for _, secret := range sorted {
		if len(secret) < 3 {
			continue
		}
		s = strings.ReplaceAll(s, secret, redacted)
	}
	return secretFlags.ReplaceAllString(s, "${1}"+redacted)
}

package interpolation

import "strings"

// ShellEscape wraps s in single quotes, escaping any embedded single
// quote as '\'' — the POSIX-safe escaping spec.md §4.J / §8 invariant
// 11 requires for ShellCommand context, applied per array element
// independently with no additional escape afterward.
func ShellEscape(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

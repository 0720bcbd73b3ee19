// Package redirect decides whether a caller-supplied return target is safe to
// navigate to after authentication. Every handler that redirects to a value
// taken from a request goes through Resolve.
package redirect

import "strings"

// DefaultTarget is where users land when no usable return target was given.
const DefaultTarget = "/dashboard"

// IsValidRedirectURL reports whether candidate is a same-origin relative path.
// Protocol-relative URLs ("//host") and anything carrying a scheme are rejected.
func IsValidRedirectURL(candidate string) bool {
	if candidate == "" {
		return false
	}
	return strings.HasPrefix(candidate, "/") && !strings.HasPrefix(candidate, "//")
}

// Resolve returns candidate when it passes IsValidRedirectURL, DefaultTarget
// otherwise. Backslashes and ASCII control characters are also refused since
// browsers fold "/\\host" and "/<TAB>/host" into "//host".
func Resolve(candidate string) string {
	if IsValidRedirectURL(candidate) && !strings.ContainsFunc(candidate, unsafeInLocation) {
		return candidate
	}
	return DefaultTarget
}

func unsafeInLocation(r rune) bool {
	return r == '\\' || r < 0x20 || r == 0x7f
}

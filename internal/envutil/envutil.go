package envutil

import "strings"

// IsProduction reports whether env names production, where cookies must
// carry the Secure attribute.
func IsProduction(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "production" || env == "prod"
}

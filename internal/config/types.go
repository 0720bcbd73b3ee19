package config

import (
	"time"

	json "github.com/goccy/go-json"

	"github.com/iqautojobs/jobboard-bff/internal/envutil"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// GoString covers %#v, which bypasses String
func (s Secret) GoString() string {
	return s.String()
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// Config is the resolved service configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080"
	Addr string `koanf:"addr" json:"addr"`
	// BackendURL is the job-board API that owns users and business data
	BackendURL  string `koanf:"backend_url" json:"backendUrl"`
	Environment string `koanf:"environment" json:"environment"`
	// SessionSecret keys the signed session mirror cookie
	SessionSecret Secret `koanf:"session_secret" json:"sessionSecret"`

	BackendTimeout time.Duration `koanf:"backend_timeout" json:"backendTimeout"`
	AllowedOrigins []string      `koanf:"allowed_origins" json:"allowedOrigins"`

	// Per-client limit on login and register attempts
	LoginRateLimit  int           `koanf:"login_rate_limit" json:"loginRateLimit"`
	LoginRateWindow time.Duration `koanf:"login_rate_window" json:"loginRateWindow"`

	// Consecutive backend transport failures before the breaker opens
	BreakerFailures uint32        `koanf:"breaker_failures" json:"breakerFailures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" json:"breakerTimeout"`

	LogLevel  string `koanf:"log_level" json:"logLevel"`
	LogFormat string `koanf:"log_format" json:"logFormat"`
}

// IsProduction reports whether cookies should be marked Secure.
func (c Config) IsProduction() bool {
	return envutil.IsProduction(c.Environment)
}

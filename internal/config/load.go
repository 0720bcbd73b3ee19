package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/iqautojobs/jobboard-bff/internal/crypto"
	"github.com/iqautojobs/jobboard-bff/internal/log"
)

// ConfigPathEnvVar names an optional YAML file layered between defaults and env.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultBackendURL is used when BACKEND_URL is unset.
const DefaultBackendURL = "http://localhost:8000"

const minSessionSecretLength = 32

// envKeys maps environment variable names to config keys. Variables not
// listed here are ignored.
var envKeys = map[string]string{
	"ADDR":              "addr",
	"BACKEND_URL":       "backend_url",
	"APP_ENV":           "environment",
	"SESSION_SECRET":    "session_secret",
	"BACKEND_TIMEOUT":   "backend_timeout",
	"ALLOWED_ORIGINS":   "allowed_origins",
	"LOGIN_RATE_LIMIT":  "login_rate_limit",
	"LOGIN_RATE_WINDOW": "login_rate_window",
	"BREAKER_FAILURES":  "breaker_failures",
	"BREAKER_TIMEOUT":   "breaker_timeout",
	"LOG_LEVEL":         "log_level",
	"LOG_FORMAT":        "log_format",
}

var sliceKeys = []string{"allowed_origins"}

func defaultConfig() Config {
	return Config{
		Addr:            ":8080",
		BackendURL:      DefaultBackendURL,
		Environment:     "development",
		BackendTimeout:  10 * time.Second,
		AllowedOrigins:  []string{"http://localhost:3000"},
		LoginRateLimit:  10,
		LoginRateWindow: time.Minute,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load resolves configuration from defaults, an optional YAML file and the
// environment, in increasing priority. An empty path falls back to
// CONFIG_PATH. A .env file in the working directory is read first when
// present; variables already set are not overridden.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	return LoadFrom(path)
}

// LoadFrom is Load without the .env step, with an explicit YAML path.
// An empty path skips the file layer.
func LoadFrom(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	if err := splitSliceKeys(k); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")

	if cfg.SessionSecret == "" && !cfg.IsProduction() {
		secret, err := crypto.GenerateSecureToken()
		if err != nil {
			return Config{}, err
		}
		cfg.SessionSecret = Secret(secret)
		log.LogWarnWithFields("config", "SESSION_SECRET not set, using an ephemeral secret", map[string]any{
			"environment": cfg.Environment,
		})
	}

	if err := ValidateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// DefaultYAML renders the defaults as a starting config file. The session
// secret is left out; it belongs in the environment.
func DefaultYAML() ([]byte, error) {
	k := koanf.New(".")
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	k.Delete("session_secret")
	for key, d := range map[string]time.Duration{
		"backend_timeout":   defaults.BackendTimeout,
		"login_rate_window": defaults.LoginRateWindow,
		"breaker_timeout":   defaults.BreakerTimeout,
	} {
		if err := k.Set(key, d.String()); err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
	}

	return k.Marshal(yaml.Parser())
}

func envKey(name string) string {
	return envKeys[name]
}

// splitSliceKeys turns comma-separated env values into lists. YAML lists
// pass through untouched.
func splitSliceKeys(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		raw, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		parts := []string{}
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(key, parts); err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
	}
	return nil
}

// ValidateConfig validates the resolved configuration
func ValidateConfig(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("addr is required")
	}

	u, err := url.Parse(cfg.BackendURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("backend_url must be an absolute http(s) URL, got %q", cfg.BackendURL)
	}

	if len(cfg.SessionSecret) < minSessionSecretLength {
		return fmt.Errorf("session_secret must be at least %d bytes", minSessionSecretLength)
	}

	if cfg.BackendTimeout <= 0 {
		return fmt.Errorf("backend_timeout must be positive")
	}
	if cfg.LoginRateLimit < 0 {
		return fmt.Errorf("login_rate_limit must not be negative")
	}
	if cfg.LoginRateLimit > 0 && cfg.LoginRateWindow <= 0 {
		return fmt.Errorf("login_rate_window must be positive when login_rate_limit is set")
	}
	if cfg.BreakerFailures == 0 {
		return fmt.Errorf("breaker_failures must be at least 1")
	}
	if cfg.BreakerTimeout <= 0 {
		return fmt.Errorf("breaker_timeout must be positive")
	}

	if slices.Contains(cfg.AllowedOrigins, "*") {
		return fmt.Errorf("allowed_origins cannot contain * because responses carry credentials")
	}

	if !slices.Contains([]string{"", "json", "text"}, strings.ToLower(cfg.LogFormat)) {
		return fmt.Errorf("log_format must be json or text, got %q", cfg.LogFormat)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables consulted by ApplyEnv. GEMINI_API_KEY takes
// precedence over INFERD_API_KEY.
const (
	EnvConfig = "INFERD_CONFIG"
	EnvAPIKey = "GEMINI_API_KEY"
	envPrefix = "INFERD_"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment without overriding variables already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with INFERD_* variables and the API key variables.
func ApplyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %q is not an integer", envPrefix, name, v)
		}
		*dst = n
		return nil
	}
	flag := func(name string, dst *bool) error {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %q is not a boolean", envPrefix, name, v)
		}
		*dst = b
		return nil
	}

	str("HOST", &cfg.Host)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("BACKEND", &cfg.Backend.Provider)
	str("BASE_URL", &cfg.Backend.BaseURL)
	str("MODEL", &cfg.Backend.Model)
	str("MODELS_DIR", &cfg.Backend.ModelsDir)
	str("METRICS_ADDR", &cfg.Metrics.Addr)
	str("OTLP_ENDPOINT", &cfg.Telemetry.Endpoint)
	str("PYROSCOPE_ENDPOINT", &cfg.Profiling.Endpoint)
	str("API_KEY", &cfg.Backend.APIKey)
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.Backend.APIKey = v
	}

	for name, dst := range map[string]*int{
		"PORT":                    &cfg.Port,
		"WORKERS":                 &cfg.Workers,
		"DRAIN_TIMEOUT_SECONDS":   &cfg.DrainTimeoutSeconds,
		"REQUEST_TIMEOUT_SECONDS": &cfg.RequestTimeoutSeconds,
		"MAX_TOKENS":              &cfg.Backend.MaxTokens,
		"STUB_DELAY_MS":           &cfg.Backend.StubDelayMS,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}
	for name, dst := range map[string]*bool{
		"REFLECTION":        &cfg.Reflection,
		"TELEMETRY_ENABLED": &cfg.Telemetry.Enabled,
		"PROFILING_ENABLED": &cfg.Profiling.Enabled,
	} {
		if err := flag(name, dst); err != nil {
			return err
		}
	}
	return nil
}

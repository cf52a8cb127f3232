// Package config loads inferd settings from defaults, an optional file and
// the environment.
package config

import (
	"time"

	"inferd/internal/backend"
	"inferd/internal/server"
	"inferd/internal/telemetry"
)

// Config holds runtime parameters for the service.
type Config struct {
	Host                  string `json:"host" yaml:"host" toml:"host"`
	Port                  int    `json:"port" yaml:"port" toml:"port" validate:"gte=0,lte=65535"`
	Workers               int    `json:"workers" yaml:"workers" toml:"workers" validate:"gte=1"`
	DrainTimeoutSeconds   int    `json:"drain_timeout_seconds" yaml:"drain_timeout_seconds" toml:"drain_timeout_seconds" validate:"gte=1"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds" validate:"gte=0"`
	Reflection            bool   `json:"reflection" yaml:"reflection" toml:"reflection"`

	Log       LogConfig       `json:"log" yaml:"log" toml:"log"`
	Backend   BackendConfig   `json:"backend" yaml:"backend" toml:"backend"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics" toml:"metrics"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry" toml:"telemetry"`
	Profiling ProfilingConfig `json:"profiling" yaml:"profiling" toml:"profiling"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level" validate:"omitempty,oneof=trace debug info warn error off"`
	Format string `json:"format" yaml:"format" toml:"format" validate:"omitempty,oneof=json console"`
}

// BackendConfig selects the generation provider.
type BackendConfig struct {
	Provider       string `json:"provider" yaml:"provider" toml:"provider" validate:"oneof=stub openai llama"`
	APIKey         string `json:"api_key" yaml:"api_key" toml:"api_key" validate:"required_if=Provider openai"`
	BaseURL        string `json:"base_url" yaml:"base_url" toml:"base_url" validate:"omitempty,url"`
	Model          string `json:"model" yaml:"model" toml:"model"`
	MaxTokens      int    `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens" validate:"gte=0"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds" validate:"gte=0"`
	StubDelayMS    int    `json:"stub_delay_ms" yaml:"stub_delay_ms" toml:"stub_delay_ms" validate:"gte=0"`
	ModelsDir      string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	Threads        int    `json:"threads" yaml:"threads" toml:"threads" validate:"gte=0"`
	ContextSize    int    `json:"context_size" yaml:"context_size" toml:"context_size" validate:"gte=0"`
}

// MetricsConfig controls the HTTP sidecar. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
}

type TelemetryConfig struct {
	Enabled    bool    `json:"enabled" yaml:"enabled" toml:"enabled"`
	Endpoint   string  `json:"endpoint" yaml:"endpoint" toml:"endpoint" validate:"required_if=Enabled true"`
	Insecure   bool    `json:"insecure" yaml:"insecure" toml:"insecure"`
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate" toml:"sample_rate" validate:"gte=0,lte=1"`
}

type ProfilingConfig struct {
	Enabled      bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Endpoint     string   `json:"endpoint" yaml:"endpoint" toml:"endpoint" validate:"required_if=Enabled true"`
	ProfileTypes []string `json:"profile_types" yaml:"profile_types" toml:"profile_types"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	tel := telemetry.DefaultConfig()
	return Config{
		Port:                server.DefaultPort,
		Workers:             server.DefaultWorkers,
		DrainTimeoutSeconds: int(server.DefaultDrainTimeout / time.Second),
		Log:                 LogConfig{Level: "info", Format: "json"},
		Backend: BackendConfig{
			Provider: backend.ProviderOpenAI,
			BaseURL:  backend.DefaultOpenAIBaseURL,
			Model:    backend.DefaultOpenAIModel,
		},
		Metrics: MetricsConfig{Addr: ":9090"},
		Telemetry: TelemetryConfig{
			Endpoint:   tel.Endpoint,
			Insecure:   tel.Insecure,
			SampleRate: tel.SampleRate,
		},
		Profiling: ProfilingConfig{
			Endpoint:     "http://localhost:4040",
			ProfileTypes: []string{"cpu", "alloc_space", "inuse_space", "goroutines"},
		},
	}
}

// ServerConfig projects the listener settings.
func (c Config) ServerConfig() server.Config {
	return server.Config{
		Host:         c.Host,
		Port:         c.Port,
		Workers:      c.Workers,
		DrainTimeout: time.Duration(c.DrainTimeoutSeconds) * time.Second,
		Reflection:   c.Reflection,
	}
}

// BackendConfig projects the provider settings.
func (c Config) BackendConfig() backend.Config {
	b := c.Backend
	return backend.Config{
		Provider:    b.Provider,
		APIKey:      b.APIKey,
		BaseURL:     b.BaseURL,
		Model:       b.Model,
		MaxTokens:   b.MaxTokens,
		Timeout:     time.Duration(b.TimeoutSeconds) * time.Second,
		StubDelay:   time.Duration(b.StubDelayMS) * time.Millisecond,
		ModelsDir:   b.ModelsDir,
		Threads:     b.Threads,
		ContextSize: b.ContextSize,
	}
}

// RequestTimeout is the per-call bound applied by the handler.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// TelemetryConfig projects the tracing settings.
func (c Config) TelemetryConfig(version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    "inferd",
		ServiceVersion: version,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		SampleRate:     c.Telemetry.SampleRate,
	}
}

// ProfilingConfig projects the profiling settings.
func (c Config) ProfilingConfig(version string) telemetry.ProfilingConfig {
	return telemetry.ProfilingConfig{
		Enabled:        c.Profiling.Enabled,
		ServiceName:    "inferd",
		ServiceVersion: version,
		Endpoint:       c.Profiling.Endpoint,
		ProfileTypes:   c.Profiling.ProfileTypes,
	}
}

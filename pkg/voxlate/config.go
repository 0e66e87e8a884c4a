package voxlate

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/voxlate/voxlate/pkg/voice"
)

// Config is the file-backed service configuration. Durations are
// expressed in milliseconds in the file and converted on load.
type Config struct {
	Endpoint   string `mapstructure:"endpoint"`
	Credential string `mapstructure:"credential"`
	Model      string `mapstructure:"model"`

	ChunkDurationMS   int  `mapstructure:"chunk_duration_ms"`
	IdleTimeoutMS     int  `mapstructure:"idle_timeout_ms"`
	FragmentTimeoutMS int  `mapstructure:"fragment_timeout_ms"`
	MaxReorderWindow  int  `mapstructure:"max_reorder_window"`
	GrowOnOverflow    bool `mapstructure:"grow_on_overflow"`

	MaxRetries     int `mapstructure:"max_retries"`
	RetryBackoffMS int `mapstructure:"retry_backoff_ms"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Profile carries free-form request defaults (voice, mode) applied
	// when a request leaves them unset.
	Profile map[string]any `mapstructure:"profile"`
}

// ProfileDefaults are the decoded request defaults from the profile
// settings map.
type ProfileDefaults struct {
	Voice string `mapstructure:"voice"`
	Mode  string `mapstructure:"mode"`
}

func (c Config) ProfileDefaults() (ProfileDefaults, error) {
	defaults := ProfileDefaults{
		Voice: string(voice.Alloy),
		Mode:  string(voice.ModePreserve),
	}
	if err := DecodeSettings(c.Profile, &defaults); err != nil {
		return ProfileDefaults{}, fmt.Errorf("decode profile defaults: %w", err)
	}
	p := voice.Profile{Voice: voice.ID(defaults.Voice), Mode: voice.PreservationMode(defaults.Mode)}
	if err := p.Validate(); err != nil {
		return ProfileDefaults{}, err
	}
	return defaults, nil
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("endpoint", "wss://api.openai.com/v1/realtime")
	v.SetDefault("model", "gpt-realtime")
	v.SetDefault("chunk_duration_ms", 100)
	v.SetDefault("idle_timeout_ms", 30000)
	v.SetDefault("fragment_timeout_ms", 10000)
	v.SetDefault("max_reorder_window", 16)
	v.SetDefault("grow_on_overflow", false)
	v.SetDefault("max_retries", 2)
	v.SetDefault("retry_backoff_ms", 200)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	// Credentials usually arrive as ${ENV_VAR} references.
	cfg.Endpoint = os.ExpandEnv(cfg.Endpoint)
	cfg.Credential = os.ExpandEnv(cfg.Credential)
	cfg.Model = os.ExpandEnv(cfg.Model)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	if _, err := cfg.ProfileDefaults(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("endpoint is required")
	}
	if strings.TrimSpace(c.Credential) == "" {
		return fmt.Errorf("credential is required")
	}
	if c.ChunkDurationMS <= 0 {
		return fmt.Errorf("chunk_duration_ms must be positive")
	}
	if c.MaxReorderWindow <= 0 {
		return fmt.Errorf("max_reorder_window must be positive")
	}
	return nil
}

func (c Config) ChunkDuration() time.Duration {
	return time.Duration(c.ChunkDurationMS) * time.Millisecond
}

func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMS) * time.Millisecond
}

func (c Config) FragmentTimeout() time.Duration {
	return time.Duration(c.FragmentTimeoutMS) * time.Millisecond
}

func (c Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

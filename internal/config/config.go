package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Limits   LimitsConfig   `mapstructure:"limits"`
}

// HTTPConfig contains admin HTTP server settings.
// Respects Go stdlib net/http defaults where appropriate.
type HTTPConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // seconds, default 30
	WriteTimeout    int `mapstructure:"write_timeout"`    // seconds, default 30
	IdleTimeout     int `mapstructure:"idle_timeout"`     // seconds, default 120
	MaxHeaderBytes  int `mapstructure:"max_header_bytes"` // bytes, stdlib default 1MB
	MaxBodyBytes    int `mapstructure:"max_body_bytes"`   // bytes, NO stdlib default!
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // seconds, default 10
}

// PipelineConfig contains discovery-pipeline runtime settings.
type PipelineConfig struct {
	EventBufferSize  int `mapstructure:"event_buffer_size"`  // eventbus channel capacity
	MaxPayloadBytes  int `mapstructure:"max_payload_bytes"`  // not read by the service; request bodies are bounded by http.max_body_bytes
	GateWaitWarnMS   int `mapstructure:"gate_wait_warn_ms"`  // reserved for future contention diagnostics
}

// CatalogConfig selects and configures the persistence backend.
type CatalogConfig struct {
	Driver     string `mapstructure:"driver"`       // "memory" or "sqlite"
	SQLitePath string `mapstructure:"sqlite_path"`  // file path when driver == "sqlite"
}

// LimitsConfig contains application-level limits. They are loaded from
// configuration only; nothing in the service reads them.
type LimitsConfig struct {
	Rules RuleLimits `mapstructure:"rules"`
}

// RuleLimits holds configured rule/condition/macro-path size limits. The
// admin API does not apply them, and they are not passed to
// pkg/models.RuleLimits.
type RuleLimits struct {
	MaxKeyLength      int `mapstructure:"max_key_length"`
	MaxFormulaLength  int `mapstructure:"max_formula_length"`
	MaxLifetimeSpec   int `mapstructure:"max_lifetime_spec"`
	MaxConditions     int `mapstructure:"max_conditions"`
	MaxRulesPerImport int `mapstructure:"max_rules_per_import"`
}

// Load reads configuration from file and environment variables.
// Priority: env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override everything:
	// LLD_HTTP_PORT, LLD_CATALOG_DRIVER, etc.
	v.SetEnvPrefix("LLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 12021)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)
	v.SetDefault("http.idle_timeout", 120)
	v.SetDefault("http.max_header_bytes", 32768)
	v.SetDefault("http.max_body_bytes", 10485760) // 10MB - stdlib has NO limit!
	v.SetDefault("http.shutdown_timeout", 10)

	v.SetDefault("pipeline.event_buffer_size", 256)
	v.SetDefault("pipeline.max_payload_bytes", 10485760) // 10MB
	v.SetDefault("pipeline.gate_wait_warn_ms", 500)

	v.SetDefault("catalog.driver", "memory")
	v.SetDefault("catalog.sqlite_path", "lld.db")

	v.SetDefault("limits.rules.max_key_length", 255)
	v.SetDefault("limits.rules.max_formula_length", 65536) // 64KB
	v.SetDefault("limits.rules.max_lifetime_spec", 64)
	v.SetDefault("limits.rules.max_conditions", 256)
	v.SetDefault("limits.rules.max_rules_per_import", 1000)
}

/*
Package config loads runtime configuration from environment variables and an
optional YAML file.

PRECEDENCE (highest first):
  1. Environment variables, prefixed FINLENS_ (FINLENS_PORT, FINLENS_DB_PATH,
     nested keys joined with underscores: FINLENS_NARRATIVE_API_KEY)
  2. YAML config file, when a path is given
  3. Built-in defaults

KEYS:
  port                 HTTP server port               (default 8080)
  db_path              SQLite database path           (default finlens.db)
  benchmark_csv        Industry norms CSV override    (default: embedded table)
  cors_origins         Allowed CORS origins           (default localhost dev ports)
  narrative.provider   "anthropic" or "fallback"      (default fallback)
  narrative.api_key    Anthropic API key
  narrative.model      Model override
*/
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	Port         int      `mapstructure:"port"`
	DBPath       string   `mapstructure:"db_path"`
	BenchmarkCSV string   `mapstructure:"benchmark_csv"`
	CORSOrigins  []string `mapstructure:"cors_origins"`

	Narrative Narrative `mapstructure:"narrative"`
}

// Narrative configures the insight generator.
type Narrative struct {
	Provider    string  `mapstructure:"provider"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// Load resolves configuration. cfgFile may be empty, in which case only
// environment variables and defaults apply.
func Load(cfgFile string) (Config, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "finlens.db")
	v.SetDefault("benchmark_csv", "")
	v.SetDefault("cors_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("narrative.provider", "fallback")
	// Defaults for every key so environment-only values survive Unmarshal.
	v.SetDefault("narrative.api_key", "")
	v.SetDefault("narrative.model", "")
	v.SetDefault("narrative.max_tokens", 0)
	v.SetDefault("narrative.temperature", 0.0)

	v.SetEnvPrefix("FINLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultContract is the book voting contract deployed on the aeternity testnet.
const DefaultContract = "ct_FHQHahXTQ9x8MqY1sjXkJC1PbrfWHMPSmTejax1LbwDpqDAj5"

// Config holds all application configuration.
type Config struct {
	AppAddr        string `mapstructure:"app_addr"`
	InternalSecret string `mapstructure:"internal_secret"`
	EnableHSTS     bool   `mapstructure:"enable_hsts"`
	LogLevel       string `mapstructure:"log_level"`

	Ledger LedgerConfig `mapstructure:"ledger"`

	DBDSN        string        `mapstructure:"db_dsn"`
	SnapshotPath string        `mapstructure:"snapshot_path"`
	ShelfTTL     time.Duration `mapstructure:"shelf_ttl"`
	// ShelfLoadTimeout bounds one full reload of both lists.
	ShelfLoadTimeout time.Duration `mapstructure:"shelf_load_timeout"`

	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	MaxBodyBytes   int64   `mapstructure:"max_body_bytes"`

	// CORSOrigins may read the JSON API from a browser on another origin.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LedgerConfig describes how to reach the contract gateway.
type LedgerConfig struct {
	GatewayURL    string        `mapstructure:"gateway_url"`
	Contract      string        `mapstructure:"contract"`
	Account       string        `mapstructure:"account"`
	GatewaySecret string        `mapstructure:"gateway_secret"`
	RPS           int           `mapstructure:"rps"`
	MaxRetries    int           `mapstructure:"max_retries"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

var defaults = map[string]any{
	"app_addr":              ":8080",
	"internal_secret":       "",
	"enable_hsts":           false,
	"log_level":             "info",
	"ledger.gateway_url":    "http://localhost:3013",
	"ledger.contract":       DefaultContract,
	"ledger.account":        "",
	"ledger.gateway_secret": "",
	"ledger.rps":            5,
	"ledger.max_retries":    2,
	"ledger.timeout":        "15s",
	"db_dsn":                "",
	"snapshot_path":         "",
	"shelf_ttl":             "30s",
	"shelf_load_timeout":    "2m",
	"rate_limit_rps":        10.0,
	"rate_limit_burst":      20,
	"max_body_bytes":        1 << 20,
	"cors_origins":          []string{},
}

// LoadEnvFiles loads .env and .env.local without overriding variables already
// present in the process environment.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load reads configuration from an optional bookvote.yaml (current directory or
// configFile when set) and the environment. Environment variables win.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("bookvote")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Ledger.GatewayURL == "" {
		return errors.New("LEDGER_GATEWAY_URL is required")
	}
	if c.Ledger.Contract == "" {
		return errors.New("LEDGER_CONTRACT is required")
	}
	if c.Ledger.RPS <= 0 {
		return fmt.Errorf("LEDGER_RPS must be positive, got %d", c.Ledger.RPS)
	}
	if c.Ledger.MaxRetries < 0 {
		return fmt.Errorf("LEDGER_MAX_RETRIES must not be negative, got %d", c.Ledger.MaxRetries)
	}
	return nil
}

// JournalEnabled reports whether write submissions are recorded in Postgres.
func (c *Config) JournalEnabled() bool {
	return c.DBDSN != ""
}

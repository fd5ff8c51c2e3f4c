package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samvad-hq/optimus/pkg/optimus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files, environment variables and flags.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIKey                string         `mapstructure:"optimus_api_key"`
	Endpoint              string         `mapstructure:"optimus_endpoint"`
	OptionName            string         `mapstructure:"optimus_option"`
	Option                optimus.Option `mapstructure:"-"`
	RequestTimeoutSeconds int64          `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration  `mapstructure:"-"`
	SourceTimeoutSeconds  int64          `mapstructure:"source_timeout_seconds"`
	SourceTimeout         time.Duration  `mapstructure:"-"`

	PublishersFile string `mapstructure:"publishers_file"`

	HistoryType            string        `mapstructure:"history_type"`
	HistoryPath            string        `mapstructure:"history_path"`
	HistoryTTLSeconds      int64         `mapstructure:"history_ttl_seconds"`
	HistoryCleanupSeconds  int64         `mapstructure:"history_cleanup_interval_seconds"`
	HistoryTTL             time.Duration `mapstructure:"-"`
	HistoryCleanupInterval time.Duration `mapstructure:"-"`

	MinIO MinIOConfig `mapstructure:",squash"`
}

// MinIOConfig configures the s3:// image source.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"minio_endpoint"`
	AccessKey string `mapstructure:"minio_access_key"`
	SecretKey string `mapstructure:"minio_secret_key"`
	UseSSL    bool   `mapstructure:"minio_use_ssl"`
	Region    string `mapstructure:"minio_region"`
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"api-key":   "optimus_api_key",
	"endpoint":  "optimus_endpoint",
	"option":    "optimus_option",
	"timeout":   "request_timeout_seconds",
	"log-level": "log_level",
	"history":   "history_path",
}

// Load reads configuration from the .env file, environment variables and the
// given flag set. Flags that were not set on the command line do not shadow
// environment values.
func Load(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "optimus")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("optimus_api_key", "")
	v.SetDefault("optimus_endpoint", optimus.DefaultEndpoint)
	v.SetDefault("optimus_option", string(optimus.OptionOptimize))
	v.SetDefault("request_timeout_seconds", 120)
	v.SetDefault("source_timeout_seconds", 30)
	v.SetDefault("publishers_file", "")
	v.SetDefault("history_type", "bbolt")
	v.SetDefault("history_path", "./data/history.db")
	v.SetDefault("history_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("history_cleanup_interval_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("minio_endpoint", "")
	v.SetDefault("minio_access_key", "")
	v.SetDefault("minio_secret_key", "")
	v.SetDefault("minio_use_ssl", true)
	v.SetDefault("minio_region", "")

	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if cfg.Endpoint == "" {
		cfg.Endpoint = optimus.DefaultEndpoint
	}

	opt, err := optimus.ParseOption(cfg.OptionName)
	if err != nil {
		return fmt.Errorf("invalid optimus_option: %w", err)
	}
	cfg.Option = opt

	if cfg.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("invalid request_timeout_seconds (must be zero or positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	if cfg.SourceTimeoutSeconds < 0 {
		return fmt.Errorf("invalid source_timeout_seconds (must be zero or positive seconds)")
	}
	cfg.SourceTimeout = time.Duration(cfg.SourceTimeoutSeconds) * time.Second

	if cfg.HistoryTTLSeconds <= 0 {
		return fmt.Errorf("invalid history_ttl_seconds (must be positive seconds)")
	}
	if cfg.HistoryCleanupSeconds <= 0 {
		return fmt.Errorf("invalid history_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.HistoryTTL = time.Duration(cfg.HistoryTTLSeconds) * time.Second
	cfg.HistoryCleanupInterval = time.Duration(cfg.HistoryCleanupSeconds) * time.Second

	return nil
}

// Redacted returns a copy safe to log.
func (cfg Config) Redacted() Config {
	cfg.APIKey = mask(cfg.APIKey)
	cfg.MinIO.SecretKey = mask(cfg.MinIO.SecretKey)
	return cfg
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	envPrefix = "FACULTYDASH"

	defaultAPIURL           = "http://localhost:8000"
	defaultEnvironment      = "development"
	defaultLogLevel         = "info"
	defaultStorageDSN       = ":memory:"
	defaultMailDismissDelay = 2 * time.Second
)

// Config holds the client settings
type Config struct {
	BaseURL     string
	Environment string

	LogFile  string
	LogLevel string

	// StorageDSN is the sqlite DSN of the local transcript store.
	// The default keeps everything in memory for the lifetime of the process.
	StorageDSN string

	// HTTPTimeout of zero leaves the transport defaults in place.
	HTTPTimeout      time.Duration
	MailDismissDelay time.Duration

	OtelEnabled bool
}

// NewConfig returns a Config with defaults pointing at baseURL
func NewConfig(baseURL string) *Config {
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	return &Config{
		BaseURL:          strings.TrimRight(baseURL, "/"),
		Environment:      defaultEnvironment,
		LogLevel:         defaultLogLevel,
		StorageDSN:       defaultStorageDSN,
		MailDismissDelay: defaultMailDismissDelay,
	}
}

// Load reads .env, FACULTYDASH_* environment variables and the optional config file.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load .env")
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("api_url", defaultAPIURL)
	v.SetDefault("env", defaultEnvironment)
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("storage_dsn", defaultStorageDSN)
	v.SetDefault("http_timeout", time.Duration(0))
	v.SetDefault("mail_dismiss_delay", defaultMailDismissDelay)
	v.SetDefault("otel_enabled", false)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}

	cfg := NewConfig(v.GetString("api_url"))
	cfg.Environment = v.GetString("env")
	cfg.LogFile = v.GetString("log_file")
	cfg.LogLevel = v.GetString("log_level")
	cfg.StorageDSN = v.GetString("storage_dsn")
	cfg.HTTPTimeout = v.GetDuration("http_timeout")
	cfg.MailDismissDelay = v.GetDuration("mail_dismiss_delay")
	cfg.OtelEnabled = v.GetBool("otel_enabled")

	if cfg.HTTPTimeout < 0 {
		return nil, errors.Errorf("http_timeout must not be negative, got %s", cfg.HTTPTimeout)
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment != "production" && c.Environment != "prod"
}

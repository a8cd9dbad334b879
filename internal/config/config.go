package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Service   svcConfig
	Limits    limitsConfig
	Engine    engineConfig
	Janitor   janitorConfig
	Workers   workersConfig
	Transport transportConfig
}

type svcConfig struct {
	Address     string `envconfig:"INSTAWEB_ADDRESS" default:":5000"`
	APIKey      string `envconfig:"INSTAWEB_API_KEY" default:""`
	DownloadDir string `envconfig:"INSTAWEB_DOWNLOAD_DIR" default:"./downloads"`
	LogLevel    string `envconfig:"INSTAWEB_LOG_LEVEL" default:"info"`
}

type limitsConfig struct {
	// Count requests are admitted per client per WindowSeconds.
	Count         int `envconfig:"RATE_LIMIT_COUNT" default:"5"`
	WindowSeconds int `envconfig:"RATE_LIMIT_WINDOW" default:"3600"`
	Concurrent    int `envconfig:"RATE_LIMIT_CONCURRENT" default:"3"`
}

type engineConfig struct {
	BinaryPath        string `envconfig:"YTDLP_PATH" default:""`
	FFmpegPath        string `envconfig:"FFMPEG_PATH" default:""`
	CookiesFile       string `envconfig:"INSTAWEB_COOKIES_FILE" default:""`
	Install           bool   `envconfig:"YTDLP_INSTALL" default:"true"`
	ForceUpdate       bool   `envconfig:"YTDLP_FORCE_UPDATE" default:"false"`
	AutoUpdate        bool   `envconfig:"YTDLP_AUTO_UPDATE" default:"false"`
	UpdateIntervalMin int    `envconfig:"YTDLP_UPDATE_INTERVAL_MIN" default:"60"`
}

type janitorConfig struct {
	Interval  time.Duration `envconfig:"JANITOR_INTERVAL" default:"60s"`
	Retention time.Duration `envconfig:"JANITOR_RETENTION" default:"30m"`
}

type workersConfig struct {
	PoolSize  int `envconfig:"WORKER_POOL_SIZE" default:"4"`
	QueueSize int `envconfig:"WORKER_QUEUE_SIZE" default:"100"`
}

type transportConfig struct {
	EventsPollInterval time.Duration `envconfig:"EVENTS_POLL_INTERVAL" default:"500ms"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

// New reads the configuration from the environment.
func New() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Limits.Count < 1:
		return fmt.Errorf("RATE_LIMIT_COUNT must be at least 1, got %d", c.Limits.Count)
	case c.Limits.WindowSeconds < 1:
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1, got %d", c.Limits.WindowSeconds)
	case c.Limits.Concurrent < 1:
		return fmt.Errorf("RATE_LIMIT_CONCURRENT must be at least 1, got %d", c.Limits.Concurrent)
	case c.Workers.PoolSize < 1:
		return fmt.Errorf("WORKER_POOL_SIZE must be at least 1, got %d", c.Workers.PoolSize)
	case c.Workers.QueueSize < 1:
		return fmt.Errorf("WORKER_QUEUE_SIZE must be at least 1, got %d", c.Workers.QueueSize)
	case c.Janitor.Interval <= 0 || c.Janitor.Retention <= 0:
		return fmt.Errorf("janitor interval and retention must be positive")
	case c.Transport.EventsPollInterval <= 0:
		return fmt.Errorf("EVENTS_POLL_INTERVAL must be positive")
	}
	return nil
}

// RateWindow is the rate-limit window as a duration.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.Limits.WindowSeconds) * time.Second
}

// UpdateInterval is the engine auto-update period, never below a minute.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(max(1, c.Engine.UpdateIntervalMin)) * time.Minute
}

func (c *Config) String() string {
	apiKey := "unset"
	if c.Service.APIKey != "" {
		apiKey = "set"
	}
	return fmt.Sprintf("address=%s download_dir=%s api_key=%s rate=%d/%ds concurrent=%d workers=%d queue=%d retention=%s",
		c.Service.Address, c.Service.DownloadDir, apiKey,
		c.Limits.Count, c.Limits.WindowSeconds, c.Limits.Concurrent,
		c.Workers.PoolSize, c.Workers.QueueSize, c.Janitor.Retention)
}

package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath   string `long:"db-path" env:"DB_PATH" default:"./data/links.db" description:"Path to the SQLite content database"`
	SiteFile string `long:"site-file" env:"SITE_FILE" default:"./site.yml" description:"Path to the site profile YAML file"`

	// HTTP configuration
	Port      string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIPrefix string `long:"api-prefix" env:"API_PREFIX" default:"/wp-json" description:"Path prefix mounted in front of the REST namespace"`
	APIKey    string `long:"api-key" env:"SUPERMAN_LINKS_API_KEY" description:"API key stored on startup (a random key is generated when none is stored)"`

	// Webhook configuration
	WebhookURL     string `long:"webhook-url" env:"WEBHOOK_URL" description:"Endpoint receiving post lifecycle notifications"`
	WebhookToken   string `long:"webhook-token" env:"WEBHOOK_TOKEN" description:"Bearer credential sent with webhook notifications"`
	WebhookTimeout int    `long:"webhook-timeout" env:"WEBHOOK_TIMEOUT" default:"10" description:"Webhook delivery timeout in seconds"`

	// Background processing
	WorkerCount       int `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`
	SchedulerInterval int `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"3600" description:"Scheduler interval in seconds"`

	// Cache and release channel
	RedisAddr       string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the shared cache (in-memory cache when empty)"`
	ReleaseFeedURL  string `long:"release-feed-url" env:"RELEASE_FEED_URL" default:"https://github.com/superman-links/links-bridge/releases.atom" description:"Releases feed checked for newer versions"`
	ReleaseCacheTTL int    `long:"release-cache-ttl" env:"RELEASE_CACHE_TTL" default:"43200" description:"Release check cache lifetime in seconds"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := fromRaw(raw)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func (c *Cfg) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DBPath, validation.Required),
		validation.Field(&c.Port, validation.Required, is.Port),
		validation.Field(&c.WebhookURL, is.URL),
		validation.Field(&c.WebhookTimeout, validation.Required, validation.Min(1), validation.Max(120)),
		validation.Field(&c.WorkerCount, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.SchedulerInterval, validation.Required, validation.Min(60)),
		validation.Field(&c.ReleaseFeedURL, is.URL),
		validation.Field(&c.ReleaseCacheTTL, validation.Min(0)),
	)
}

func (c *Cfg) WebhookTimeoutDuration() time.Duration {
	return time.Duration(c.WebhookTimeout) * time.Second
}

func (c *Cfg) ReleaseCacheTTLDuration() time.Duration {
	return time.Duration(c.ReleaseCacheTTL) * time.Second
}

func fromRaw(raw rawCfg) *Cfg {
	return &Cfg{
		DBPath:            raw.DBPath,
		SiteFile:          raw.SiteFile,
		Port:              raw.Port,
		APIPrefix:         raw.APIPrefix,
		APIKey:            raw.APIKey,
		WebhookURL:        raw.WebhookURL,
		WebhookToken:      raw.WebhookToken,
		WebhookTimeout:    raw.WebhookTimeout,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		RedisAddr:         raw.RedisAddr,
		ReleaseFeedURL:    raw.ReleaseFeedURL,
		ReleaseCacheTTL:   raw.ReleaseCacheTTL,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}
}

// loadDotEnv reads .env from the working directory when present. Values
// already in the environment win.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}

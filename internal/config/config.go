// Package config loads the YAML configuration, applies environment overrides and validates the result.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/competition-radar/internal/delivery"
	"github.com/jonathan/competition-radar/internal/llm"
	"github.com/jonathan/competition-radar/internal/relocation"
	"github.com/jonathan/competition-radar/internal/retry"
	"github.com/jonathan/competition-radar/internal/sources"
	"github.com/jonathan/competition-radar/internal/types"
)

// Environment variables
const (
	EnvConfigPath       = "RADAR_CONFIG"
	EnvDatabaseURL      = "DATABASE_URL"
	EnvGeminiAPIKey     = "GEMINI_API_KEY"
	EnvOpenAIAPIKey     = "OPENAI_API_KEY"
	EnvSocialToken      = "SOCIAL_API_TOKEN"
	EnvStorageAccessKey = "STORAGE_ACCESS_KEY"
	EnvStorageSecretKey = "STORAGE_SECRET_KEY"
	EnvTelegramToken    = "TELEGRAM_BOT_TOKEN"
	EnvGatewayAPIKey    = "WA_API_KEY"
	EnvLogLevel         = "LOG_LEVEL"
)

const defaultTimezone = "Asia/Jakarta"

// Config is the full application configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Sources    []SourceConfig   `yaml:"sources" validate:"required,min=1,dive"`
	Collector  CollectorConfig  `yaml:"collector"`
	Relocation RelocationConfig `yaml:"relocation"`
	Storage    StorageConfig    `yaml:"storage"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Batch      BatchConfig      `yaml:"batch"`
	Delivery   DeliveryConfig   `yaml:"delivery"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig describes the Postgres connection.
type DatabaseConfig struct {
	URL      string `yaml:"url" validate:"required"`
	MaxConns int32  `yaml:"max_conns" validate:"min=1"`
}

// SourceConfig describes one upstream source.
type SourceConfig struct {
	ID                string        `yaml:"id" validate:"required"`
	Kind              string        `yaml:"kind" validate:"required,oneof=html social feed"`
	Preset            string        `yaml:"preset" validate:"required_if=Kind html"`
	BaseURL           string        `yaml:"base_url" validate:"omitempty,url"`
	ListingURL        string        `yaml:"listing_url" validate:"required_unless=Kind social"`
	Accounts          []string      `yaml:"accounts" validate:"required_if=Kind social"`
	Token             string        `yaml:"token"`
	ItemCap           int           `yaml:"item_cap" validate:"min=0"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"min=0"`
	DetailConcurrency int           `yaml:"detail_concurrency" validate:"min=0"`
	RenderWithBrowser bool          `yaml:"render_with_browser"`
	Retry             *retry.Policy `yaml:"retry"`
}

// CollectorConfig holds the retry policies applied to sources without their own.
type CollectorConfig struct {
	Retry struct {
		HTML   retry.Policy `yaml:"html"`
		Social retry.Policy `yaml:"social"`
	} `yaml:"retry"`
}

// RelocationConfig tunes the poster relocation batches.
type RelocationConfig struct {
	BatchSize      int           `yaml:"batch_size" validate:"min=1"`
	BatchPause     time.Duration `yaml:"batch_pause"`
	MaxAttempts    int           `yaml:"max_attempts" validate:"min=1"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	Jitter         float64       `yaml:"jitter" validate:"min=0,max=1"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StorageConfig describes the S3-compatible poster bucket.
type StorageConfig struct {
	Endpoint      string `yaml:"endpoint" validate:"required"`
	Region        string `yaml:"region"`
	Bucket        string `yaml:"bucket" validate:"required"`
	PublicBaseURL string `yaml:"public_base_url" validate:"required,url"`
	UseSSL        bool   `yaml:"use_ssl"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
}

// ProvidersConfig configures the extraction models.
type ProvidersConfig struct {
	Gemini struct {
		TextModel   string `yaml:"text_model"`
		VisionModel string `yaml:"vision_model"`
		APIKey      string `yaml:"api_key"`
	} `yaml:"gemini"`
	OpenAI struct {
		BaseURL string `yaml:"base_url" validate:"omitempty,url"`
		Model   string `yaml:"model"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"openai"`
	Timeout time.Duration `yaml:"timeout"`
}

// BatchConfig tunes the enrichment scheduler.
type BatchConfig struct {
	GroupSize int `yaml:"group_size" validate:"min=1"`
}

// DeliveryConfig lists the broadcast channels.
type DeliveryConfig struct {
	Timezone string `yaml:"timezone"`
	Gateway  struct {
		BaseURL string        `yaml:"base_url" validate:"omitempty,url"`
		Session string        `yaml:"session"`
		ChatIDs []string      `yaml:"chat_ids"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"gateway"`
	Telegram struct {
		BotToken string        `yaml:"bot_token"`
		ChatIDs  []int64       `yaml:"chat_ids"`
		Endpoint string        `yaml:"endpoint"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"telegram"`
}

// ServerConfig configures the trigger surface.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
	// ScrapeInterval enables the in-process scrape ticker when positive.
	ScrapeInterval time.Duration `yaml:"scrape_interval"`
	// TriggersPerMinute caps POST requests to the trigger endpoints; zero disables the cap.
	TriggersPerMinute int `yaml:"triggers_per_minute" validate:"min=0"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		Database: DatabaseConfig{MaxConns: 1},
		Sources: []SourceConfig{
			{
				ID:         "infolomba",
				Kind:       sources.KindHTML,
				Preset:     sources.PresetInfoLomba,
				BaseURL:    "https://www.infolomba.id",
				ListingURL: "https://www.infolomba.id/lomba",
				ItemCap:    20,
				Timeout:    30 * time.Second,
			},
			{
				ID:         "lombaku",
				Kind:       sources.KindHTML,
				Preset:     sources.PresetLombaKu,
				BaseURL:    "https://lombaku.com",
				ListingURL: "https://lombaku.com/competitions",
				ItemCap:    20,
				Timeout:    30 * time.Second,
			},
		},
		Relocation: RelocationConfig{
			BatchSize:      5,
			BatchPause:     2 * time.Second,
			MaxAttempts:    3,
			BaseDelay:      500 * time.Millisecond,
			Jitter:         0.25,
			RequestTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Endpoint:      "localhost:9000",
			Bucket:        "competition-posters",
			PublicBaseURL: "http://localhost:9000/competition-posters",
		},
		Batch:  BatchConfig{GroupSize: 2},
		Server: ServerConfig{Addr: ":8080", TriggersPerMinute: 6},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
	cfg.Collector.Retry.HTML = retry.HTMLSourcePolicy()
	cfg.Collector.Retry.Social = retry.SocialAccountPolicy()

	gemini := llm.DefaultGeminiConfig()
	cfg.Providers.Gemini.TextModel = gemini.GetModel(llm.TierStandard)
	cfg.Providers.Gemini.VisionModel = gemini.GetModel(llm.TierVision)
	openai := llm.DefaultOpenAIConfig()
	cfg.Providers.OpenAI.BaseURL = openai.BaseURL
	cfg.Providers.OpenAI.Model = openai.GetModel(llm.TierVision)
	cfg.Providers.Timeout = gemini.Timeout

	cfg.Delivery.Timezone = defaultTimezone
	cfg.Delivery.Gateway.Session = "default"
	cfg.Delivery.Gateway.Timeout = 30 * time.Second
	cfg.Delivery.Telegram.Timeout = 30 * time.Second
	return cfg
}

// Load reads a YAML file over the defaults and applies environment overrides.
// An empty path falls back to RADAR_CONFIG; when both are empty only defaults and environment apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	cfg := Default()
	if path != "" {
		// Resolve path relative to current directory if not absolute
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overrides secrets and the log level from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.Database.URL, EnvDatabaseURL)
	set(&c.Providers.Gemini.APIKey, EnvGeminiAPIKey)
	set(&c.Providers.OpenAI.APIKey, EnvOpenAIAPIKey)
	set(&c.Storage.AccessKey, EnvStorageAccessKey)
	set(&c.Storage.SecretKey, EnvStorageSecretKey)
	set(&c.Delivery.Telegram.BotToken, EnvTelegramToken)
	set(&c.Delivery.Gateway.APIKey, EnvGatewayAPIKey)
	set(&c.Log.Level, EnvLogLevel)

	if token := strings.TrimSpace(getenv(EnvSocialToken)); token != "" {
		for i := range c.Sources {
			if c.Sources[i].Kind == sources.KindSocial && c.Sources[i].Token == "" {
				c.Sources[i].Token = token
			}
		}
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	seen := map[string]bool{}
	for _, s := range c.Sources {
		if seen[s.ID] {
			return fmt.Errorf("config error: duplicate source id %q", s.ID)
		}
		seen[s.ID] = true
		if s.Kind == sources.KindHTML {
			if _, ok := sources.LookupPreset(s.Preset); !ok {
				return fmt.Errorf("config error: source %s: unknown preset %q", s.ID, s.Preset)
			}
		}
	}

	if len(c.Delivery.Gateway.ChatIDs) > 0 && c.Delivery.Gateway.BaseURL == "" {
		return fmt.Errorf("config error: delivery.gateway.base_url is required when chat_ids are set")
	}
	if len(c.Delivery.Telegram.ChatIDs) > 0 && c.Delivery.Telegram.BotToken == "" {
		return fmt.Errorf("config error: telegram chat_ids are set but %s is empty", EnvTelegramToken)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// SourceSpecs converts the source list into adapter specs, filling retry policies from the collector defaults.
func (c *Config) SourceSpecs() []sources.Spec {
	specs := make([]sources.Spec, 0, len(c.Sources))
	for _, s := range c.Sources {
		spec := sources.Spec{
			ID:                s.ID,
			Kind:              s.Kind,
			Preset:            s.Preset,
			BaseURL:           s.BaseURL,
			ListingURL:        s.ListingURL,
			Accounts:          s.Accounts,
			Token:             s.Token,
			ItemCap:           s.ItemCap,
			Timeout:           s.Timeout,
			RequestsPerSecond: s.RequestsPerSecond,
			DetailConcurrency: s.DetailConcurrency,
			RenderWithBrowser: s.RenderWithBrowser,
			Retry:             s.Retry,
		}
		if spec.Retry == nil {
			switch s.Kind {
			case sources.KindHTML:
				policy := c.Collector.Retry.HTML
				spec.Retry = &policy
			case sources.KindSocial:
				policy := c.Collector.Retry.Social
				spec.Retry = &policy
			}
		}
		if s.Kind == sources.KindFeed {
			spec.Origin = types.OriginFeed
		}
		specs = append(specs, spec)
	}
	return specs
}

// RelocationOptions converts the relocation section.
func (c *Config) RelocationOptions() relocation.Options {
	opts := relocation.DefaultOptions()
	r := c.Relocation
	if r.BatchSize > 0 {
		opts.BatchSize = r.BatchSize
	}
	if r.BatchPause > 0 {
		opts.BatchPause = r.BatchPause
	}
	if r.RequestTimeout > 0 {
		opts.RequestTimeout = r.RequestTimeout
	}
	if r.MaxAttempts > 0 {
		opts.Retry.MaxAttempts = r.MaxAttempts
	}
	if r.BaseDelay > 0 {
		opts.Retry.BaseDelay = r.BaseDelay
	}
	opts.Retry.Jitter = r.Jitter
	return opts
}

// S3Config converts the storage section.
func (c *Config) S3Config() relocation.S3Config {
	return relocation.S3Config{
		Endpoint:      c.Storage.Endpoint,
		Region:        c.Storage.Region,
		Bucket:        c.Storage.Bucket,
		AccessKey:     c.Storage.AccessKey,
		SecretKey:     c.Storage.SecretKey,
		UseSSL:        c.Storage.UseSSL,
		PublicBaseURL: strings.TrimRight(c.Storage.PublicBaseURL, "/"),
	}
}

// GeminiConfig returns the model config for the text and primary image providers.
func (c *Config) GeminiConfig() *llm.Config {
	cfg := llm.DefaultGeminiConfig()
	if m := c.Providers.Gemini.TextModel; m != "" {
		cfg.Models[llm.TierStandard] = m
	}
	if m := c.Providers.Gemini.VisionModel; m != "" {
		cfg.Models[llm.TierVision] = m
	}
	if c.Providers.Timeout > 0 {
		cfg.Timeout = c.Providers.Timeout
	}
	return cfg
}

// OpenAIConfig returns the model config for the fallback image provider.
func (c *Config) OpenAIConfig() *llm.Config {
	cfg := llm.DefaultOpenAIConfig()
	if u := c.Providers.OpenAI.BaseURL; u != "" {
		cfg.BaseURL = u
	}
	if m := c.Providers.OpenAI.Model; m != "" {
		cfg.Models[llm.TierVision] = m
	}
	if c.Providers.Timeout > 0 {
		cfg.Timeout = c.Providers.Timeout
	}
	return cfg
}

// GatewayConfigs returns one gateway channel config per configured chat.
func (c *Config) GatewayConfigs() []delivery.GatewayConfig {
	g := c.Delivery.Gateway
	out := make([]delivery.GatewayConfig, 0, len(g.ChatIDs))
	for _, chat := range g.ChatIDs {
		out = append(out, delivery.GatewayConfig{
			BaseURL: g.BaseURL,
			APIKey:  g.APIKey,
			Session: g.Session,
			ChatID:  chat,
			Timeout: g.Timeout,
		})
	}
	return out
}

// TelegramConfigs returns one Telegram channel config per configured chat.
func (c *Config) TelegramConfigs() []delivery.TelegramConfig {
	tg := c.Delivery.Telegram
	out := make([]delivery.TelegramConfig, 0, len(tg.ChatIDs))
	for _, chat := range tg.ChatIDs {
		out = append(out, delivery.TelegramConfig{
			BotToken: tg.BotToken,
			ChatID:   chat,
			Endpoint: tg.Endpoint,
			Timeout:  tg.Timeout,
		})
	}
	return out
}

// Location resolves the delivery timezone used for the eligibility date.
func (c *Config) Location() (*time.Location, error) {
	tz := c.Delivery.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	return loc, nil
}

// ParseIDs parses a comma-separated list of record ids.
func ParseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid record id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"news_hub/internal/models"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config - полная конфигурация сервиса. Длительности хранятся целыми числами:
// секунды, либо миллисекунды, если это указано в имени поля.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server" toml:"server"`
	Transport TransportConfig `json:"transport" yaml:"transport" toml:"transport"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging" toml:"logging"`
	Cache     CacheConfig     `json:"cache" yaml:"cache" toml:"cache"`
	Limits    LimitsConfig    `json:"limits" yaml:"limits" toml:"limits"`
	Fetch     FetchConfig     `json:"fetch" yaml:"fetch" toml:"fetch"`
	Actions   ActionsConfig   `json:"actions" yaml:"actions" toml:"actions"`
	Feeds     FeedsConfig     `json:"feeds" yaml:"feeds" toml:"feeds"`
	Registry  RegistryConfig  `json:"registry" yaml:"registry" toml:"registry"`
}

type ServerConfig struct {
	Name        string `json:"name" yaml:"name" toml:"name" validate:"required"`
	Version     string `json:"version" yaml:"version" toml:"version"`
	Description string `json:"description" yaml:"description" toml:"description"`
}

type TransportConfig struct {
	HTTPHost string `json:"http_host" yaml:"http_host" toml:"http_host"`
	HTTPPort int    `json:"http_port" yaml:"http_port" toml:"http_port" validate:"gte=1,lte=65535"`
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
	Format string `json:"format" yaml:"format" toml:"format" validate:"omitempty,oneof=json text"`
}

type CacheConfig struct {
	Enabled       bool `json:"enabled" yaml:"enabled" toml:"enabled"`
	Duration      int  `json:"duration" yaml:"duration" toml:"duration" validate:"gte=1"`
	MaxSize       int  `json:"max_size" yaml:"max_size" toml:"max_size" validate:"gte=1"`
	SweepInterval int  `json:"sweep_interval" yaml:"sweep_interval" toml:"sweep_interval" validate:"gte=0"`
	Warm          bool `json:"warm" yaml:"warm" toml:"warm"`
}

type LimitsConfig struct {
	MaxArticlesPerFeed  int `json:"max_articles_per_feed" yaml:"max_articles_per_feed" toml:"max_articles_per_feed" validate:"gte=1"`
	DefaultArticleLimit int `json:"default_article_limit" yaml:"default_article_limit" toml:"default_article_limit" validate:"gte=1"`
	MaxSearchResults    int `json:"max_search_results" yaml:"max_search_results" toml:"max_search_results" validate:"gte=1"`
	RequestTimeout      int `json:"request_timeout" yaml:"request_timeout" toml:"request_timeout" validate:"gte=1"`
	MaxEntriesPerFeed   int `json:"max_entries_per_feed" yaml:"max_entries_per_feed" toml:"max_entries_per_feed" validate:"gte=1"`
}

type FetchConfig struct {
	RetryAttempts  int    `json:"retry_attempts" yaml:"retry_attempts" toml:"retry_attempts" validate:"gte=1"`
	RetryDelayMS   int    `json:"retry_delay_ms" yaml:"retry_delay_ms" toml:"retry_delay_ms" validate:"gte=0"`
	HostIntervalMS int    `json:"host_interval_ms" yaml:"host_interval_ms" toml:"host_interval_ms" validate:"gte=0"`
	UserAgent      string `json:"user_agent" yaml:"user_agent" toml:"user_agent"`
}

// ActionsConfig - список включённых действий протокола. Пустой список - все действия.
type ActionsConfig struct {
	Enabled []string `json:"enabled" yaml:"enabled" toml:"enabled"`
}

type FeedsConfig struct {
	Categories         map[string][]models.Source `json:"categories" yaml:"categories" toml:"categories" validate:"dive,dive"`
	MaxFeedsPerRequest int                        `json:"max_feeds_per_request" yaml:"max_feeds_per_request" toml:"max_feeds_per_request" validate:"gte=1"`
}

// RegistryConfig - необязательная таблица Postgres с дополнительными источниками.
type RegistryConfig struct {
	DatabaseURL string `json:"database_url" yaml:"database_url" toml:"database_url"`
}

// Переменные окружения, которые читает ApplyEnv.
const (
	EnvCustomFeeds    = "NEWS_HUB_CUSTOM_FEEDS"
	EnvEnabledActions = "NEWS_HUB_ENABLED_ACTIONS"
	EnvDatabaseURL    = "NEWS_HUB_DATABASE_URL"
	EnvLogLevel       = "NEWS_HUB_LOG_LEVEL"

	CustomCategory = "custom"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.Duration) * time.Second
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Cache.SweepInterval) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Limits.RequestTimeout) * time.Second
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Fetch.RetryDelayMS) * time.Millisecond
}

func (c *Config) HostInterval() time.Duration {
	return time.Duration(c.Fetch.HostIntervalMS) * time.Millisecond
}

// Addr - адрес HTTP-сервера.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Transport.HTTPHost, c.Transport.HTTPPort)
}

// Validate проверяет теги структуры, соотношение лимитов и URL всех источников.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Limits.DefaultArticleLimit > c.Limits.MaxArticlesPerFeed {
		return errors.New("default_article_limit must not exceed max_articles_per_feed")
	}
	if len(c.Feeds.Categories) == 0 {
		return errors.New("at least one feed category is required")
	}
	for category, sources := range c.Feeds.Categories {
		for _, s := range sources {
			if err := validateSourceURL(s.URL); err != nil {
				return fmt.Errorf("category %q, source %q: %w", category, s.Name, err)
			}
		}
	}
	return nil
}

func validateSourceURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("invalid RSS URL: %s", raw)
	}
	switch u.Scheme {
	case "http", "https", "file":
		return nil
	default:
		return fmt.Errorf("invalid RSS URL scheme %q: %s", u.Scheme, raw)
	}
}

// LoadConfig читает файл поверх Default. Формат определяется по расширению:
// .json, .yaml/.yml или .toml. Если категории не заданы, остаются встроенные.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.Feeds.Categories = nil

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if len(cfg.Feeds.Categories) == 0 {
		cfg.Feeds.Categories = DefaultCategories()
	}
	return cfg, nil
}

// Load возвращает Default для пустого пути, иначе вызывает LoadConfig.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadConfig(path)
}

// DefaultPath ищет news_hub/config.yaml в каталогах XDG. Пустая строка, если файла нет.
func DefaultPath() string {
	p, err := xdg.SearchConfigFile(filepath.Join("news_hub", "config.yaml"))
	if err != nil {
		return ""
	}
	return p
}

// ApplyEnv накладывает переменные окружения на конфигурацию.
func (c *Config) ApplyEnv() {
	if custom := ParseCustomFeeds(os.Getenv(EnvCustomFeeds)); len(custom) > 0 {
		if c.Feeds.Categories == nil {
			c.Feeds.Categories = map[string][]models.Source{}
		}
		c.Feeds.Categories[CustomCategory] = custom
	}
	if raw := strings.TrimSpace(os.Getenv(EnvEnabledActions)); raw != "" {
		var enabled []string
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				enabled = append(enabled, name)
			}
		}
		c.Actions.Enabled = enabled
	}
	if dsn := os.Getenv(EnvDatabaseURL); dsn != "" {
		c.Registry.DatabaseURL = dsn
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
}

// ParseCustomFeeds разбирает строку вида "name:url;name:url".
// Делим только по первому двоеточию, чтобы не сломать схему URL.
func ParseCustomFeeds(raw string) []models.Source {
	var sources []models.Source
	for _, pair := range strings.Split(raw, ";") {
		name, link, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		name, link = strings.TrimSpace(name), strings.TrimSpace(link)
		if name == "" || link == "" {
			continue
		}
		sources = append(sources, models.Source{
			Name:        name,
			URL:         link,
			Description: "Custom feed: " + name,
		})
	}
	return sources
}

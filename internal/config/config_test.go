package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"news_hub/internal/config"
	"news_hub/internal/models"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err)
	return path
}

func TestLoadConfig_JSON(t *testing.T) {
	json := `{
		"limits": {"default_article_limit": 7},
		"feeds": {
			"categories": {
				"tech": [{"name": "a", "url": "https://example.com/rss"}]
			},
			"max_feeds_per_request": 2
		}
	}`
	path := writeTempConfig(t, "config.json", json)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Limits.DefaultArticleLimit)
	require.Equal(t, 20, cfg.Limits.MaxArticlesPerFeed)
	require.Equal(t, 2, cfg.Feeds.MaxFeedsPerRequest)
	require.Len(t, cfg.Feeds.Categories, 1)
	require.Equal(t, "https://example.com/rss", cfg.Feeds.Categories["tech"][0].URL)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_YAML(t *testing.T) {
	yaml := `
cache:
  duration: 60
  max_size: 10
fetch:
  retry_delay_ms: 50
actions:
  enabled: [health_check, get_latest_news]
feeds:
  categories:
    world:
      - name: w1
        url: http://foo.bar/feed
        description: World
`
	path := writeTempConfig(t, "config.yaml", yaml)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, time.Minute, cfg.CacheTTL())
	require.Equal(t, 10, cfg.Cache.MaxSize)
	require.True(t, cfg.Cache.Enabled)
	require.Equal(t, 50*time.Millisecond, cfg.RetryDelay())
	require.Equal(t, []string{"health_check", "get_latest_news"}, cfg.Actions.Enabled)
	require.Equal(t, "World", cfg.Feeds.Categories["world"][0].Description)
}

func TestLoadConfig_TOML(t *testing.T) {
	toml := `
[transport]
http_port = 9090

[[feeds.categories.science]]
name = "s1"
url = "https://science.example/rss"
`
	path := writeTempConfig(t, "config.toml", toml)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9090", cfg.Addr())
	require.Equal(t, "s1", cfg.Feeds.Categories["science"][0].Name)
}

func TestLoadConfig_NoCategoriesKeepsDefaults(t *testing.T) {
	path := writeTempConfig(t, "config.json", `{"server": {"name": "x"}}`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, config.DefaultCategories(), cfg.Feeds.Categories)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := config.LoadConfig("/nonexistent/config.json")
	require.Error(t, err)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeTempConfig(t, "config.json", `{ invalid json }`)
	_, err := config.LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_UnsupportedExtension(t *testing.T) {
	path := writeTempConfig(t, "config.ini", `a=b`)
	_, err := config.LoadConfig(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported config format")
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
}

func TestValidate_Default(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

func TestValidate_InvalidURL(t *testing.T) {
	cfg := config.Default()
	cfg.Feeds.Categories["tech"] = []models.Source{{Name: "bad", URL: "not-a-url"}}

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid RSS URL")
}

func TestValidate_UnsupportedScheme(t *testing.T) {
	cfg := config.Default()
	cfg.Feeds.Categories["tech"] = []models.Source{{Name: "ftp", URL: "ftp://example.com/rss"}}

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "scheme")
}

func TestValidate_DefaultLimitAboveMax(t *testing.T) {
	cfg := config.Default()
	cfg.Limits.DefaultArticleLimit = 30

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "default_article_limit")
}

func TestValidate_TagRules(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.MaxSize = 0
	require.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.Logging.Format = "xml"
	require.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.Feeds.Categories["tech"] = []models.Source{{Name: "", URL: "https://example.com/rss"}}
	require.Error(t, cfg.Validate())
}

func TestValidate_NoCategories(t *testing.T) {
	cfg := config.Default()
	cfg.Feeds.Categories = nil

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "category")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(config.EnvCustomFeeds, "mine:https://mine.example/rss; other : http://other.example/feed ;broken")
	t.Setenv(config.EnvEnabledActions, "health_check, search_news,,")
	t.Setenv(config.EnvDatabaseURL, "postgres://localhost/news")
	t.Setenv(config.EnvLogLevel, "debug")

	cfg := config.Default()
	cfg.ApplyEnv()

	custom := cfg.Feeds.Categories[config.CustomCategory]
	require.Len(t, custom, 2)
	require.Equal(t, "mine", custom[0].Name)
	require.Equal(t, "https://mine.example/rss", custom[0].URL)
	require.Equal(t, "other", custom[1].Name)
	require.Equal(t, "http://other.example/feed", custom[1].URL)
	require.Equal(t, []string{"health_check", "search_news"}, cfg.Actions.Enabled)
	require.Equal(t, "postgres://localhost/news", cfg.Registry.DatabaseURL)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnv_Unset(t *testing.T) {
	t.Setenv(config.EnvCustomFeeds, "")
	t.Setenv(config.EnvEnabledActions, "")

	cfg := config.Default()
	cfg.ApplyEnv()

	require.NotContains(t, cfg.Feeds.Categories, config.CustomCategory)
	require.Empty(t, cfg.Actions.Enabled)
}

package main

import (
	"context"
	"fmt"
	"io"

	"news_hub/internal/aggregator"
	"news_hub/internal/cache"
	"news_hub/internal/config"
	"news_hub/internal/db"
	"news_hub/internal/dispatch"
	"news_hub/internal/fetcher"
	"news_hub/internal/logger"
	"news_hub/internal/models"
	"news_hub/internal/registry"
)

// app - собранные компоненты сервиса.
type app struct {
	cfg        *config.Config
	registry   *registry.Registry
	fetcher    *fetcher.Fetcher
	dispatcher *dispatch.Dispatcher
}

func loadConfig() (*config.Config, error) {
	path := flagConfig
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildApp загружает конфигурацию, настраивает логгер и связывает компоненты.
// logOutput - куда писать логи (stdout для HTTP, stderr для stdio).
func buildApp(ctx context.Context, logOutput io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	err = logger.Configure(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: logOutput,
	})
	if err != nil {
		return nil, err
	}

	categories, err := loadCategories(ctx, cfg)
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(categories)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	var c *cache.Cache
	if cfg.Cache.Enabled {
		c = cache.New(cfg.Cache.MaxSize, cfg.CacheTTL())
	}

	f := fetcher.New(c, fetcher.Options{
		Timeout:       cfg.RequestTimeout(),
		RetryAttempts: cfg.Fetch.RetryAttempts,
		RetryDelay:    cfg.RetryDelay(),
		HostInterval:  cfg.HostInterval(),
		UserAgent:     cfg.Fetch.UserAgent,
		MaxEntries:    cfg.Limits.MaxEntriesPerFeed,
		CacheTTL:      cfg.CacheTTL(),
	})

	engine := aggregator.New(reg, f, c, aggregator.Options{
		MaxSourcesPerRequest: cfg.Feeds.MaxFeedsPerRequest,
	})

	d := dispatch.New(engine, dispatch.Options{
		ServerName: cfg.Server.Name,
		Version:    cfg.Server.Version,
		Enabled:    cfg.Actions.Enabled,
		Limits: dispatch.Limits{
			DefaultArticleLimit: cfg.Limits.DefaultArticleLimit,
			MaxArticlesPerFeed:  cfg.Limits.MaxArticlesPerFeed,
			MaxSearchResults:    cfg.Limits.MaxSearchResults,
		},
		Config: dispatch.PublicConfig{
			CacheEnabled:        cfg.Cache.Enabled,
			CacheDuration:       cfg.Cache.Duration,
			MaxArticlesPerFeed:  cfg.Limits.MaxArticlesPerFeed,
			DefaultArticleLimit: cfg.Limits.DefaultArticleLimit,
			MaxSearchResults:    cfg.Limits.MaxSearchResults,
			MaxFeedsPerRequest:  cfg.Feeds.MaxFeedsPerRequest,
		},
	})

	logger.Log.WithFields(logger.Fields{
		"feeds":      reg.TotalFeeds(),
		"categories": len(reg.CategoryNames()),
		"cache":      cfg.Cache.Enabled,
	}).Info("Application initialized")

	return &app{
		cfg:        cfg,
		registry:   reg,
		fetcher:    f,
		dispatcher: d,
	}, nil
}

// loadCategories дополняет категории из конфигурации источниками из Postgres,
// если задан registry.database_url. Соединение нужно только на время чтения.
func loadCategories(ctx context.Context, cfg *config.Config) (map[string][]models.Source, error) {
	categories := cfg.Feeds.Categories
	if cfg.Registry.DatabaseURL == "" {
		return categories, nil
	}

	database, err := db.NewDB(ctx, cfg.Registry.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect registry database: %w", err)
	}
	defer database.Close()

	extra, err := database.LoadSources(ctx)
	if err != nil {
		return nil, err
	}
	logger.Log.WithField("sources", len(extra)).Info("Sources loaded from database")
	return registry.Merge(categories, extra, config.CustomCategory), nil
}

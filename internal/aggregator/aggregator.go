package aggregator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"news_hub/internal/cache"
	"news_hub/internal/logger"
	"news_hub/internal/models"
	"news_hub/internal/registry"
	"news_hub/internal/worker"

	"github.com/samber/lo"
)

// BalancedOversample - сколько статей берётся у каждого источника перед
// случайной выборкой в сбалансированном режиме.
const BalancedOversample = 10

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownSource   = errors.New("unknown feed")
)

// Fetcher - загрузка одного источника. Ошибки поглощаются внутри.
type Fetcher interface {
	Fetch(ctx context.Context, src models.Source, limit int) []models.Article
}

type Options struct {
	// MaxSourcesPerRequest ограничивает число источников категории за один запрос.
	MaxSourcesPerRequest int
	// Concurrency - сколько загрузок выполняется одновременно в режимах по всем источникам.
	Concurrency int
}

// Engine собирает статьи из нескольких источников.
type Engine struct {
	registry *registry.Registry
	fetcher  Fetcher
	cache    *cache.Cache
	opts     Options
}

// New создаёт движок. c используется только для статистики и может быть nil.
func New(reg *registry.Registry, f Fetcher, c *cache.Cache, opts Options) *Engine {
	if opts.MaxSourcesPerRequest < 1 {
		opts.MaxSourcesPerRequest = 3
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 8
	}
	return &Engine{registry: reg, fetcher: f, cache: c, opts: opts}
}

func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// CacheStats возвращает статистику кэша, если он есть.
func (e *Engine) CacheStats() (cache.Stats, bool) {
	if e.cache == nil {
		return cache.Stats{}, false
	}
	return e.cache.Stats(), true
}

// FetchByCategory загружает первые MaxSourcesPerRequest источников категории
// параллельно и возвращает не больше limit самых свежих статей.
// Для неизвестной категории результат пустой.
func (e *Engine) FetchByCategory(ctx context.Context, category string, limit int) []models.Article {
	sources := e.registry.SourcesIn(category)
	if len(sources) > e.opts.MaxSourcesPerRequest {
		sources = sources[:e.opts.MaxSourcesPerRequest]
	}

	log := logger.Log.WithFields(logger.Fields{
		"category": category,
		"sources":  len(sources),
		"limit":    limit,
	})
	log.Debug("Fetching category")

	results := worker.Gather(ctx, len(sources), len(sources), func(ctx context.Context, i int) []models.Article {
		return e.fetcher.Fetch(ctx, sources[i], limit)
	})

	articles := rank(lo.Flatten(results), limit)
	log.WithField("articles", len(articles)).Debug("Category fetched")
	return articles
}

// FetchAll объединяет FetchByCategory по всем категориям и заново сортирует.
// limit применяется и к каждой категории, и к итогу, поэтому это не
// глобальный top-K: свежие статьи из категорий с большим числом
// источников могут не попасть в результат.
func (e *Engine) FetchAll(ctx context.Context, limit int) []models.Article {
	categories := e.registry.CategoryNames()

	results := worker.Gather(ctx, e.opts.Concurrency, len(categories), func(ctx context.Context, i int) []models.Article {
		return e.FetchByCategory(ctx, categories[i], limit)
	})

	return rank(lo.Flatten(results), limit)
}

// FetchBalanced перемешивает источники, берёт у каждого до
// BalancedOversample статей и случайно выбирает из них 1-2.
// Пустая category означает все источники.
func (e *Engine) FetchBalanced(ctx context.Context, limit int, category string) []models.Article {
	var sources []models.Source
	if category == "" {
		sources = e.registry.All()
	} else {
		sources = e.registry.SourcesIn(category)
	}
	sources = lo.Shuffle(sources)

	results := worker.Gather(ctx, e.opts.Concurrency, len(sources), func(ctx context.Context, i int) []models.Article {
		return e.fetcher.Fetch(ctx, sources[i], BalancedOversample)
	})

	var picked []models.Article
	for _, articles := range results {
		if len(articles) == 0 {
			continue
		}
		n := min(1+rand.IntN(2), len(articles))
		picked = append(picked, lo.Samples(articles, n)...)
	}

	logger.Log.WithFields(logger.Fields{
		"category": category,
		"sources":  len(sources),
		"picked":   len(picked),
	}).Debug("Balanced sample collected")

	return rank(picked, limit)
}

// FetchSource загружает один источник по имени из реестра.
func (e *Engine) FetchSource(ctx context.Context, name string, limit int) ([]models.Article, bool) {
	src, ok := e.registry.Lookup(name)
	if !ok {
		return nil, false
	}
	return e.fetcher.Fetch(ctx, src, limit), true
}

// ResolveByLink ищет статью с точным совпадением ссылки во всём агрегате.
func (e *Engine) ResolveByLink(ctx context.Context, link string) (models.Article, bool) {
	return lo.Find(e.FetchAll(ctx, 0), func(a models.Article) bool {
		return a.Link == link
	})
}

// Run выполняет запрос в нужном режиме. SourceName важнее Category.
func (e *Engine) Run(ctx context.Context, req models.AggregationRequest) ([]models.Article, error) {
	if req.SourceName != "" {
		articles, ok := e.FetchSource(ctx, req.SourceName, req.Limit)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSource, req.SourceName)
		}
		return articles, nil
	}
	if req.Category != "" && !e.registry.HasCategory(req.Category) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, req.Category)
	}

	switch req.Mode {
	case models.ModeExhaustive:
		if req.Category == "" {
			return e.FetchAll(ctx, req.Limit), nil
		}
		return e.FetchByCategory(ctx, req.Category, req.Limit), nil
	case models.ModeBalanced, "":
		return e.FetchBalanced(ctx, req.Limit, req.Category), nil
	default:
		return nil, fmt.Errorf("unknown mode %q", req.Mode)
	}
}

// Search оставляет статьи, у которых title, summary или content содержат
// query без учёта регистра. Порядок сохраняется.
func Search(articles []models.Article, query string) []models.Article {
	q := strings.ToLower(query)
	return lo.Filter(articles, func(a models.Article, _ int) bool {
		return strings.Contains(strings.ToLower(a.Title), q) ||
			strings.Contains(strings.ToLower(a.Summary), q) ||
			strings.Contains(strings.ToLower(a.Content), q)
	})
}

// rank сортирует по убыванию даты (устойчиво) и обрезает до limit.
func rank(articles []models.Article, limit int) []models.Article {
	if articles == nil {
		articles = []models.Article{}
	}
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedTimestamp > articles[j].PublishedTimestamp
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles
}

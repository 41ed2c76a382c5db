package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"news_hub/internal/aggregator"
	"news_hub/internal/cache"
	"news_hub/internal/models"

	"github.com/samber/lo"
)

const allCategories = "all"

// ArticleList - ответ новостных действий.
type ArticleList struct {
	Articles      []models.Article `json:"articles"`
	TotalCount    int              `json:"total_count"`
	TotalArticles int              `json:"total_articles"`
	Category      string           `json:"category"`
	Limit         int              `json:"limit"`
	Mode          string           `json:"mode,omitempty"`
	Timestamp     string           `json:"timestamp"`
}

type SearchResult struct {
	ArticleList
	Query      string `json:"query"`
	TotalFound int    `json:"total_found"`
}

type FeedContent struct {
	ArticleList
	FeedName        string `json:"feed_name"`
	FeedDescription string `json:"feed_description"`
	FeedURL         string `json:"feed_url"`
}

type ArticleDetails struct {
	Article   *models.Article `json:"article"`
	Found     bool            `json:"found"`
	URL       string          `json:"url"`
	Timestamp string          `json:"timestamp"`
}

type FeedSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type FeedListing struct {
	Categories      map[string][]FeedSummary `json:"categories"`
	TotalFeeds      int                      `json:"total_feeds"`
	TotalCategories int                      `json:"total_categories"`
	Config          PublicConfig             `json:"config"`
}

type Health struct {
	Status              string       `json:"status"`
	ServerName          string       `json:"server_name"`
	Version             string       `json:"version"`
	FeedsAvailable      int          `json:"feeds_available"`
	CategoriesAvailable int          `json:"categories_available"`
	CacheStats          *cache.Stats `json:"cache_stats"`
	Config              PublicConfig `json:"config"`
	EnabledActions      []string     `json:"enabled_actions"`
	Timestamp           string       `json:"timestamp"`
}

type newsPayload struct {
	Category string `json:"category"`
	Limit    *int   `json:"limit"`
	Mode     string `json:"mode"`
}

type searchPayload struct {
	Query    string `json:"query"`
	Category string `json:"category"`
	Limit    *int   `json:"limit"`
}

type feedPayload struct {
	FeedName string `json:"feed_name"`
	Limit    *int   `json:"limit"`
}

type detailsPayload struct {
	URL string `json:"url"`
}

func (d *Dispatcher) newList(articles []models.Article, category string, limit int) ArticleList {
	if category == "" {
		category = allCategories
	}
	return ArticleList{
		Articles:      articles,
		TotalCount:    len(articles),
		TotalArticles: len(articles),
		Category:      category,
		Limit:         limit,
		Timestamp:     d.timestamp(),
	}
}

func (d *Dispatcher) unknownCategory(category string) error {
	return newRequestError(
		fmt.Sprintf("unknown category: %s", category),
		map[string]any{"available_categories": d.engine.Registry().CategoryNames()},
	)
}

// latestNews обслуживает get_latest_news и hot_news. По умолчанию выборка
// сбалансированная, mode=exhaustive включает полный рейтинг.
func (d *Dispatcher) latestNews(ctx context.Context, raw json.RawMessage) (any, error) {
	var p newsPayload
	if err := decodePayload(raw, &p); err != nil {
		return nil, err
	}

	mode := models.SamplingMode(strings.ToLower(p.Mode))
	if mode == "" {
		mode = models.ModeBalanced
	}
	if !mode.Valid() {
		return nil, newRequestError(
			fmt.Sprintf("unknown mode: %s", p.Mode),
			map[string]any{"available_modes": []models.SamplingMode{models.ModeBalanced, models.ModeExhaustive}},
		)
	}

	category := strings.TrimSpace(p.Category)
	if category == allCategories {
		category = ""
	}
	if category != "" && !d.engine.Registry().HasCategory(category) {
		return nil, d.unknownCategory(category)
	}

	limit := clamp(p.Limit, d.opts.Limits.DefaultArticleLimit, d.opts.Limits.MaxArticlesPerFeed)
	articles, err := d.engine.Run(ctx, models.AggregationRequest{
		Category: category,
		Limit:    limit,
		Mode:     mode,
	})
	if err != nil {
		return nil, err
	}

	list := d.newList(articles, category, limit)
	list.Mode = string(mode)
	return list, nil
}

func (d *Dispatcher) searchNews(ctx context.Context, raw json.RawMessage) (any, error) {
	var p searchPayload
	if err := decodePayload(raw, &p); err != nil {
		return nil, err
	}

	query := strings.TrimSpace(p.Query)
	if query == "" {
		return nil, newRequestError("query is required", nil)
	}
	category := strings.TrimSpace(p.Category)
	if category == allCategories {
		category = ""
	}
	if category != "" && !d.engine.Registry().HasCategory(category) {
		return nil, d.unknownCategory(category)
	}

	limit := clamp(p.Limit, d.opts.Limits.DefaultArticleLimit, d.opts.Limits.MaxSearchResults)

	var pool []models.Article
	if category == "" {
		pool = d.engine.FetchAll(ctx, 0)
	} else {
		pool = d.engine.FetchByCategory(ctx, category, 0)
	}
	found := aggregator.Search(pool, query)
	total := len(found)
	if len(found) > limit {
		found = found[:limit]
	}

	return SearchResult{
		ArticleList: d.newList(found, category, limit),
		Query:       query,
		TotalFound:  total,
	}, nil
}

func (d *Dispatcher) feedContent(ctx context.Context, raw json.RawMessage) (any, error) {
	var p feedPayload
	if err := decodePayload(raw, &p); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(p.FeedName)
	if name == "" {
		return nil, newRequestError("feed_name is required", nil)
	}
	src, ok := d.engine.Registry().Lookup(name)
	if !ok {
		return nil, newRequestError(
			fmt.Sprintf("unknown feed: %s", name),
			map[string]any{"available_feeds": d.engine.Registry().FeedNames()},
		)
	}

	limit := clamp(p.Limit, d.opts.Limits.DefaultArticleLimit, d.opts.Limits.MaxArticlesPerFeed)
	articles, _ := d.engine.FetchSource(ctx, name, limit)

	return FeedContent{
		ArticleList:     d.newList(articles, src.Category, limit),
		FeedName:        src.Name,
		FeedDescription: src.Description,
		FeedURL:         src.URL,
	}, nil
}

func (d *Dispatcher) articleDetails(ctx context.Context, raw json.RawMessage) (any, error) {
	var p detailsPayload
	if err := decodePayload(raw, &p); err != nil {
		return nil, err
	}

	link := strings.TrimSpace(p.URL)
	if link == "" {
		return nil, newRequestError("url is required", nil)
	}

	details := ArticleDetails{URL: link, Timestamp: d.timestamp()}
	if article, ok := d.engine.ResolveByLink(ctx, link); ok {
		details.Article = &article
		details.Found = true
	}
	return details, nil
}

func (d *Dispatcher) listFeeds(_ context.Context, _ json.RawMessage) (any, error) {
	reg := d.engine.Registry()
	categories := lo.MapValues(reg.Categories(), func(sources []models.Source, _ string) []FeedSummary {
		return lo.Map(sources, func(s models.Source, _ int) FeedSummary {
			return FeedSummary{Name: s.Name, Description: s.Description, URL: s.URL}
		})
	})

	return FeedListing{
		Categories:      categories,
		TotalFeeds:      reg.TotalFeeds(),
		TotalCategories: len(categories),
		Config:          d.opts.Config,
	}, nil
}

func (d *Dispatcher) healthCheck(_ context.Context, _ json.RawMessage) (any, error) {
	reg := d.engine.Registry()
	health := Health{
		Status:              "healthy",
		ServerName:          d.opts.ServerName,
		Version:             d.opts.Version,
		FeedsAvailable:      reg.TotalFeeds(),
		CategoriesAvailable: len(reg.CategoryNames()),
		Config:              d.opts.Config,
		EnabledActions:      d.Enabled(),
		Timestamp:           d.timestamp(),
	}
	if stats, ok := d.engine.CacheStats(); ok {
		health.CacheStats = &stats
	}
	return health, nil
}

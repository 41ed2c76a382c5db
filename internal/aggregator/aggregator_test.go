package aggregator_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"news_hub/internal/aggregator"
	"news_hub/internal/cache"
	"news_hub/internal/fetcher"
	"news_hub/internal/logger"
	"news_hub/internal/models"
	"news_hub/internal/registry"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

// fakeFetcher отдаёт заранее заданные статьи по имени источника.
type fakeFetcher struct {
	mu       sync.Mutex
	articles map[string][]models.Article
	calls    map[string]int
	limits   map[string][]int
}

func newFakeFetcher(articles map[string][]models.Article) *fakeFetcher {
	return &fakeFetcher{articles: articles, calls: map[string]int{}, limits: map[string][]int{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, src models.Source, limit int) []models.Article {
	f.mu.Lock()
	f.calls[src.Name]++
	f.limits[src.Name] = append(f.limits[src.Name], limit)
	f.mu.Unlock()

	out := append([]models.Article{}, f.articles[src.Name]...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f *fakeFetcher) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeFetcher) requestedLimits(name string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.limits[name]...)
}

func makeArticles(source string, timestamps ...int64) []models.Article {
	out := make([]models.Article, 0, len(timestamps))
	for i, ts := range timestamps {
		out = append(out, models.Article{
			Title:              fmt.Sprintf("%s article %d", source, i),
			Link:               fmt.Sprintf("https://%s.example/%d", source, i),
			Summary:            "summary of " + source,
			PublishedTimestamp: ts,
			SourceName:         source,
		})
	}
	return out
}

func testEngine(t *testing.T, maxSources int) (*aggregator.Engine, *fakeFetcher) {
	t.Helper()
	reg, err := registry.New(map[string][]models.Source{
		"tech": {
			{Name: "t1", URL: "https://t1.example/rss"},
			{Name: "t2", URL: "https://t2.example/rss"},
			{Name: "t3", URL: "https://t3.example/rss"},
			{Name: "t4", URL: "https://t4.example/rss"},
		},
		"world": {
			{Name: "w1", URL: "https://w1.example/rss"},
			{Name: "w2", URL: "https://w2.example/rss"},
		},
	})
	require.NoError(t, err)

	f := newFakeFetcher(map[string][]models.Article{
		"t1": makeArticles("t1", 100, 90, 80),
		"t2": makeArticles("t2", 95, 85),
		"t3": makeArticles("t3", 99),
		"t4": makeArticles("t4", 1000),
		"w1": makeArticles("w1", 300, 200, 150, 140, 130, 120, 110, 105, 104, 103, 102, 101),
		"w2": nil,
	})
	return aggregator.New(reg, f, nil, aggregator.Options{MaxSourcesPerRequest: maxSources}), f
}

func requireSortedDesc(t *testing.T, articles []models.Article) {
	t.Helper()
	require.True(t, sort.SliceIsSorted(articles, func(i, j int) bool {
		return articles[i].PublishedTimestamp > articles[j].PublishedTimestamp
	}))
}

func TestFetchByCategory(t *testing.T) {
	engine, f := testEngine(t, 3)

	got := engine.FetchByCategory(context.Background(), "tech", 4)
	require.Len(t, got, 4)
	requireSortedDesc(t, got)
	require.Equal(t, int64(100), got[0].PublishedTimestamp)
	require.Equal(t, int64(99), got[1].PublishedTimestamp)

	require.Zero(t, f.callCount("t4"), "sources beyond the per-request cap are not fetched")
}

func TestFetchByCategory_LimitAndUnknown(t *testing.T) {
	engine, _ := testEngine(t, 3)

	for _, limit := range []int{1, 2, 5, 100} {
		got := engine.FetchByCategory(context.Background(), "tech", limit)
		require.LessOrEqual(t, len(got), limit)
		requireSortedDesc(t, got)
	}

	require.Len(t, engine.FetchByCategory(context.Background(), "tech", 0), 6)

	got := engine.FetchByCategory(context.Background(), "sports", 5)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestFetchAll_TwoStageTruncation(t *testing.T) {
	engine, _ := testEngine(t, 3)

	got := engine.FetchAll(context.Background(), 2)
	require.Len(t, got, 2)
	requireSortedDesc(t, got)
	// w1 держит две самые свежие статьи после усечения по категориям
	require.Equal(t, []int64{300, 200}, []int64{got[0].PublishedTimestamp, got[1].PublishedTimestamp})

	all := engine.FetchAll(context.Background(), 0)
	require.Len(t, all, 6+12)
}

func TestFetchBalanced_DrawsOneOrTwoPerSource(t *testing.T) {
	engine, _ := testEngine(t, 3)

	for i := 0; i < 20; i++ {
		got := engine.FetchBalanced(context.Background(), 0, "")
		requireSortedDesc(t, got)

		perSource := map[string]int{}
		for _, a := range got {
			perSource[a.SourceName]++
		}
		for _, name := range []string{"t1", "t2", "t4", "w1"} {
			require.GreaterOrEqual(t, perSource[name], 1, name)
			require.LessOrEqual(t, perSource[name], 2, name)
		}
		require.Equal(t, 1, perSource["t3"], "a single-article source contributes exactly one")
		require.Zero(t, perSource["w2"], "an empty source contributes nothing")
	}
}

func TestFetchBalanced_OversamplesEachSource(t *testing.T) {
	engine, f := testEngine(t, 3)

	engine.FetchBalanced(context.Background(), 3, "")

	for _, name := range []string{"t1", "t2", "t3", "t4", "w1", "w2"} {
		require.Equal(t, []int{aggregator.BalancedOversample}, f.requestedLimits(name), name)
	}
	require.Equal(t, 10, aggregator.BalancedOversample)
}

func TestFetchBalanced_CategoryAndLimit(t *testing.T) {
	engine, f := testEngine(t, 3)

	got := engine.FetchBalanced(context.Background(), 2, "world")
	require.LessOrEqual(t, len(got), 2)
	for _, a := range got {
		require.Equal(t, "w1", a.SourceName)
	}
	require.Zero(t, f.callCount("t1"))
}

func TestFetchSource(t *testing.T) {
	engine, _ := testEngine(t, 3)

	got, ok := engine.FetchSource(context.Background(), "w1", 3)
	require.True(t, ok)
	require.Len(t, got, 3)

	_, ok = engine.FetchSource(context.Background(), "nope", 3)
	require.False(t, ok)
}

func TestRun(t *testing.T) {
	engine, _ := testEngine(t, 3)
	ctx := context.Background()

	got, err := engine.Run(ctx, models.AggregationRequest{SourceName: "t1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = engine.Run(ctx, models.AggregationRequest{Category: "tech", Limit: 3, Mode: models.ModeExhaustive})
	require.NoError(t, err)
	require.Equal(t, int64(100), got[0].PublishedTimestamp)

	got, err = engine.Run(ctx, models.AggregationRequest{Limit: 1, Mode: models.ModeExhaustive})
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = engine.Run(ctx, models.AggregationRequest{Category: "tech"})
	require.NoError(t, err)

	_, err = engine.Run(ctx, models.AggregationRequest{Category: "sports"})
	require.ErrorIs(t, err, aggregator.ErrUnknownCategory)

	_, err = engine.Run(ctx, models.AggregationRequest{SourceName: "nope"})
	require.ErrorIs(t, err, aggregator.ErrUnknownSource)

	_, err = engine.Run(ctx, models.AggregationRequest{Mode: "random"})
	require.Error(t, err)
}

func TestSearch(t *testing.T) {
	articles := []models.Article{
		{Title: "Go Generics", Summary: "", Content: ""},
		{Title: "Rust", Summary: "compared with GO", Content: ""},
		{Title: "Python", Summary: "", Content: "<p>golang inside</p>"},
		{Title: "Java", Summary: "nothing", Content: "here"},
	}

	got := aggregator.Search(articles, "go")
	require.Len(t, got, 3)
	require.Equal(t, []string{"Go Generics", "Rust", "Python"}, titles(got))

	require.Equal(t, got, aggregator.Search(got, "go"), "search is idempotent")
	require.Equal(t, got, aggregator.Search(articles, "GO"), "case does not matter")
	require.Empty(t, aggregator.Search(articles, "nonexistent-token"))
	require.NotNil(t, aggregator.Search(nil, "x"))
}

func TestResolveByLink(t *testing.T) {
	engine, _ := testEngine(t, 3)

	got, ok := engine.ResolveByLink(context.Background(), "https://t2.example/1")
	require.True(t, ok)
	require.Equal(t, "t2 article 1", got.Title)

	_, ok = engine.ResolveByLink(context.Background(), "https://missing.example/")
	require.False(t, ok)
}

func titles(articles []models.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.Title)
	}
	return out
}

const twoEntryFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>%[1]s</title>
<item><title>%[1]s first</title><link>https://%[1]s.example/1</link><description>first from %[1]s</description><pubDate>%[2]s</pubDate></item>
<item><title>%[1]s second</title><link>https://%[1]s.example/2</link><description>second from %[1]s</description><pubDate>%[3]s</pubDate></item>
</channel></rss>`

func writeFeed(t *testing.T, dir, name, first, second string) models.Source {
	t.Helper()
	path := filepath.Join(dir, name+".xml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(twoEntryFeed, name, first, second)), 0o644))
	return models.Source{Name: name, URL: "file://" + filepath.ToSlash(path)}
}

// Две локальные ленты по две записи.
func TestScenario_TwoLocalSources(t *testing.T) {
	dir := t.TempDir()
	alpha := writeFeed(t, dir, "alpha", "Mon, 01 Jan 2024 10:00:00 +0000", "Mon, 01 Jan 2024 08:00:00 +0000")
	beta := writeFeed(t, dir, "beta", "Mon, 01 Jan 2024 11:00:00 +0000", "Mon, 01 Jan 2024 09:00:00 +0000")

	reg, err := registry.New(map[string][]models.Source{"local": {alpha, beta}})
	require.NoError(t, err)

	c := cache.New(10, time.Minute)
	f := fetcher.New(c, fetcher.Options{RetryDelay: time.Millisecond})
	engine := aggregator.New(reg, f, c, aggregator.Options{MaxSourcesPerRequest: 3})
	ctx := context.Background()

	all := engine.FetchAll(ctx, 10)
	require.Len(t, all, 4)
	require.Equal(t, []string{"beta first", "alpha first", "beta second", "alpha second"}, titles(all))
	for _, a := range all {
		require.NotZero(t, a.PublishedTimestamp)
	}

	require.Empty(t, aggregator.Search(all, "nonexistent-token"))

	found, ok := engine.ResolveByLink(ctx, "https://alpha.example/2")
	require.True(t, ok)
	require.Equal(t, "alpha second", found.Title)
	require.True(t, strings.HasPrefix(found.SourceURL, "file://"))

	_, ok = engine.ResolveByLink(ctx, "https://unknown.example/")
	require.False(t, ok)

	stats, ok := engine.CacheStats()
	require.True(t, ok)
	require.Equal(t, 2, stats.Entries)
}

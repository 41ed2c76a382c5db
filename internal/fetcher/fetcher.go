package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"news_hub/internal/cache"
	"news_hub/internal/logger"
	"news_hub/internal/metrics"
	"news_hub/internal/models"
	"news_hub/internal/normalize"

	"github.com/cenkalti/backoff/v4"
	"github.com/mmcdole/gofeed"
)

const maxBodySize = 10 << 20

// Options - параметры загрузки лент.
type Options struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	HostInterval  time.Duration
	UserAgent     string
	MaxEntries    int
	CacheTTL      time.Duration

	// Client заменяет HTTP-клиент по умолчанию.
	Client *http.Client
	Now    func() time.Time
}

func (o *Options) setDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.RetryAttempts < 1 {
		o.RetryAttempts = 3
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	if o.MaxEntries < 1 {
		o.MaxEntries = 20
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Fetcher загружает ленты, нормализует элементы и кэширует результат.
type Fetcher struct {
	client  *http.Client
	cache   *cache.Cache
	limiter *HostRateLimiter
	opts    Options
}

// New создаёт Fetcher. c == nil отключает кэширование.
func New(c *cache.Cache, opts Options) *Fetcher {
	opts.setDefaults()

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	f := &Fetcher{
		client: client,
		cache:  c,
		opts:   opts,
	}
	if opts.HostInterval > 0 {
		f.limiter = NewHostRateLimiter(opts.HostInterval)
	}
	return f
}

// Cache возвращает кэш или nil, если кэширование выключено.
func (f *Fetcher) Cache() *cache.Cache {
	return f.cache
}

// CacheKey - ключ кэша для источника.
func CacheKey(src models.Source) string {
	return "feed:" + src.URL
}

// Fetch возвращает не больше limit статей источника (limit <= 0 - все).
// Ошибки не возвращаются: сбой пишется в лог и даёт пустой результат.
func (f *Fetcher) Fetch(ctx context.Context, src models.Source, limit int) []models.Article {
	log := logger.Log.WithFields(logger.Fields{
		"source": src.Name,
		"url":    src.URL,
	})

	key := CacheKey(src)
	if f.cache != nil {
		if articles, ok := f.cache.Get(key); ok {
			log.Debug("Using cached feed")
			return head(articles, limit)
		}
	}

	started := time.Now()
	articles, err := f.load(ctx, src, log)
	if err != nil {
		metrics.RecordFetch(src.Name, "error", started)
		log.WithError(err).Error("Failed to fetch feed")
		return []models.Article{}
	}
	metrics.RecordFetch(src.Name, "ok", started)
	log.WithField("items_count", len(articles)).Info("Feed fetched")

	if f.cache != nil {
		f.cache.Set(key, articles, f.opts.CacheTTL)
	}
	return head(articles, limit)
}

func (f *Fetcher) load(ctx context.Context, src models.Source, log *logger.Entry) ([]models.Article, error) {
	body, err := f.retrieve(ctx, src, log)
	if err != nil {
		return nil, err
	}
	return Parse(body, src, f.opts.MaxEntries, f.opts.Now(), log)
}

func (f *Fetcher) retrieve(ctx context.Context, src models.Source, log *logger.Entry) ([]byte, error) {
	u, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "file" {
		return readLocal(u)
	}
	return f.download(ctx, src, log)
}

func readLocal(u *url.URL) ([]byte, error) {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read local feed: %w", err)
	}
	return data, nil
}

// download выполняет до RetryAttempts попыток с фиксированной паузой.
func (f *Fetcher) download(ctx context.Context, src models.Source, log *logger.Entry) ([]byte, error) {
	var body []byte
	attempt := 0

	op := func() error {
		attempt++
		metrics.FetchAttempts.WithLabelValues(src.Name).Inc()

		if f.limiter != nil {
			if err := f.limiter.WaitForHost(ctx, src.URL); err != nil {
				return backoff.Permanent(fmt.Errorf("rate limit: %w", err))
			}
		}

		data, err := f.get(ctx, src.URL, log)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		body = data
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(f.opts.RetryDelay), uint64(f.opts.RetryAttempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		log.WithError(err).WithFields(logger.Fields{
			"attempt": attempt,
			"wait":    wait.String(),
		}).Warn("Fetch attempt failed, retrying")
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, fmt.Errorf("after %d attempts: %w", attempt, err)
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string, log *logger.Entry) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "xml") &&
		!strings.Contains(contentType, "rss") && !strings.Contains(contentType, "atom") &&
		!strings.Contains(contentType, "json") {
		log.WithField("content_type", contentType).Warn("Content type may not be a feed")
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

// Parse разбирает тело ленты и нормализует не больше maxEntries элементов.
// Если парсер вернул ошибку вместе с лентой, используются восстановленные элементы.
func Parse(body []byte, src models.Source, maxEntries int, now time.Time, log *logger.Entry) ([]models.Article, error) {
	if log == nil {
		log = logger.Log.WithField("source", src.Name)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		if feed == nil {
			return nil, fmt.Errorf("parse feed: %w", err)
		}
		log.WithError(err).Warn("Feed parsed with errors, using recovered entries")
	}
	if feed == nil {
		return nil, errors.New("parse feed: empty result")
	}

	items := feed.Items
	if maxEntries > 0 && len(items) > maxEntries {
		items = items[:maxEntries]
	}

	articles := make([]models.Article, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		articles = append(articles, normalize.Normalize(entryFromItem(item), src, now, log))
	}
	return articles, nil
}

// entryFromItem переводит элемент gofeed в RawEntry. Пустые поля не
// добавляются, чтобы нормализатор подставил значения по умолчанию.
func entryFromItem(item *gofeed.Item) models.RawEntry {
	raw := models.RawEntry{}
	put := func(key, value string) {
		if value != "" {
			raw[key] = value
		}
	}

	put(models.EntryTitle, item.Title)
	link := item.Link
	if link == "" && len(item.Links) > 0 {
		link = item.Links[0]
	}
	put(models.EntryLink, link)
	put(models.EntrySummary, item.Description)
	put(models.EntryDescription, item.Description)
	put(models.EntryContent, item.Content)
	put(models.EntryPublished, item.Published)
	put(models.EntryUpdated, item.Updated)

	if item.PublishedParsed != nil {
		raw[models.EntryPublishedParsed] = *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		raw[models.EntryUpdatedParsed] = *item.UpdatedParsed
	}

	if item.Author != nil {
		put(models.EntryAuthor, item.Author.Name)
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		put(models.EntryAuthor, item.Authors[0].Name)
	}
	if len(item.Categories) > 0 {
		raw[models.EntryTags] = append([]string(nil), item.Categories...)
	}
	return raw
}

func head(articles []models.Article, limit int) []models.Article {
	n := len(articles)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.Article, n)
	copy(out, articles[:n])
	return out
}

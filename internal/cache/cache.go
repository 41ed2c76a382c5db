package cache

import (
	"sync"
	"time"

	"news_hub/internal/metrics"
	"news_hub/internal/models"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultName - метка метрики для кэша без WithName.
const DefaultName = "feeds"

type entry struct {
	articles  []models.Article
	createdAt time.Time
	ttl       time.Duration
}

// expired: запись устарела, только когда её возраст строго больше ttl.
func (e entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// Stats - снимок состояния кэша.
type Stats struct {
	Entries    int      `json:"total_entries"`
	MaxSize    int      `json:"max_size"`
	DefaultTTL int      `json:"default_ttl"`
	Hits       uint64   `json:"hits"`
	Misses     uint64   `json:"misses"`
	Evictions  uint64   `json:"evictions"`
	Keys       []string `json:"cache_keys"`
}

// Cache - кэш результатов загрузки лент с TTL и ограничением размера.
// При переполнении вытесняется самая старая по времени создания запись.
// Все операции выполняются под одним мьютексом.
type Cache struct {
	mu         sync.Mutex
	lru        *simplelru.LRU[string, entry]
	maxSize    int
	defaultTTL time.Duration
	now        func() time.Time
	name       string

	hits, misses, evictions uint64
}

type Option func(*Cache)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithName задаёт метку cache у метрики числа записей. По умолчанию "feeds".
func WithName(name string) Option {
	return func(c *Cache) {
		c.name = name
	}
}

// New создаёт кэш. Размер и TTL по умолчанию после создания не меняются.
func New(maxSize int, defaultTTL time.Duration, opts ...Option) *Cache {
	if maxSize < 1 {
		maxSize = 1
	}
	// простой LRU используется только через Peek и Add, поэтому порядок
	// списка совпадает с порядком создания записей
	lru, _ := simplelru.NewLRU[string, entry](maxSize, nil)
	c := &Cache{
		lru:        lru,
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		now:        time.Now,
		name:       DefaultName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get возвращает статьи по ключу. Просроченная запись удаляется.
func (c *Cache) Get(key string) ([]models.Article, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Peek(key)
	if ok && e.expired(c.now()) {
		c.lru.Remove(key)
		ok = false
	}
	if !ok {
		c.misses++
		metrics.RecordCache(false)
		c.updateGauge()
		return nil, false
	}
	c.hits++
	metrics.RecordCache(true)
	return e.articles, true
}

// Set сохраняет статьи. ttl <= 0 означает TTL по умолчанию. Существующая
// запись заменяется целиком и получает новое время создания.
func (c *Cache) Set(key string, articles []models.Article, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lru.Contains(key) {
		c.lru.Remove(key)
	}
	if c.lru.Add(key, entry{articles: articles, createdAt: c.now(), ttl: ttl}) {
		c.evictions++
		metrics.CacheEvictions.Inc()
	}
	c.updateGauge()
}

func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ok := c.lru.Remove(key)
	c.updateGauge()
	return ok
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.updateGauge()
}

// SweepExpired удаляет все просроченные записи и возвращает их количество.
func (c *Cache) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, key := range c.lru.Keys() {
		if e, ok := c.lru.Peek(key); ok && e.expired(now) {
			c.lru.Remove(key)
			removed++
		}
	}
	c.updateGauge()
	return removed
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:    c.lru.Len(),
		MaxSize:    c.maxSize,
		DefaultTTL: int(c.defaultTTL / time.Second),
		Hits:       c.hits,
		Misses:     c.misses,
		Evictions:  c.evictions,
		Keys:       c.lru.Keys(),
	}
}

func (c *Cache) updateGauge() {
	metrics.CacheEntries.WithLabelValues(c.name).Set(float64(c.lru.Len()))
}

package config

import "news_hub/internal/models"

// Default возвращает встроенную конфигурацию (используется без файла).
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:        "news_hub",
			Version:     "1.0.0",
			Description: "Aggregates articles from curated RSS and Atom feeds",
		},
		Transport: TransportConfig{
			HTTPHost: "127.0.0.1",
			HTTPPort: 8000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Cache: CacheConfig{
			Enabled:       true,
			Duration:      300,
			MaxSize:       100,
			SweepInterval: 60,
		},
		Limits: LimitsConfig{
			MaxArticlesPerFeed:  20,
			DefaultArticleLimit: 5,
			MaxSearchResults:    50,
			RequestTimeout:      10,
			MaxEntriesPerFeed:   20,
		},
		Fetch: FetchConfig{
			RetryAttempts: 3,
			RetryDelayMS:  1000,
			UserAgent:     "news_hub/1.0 (+https://github.com/mmcdole/gofeed)",
		},
		Feeds: FeedsConfig{
			Categories:         DefaultCategories(),
			MaxFeedsPerRequest: 3,
		},
	}
}

// DefaultCategories - стандартный набор лент. Каждый вызов возвращает новую карту.
func DefaultCategories() map[string][]models.Source {
	return map[string][]models.Source{
		"tech": {
			{Name: "wired", URL: "https://www.wired.com/feed/rss", Description: "Wired"},
			{Name: "theverge", URL: "https://www.theverge.com/rss/index.xml", Description: "The Verge"},
			{Name: "tech", URL: "https://www.cnet.com/rss/news/", Description: "CNET news"},
		},
		"general": {
			{Name: "nytimes", URL: "https://rss.nytimes.com/services/xml/rss/nyt/HomePage.xml", Description: "The New York Times home page"},
			{Name: "bbc", URL: "http://feeds.bbci.co.uk/news/rss.xml", Description: "BBC News"},
			{Name: "guardian", URL: "https://www.theguardian.com/world/rss", Description: "The Guardian world news"},
		},
		"business": {
			{Name: "cnbc", URL: "https://www.cnbc.com/id/100003114/device/rss/rss.html", Description: "CNBC top news"},
			{Name: "wsj", URL: "https://feeds.a.dj.com/rss/RSSWorldNews.xml", Description: "Wall Street Journal world news"},
			{Name: "business", URL: "https://feeds.a.dj.com/rss/WSJcomUSBusiness.xml", Description: "Wall Street Journal US business"},
		},
		"science": {
			{Name: "nasa", URL: "https://www.nasa.gov/news-release/feed/", Description: "NASA news releases"},
			{Name: "science", URL: "https://www.sciencemag.org/rss/news_current.xml", Description: "Science magazine"},
		},
		"travel": {
			{Name: "travel", URL: "https://www.theguardian.com/uk/travel/rss", Description: "The Guardian travel"},
		},
		"politics": {
			{Name: "politics", URL: "https://rss.nytimes.com/services/xml/rss/nyt/Politics.xml", Description: "The New York Times politics"},
		},
	}
}

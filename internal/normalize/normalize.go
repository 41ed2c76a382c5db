package normalize

import (
	"html"
	"strings"
	"time"

	"news_hub/internal/logger"
	"news_hub/internal/models"

	"github.com/microcosm-cc/bluemonday"
)

const (
	DefaultTitle   = "untitled"
	DefaultSummary = "No summary available"
)

// Форматы дат, которые встречаются в RSS и Atom.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	time.RFC3339Nano,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04:05 Z",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var strict = bluemonday.StrictPolicy()

// Normalize превращает сырой элемент ленты в Article. Никогда не паникует:
// отсутствующие поля заменяются значениями по умолчанию, каждая замена
// пишется в лог через log.
func Normalize(raw models.RawEntry, src models.Source, now time.Time, log *logger.Entry) models.Article {
	if log == nil {
		log = logger.Log.WithField("source", src.Name)
	}

	article := models.Article{
		SourceName: src.Name,
		SourceURL:  src.URL,
		Tags:       []string{},
	}

	if title, ok := stringValue(raw, models.EntryTitle); ok && strings.TrimSpace(title) != "" {
		article.Title = strings.TrimSpace(title)
	} else {
		log.Warn("entry without title, using default")
		article.Title = DefaultTitle
	}

	if link, ok := stringValue(raw, models.EntryLink); ok {
		article.Link = strings.TrimSpace(link)
	} else {
		log.WithField("title", article.Title).Warn("entry without link")
	}

	summary, ok := stringValue(raw, models.EntrySummary)
	if !ok {
		summary, ok = stringValue(raw, models.EntryDescription)
	}
	if summary = PlainText(summary); ok && summary != "" {
		article.Summary = summary
	} else {
		log.WithField("title", article.Title).Debug("entry without summary, using default")
		article.Summary = DefaultSummary
	}

	if content, ok := stringValue(raw, models.EntryContent); ok && content != "" {
		article.Content = content
	} else if description, ok := stringValue(raw, models.EntryDescription); ok {
		article.Content = description
	}

	if author, ok := stringValue(raw, models.EntryAuthor); ok {
		article.Author = strings.TrimSpace(author)
	}
	article.Tags = append(article.Tags, stringSlice(raw[models.EntryTags])...)

	if published, ok := stringValue(raw, models.EntryPublished); ok {
		article.Published = published
	} else if updated, ok := stringValue(raw, models.EntryUpdated); ok {
		article.Published = updated
	}

	ts, resolved := Timestamp(raw)
	if !resolved {
		log.WithField("title", article.Title).Debug("entry without usable date, using fetch time")
		ts = now
	}
	article.PublishedTimestamp = ts.Unix()

	return article
}

// Timestamp ищет дату публикации: сначала уже разобранные даты
// (published_parsed, updated_parsed), затем строки published и updated.
func Timestamp(raw models.RawEntry) (time.Time, bool) {
	for _, key := range []string{models.EntryPublishedParsed, models.EntryUpdatedParsed} {
		if t, ok := timeValue(raw[key]); ok {
			return t, true
		}
	}
	for _, key := range []string{models.EntryPublished, models.EntryUpdated} {
		if s, ok := stringValue(raw, key); ok {
			if t, ok := ParseDate(s); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// ParseDate разбирает дату в одном из распространённых форматов лент.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return withZoneOffset(t), true
		}
	}
	return time.Time{}, false
}

// Смещения зон, которые встречаются в RSS-датах в виде аббревиатур.
// time.Parse не знает их смещения и ставит ноль.
var zoneOffsets = map[string]int{
	"UT":   0,
	"GMT":  0,
	"Z":    0,
	"EST":  -5 * 3600,
	"EDT":  -4 * 3600,
	"CST":  -6 * 3600,
	"CDT":  -5 * 3600,
	"MST":  -7 * 3600,
	"MDT":  -6 * 3600,
	"PST":  -8 * 3600,
	"PDT":  -7 * 3600,
	"AKST": -9 * 3600,
	"AKDT": -8 * 3600,
	"HST":  -10 * 3600,
	"BST":  1 * 3600,
	"CET":  1 * 3600,
	"CEST": 2 * 3600,
	"EET":  2 * 3600,
	"EEST": 3 * 3600,
	"MSK":  3 * 3600,
	"IST":  5*3600 + 1800,
	"JST":  9 * 3600,
	"AEST": 10 * 3600,
	"AEDT": 11 * 3600,
}

// withZoneOffset переносит время в правильную зону, если парсер
// распознал аббревиатуру, но не знал её смещения.
func withZoneOffset(t time.Time) time.Time {
	name, offset := t.Zone()
	if offset != 0 {
		return t
	}
	actual, ok := zoneOffsets[strings.ToUpper(name)]
	if !ok || actual == 0 {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(),
		time.FixedZone(name, actual))
}

// PlainText убирает HTML и схлопывает пробелы.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	text := html.UnescapeString(strict.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}

func stringValue(raw models.RawEntry, key string) (string, bool) {
	switch v := raw[key].(type) {
	case string:
		return v, true
	case *string:
		if v != nil {
			return *v, true
		}
	case []byte:
		return string(v), true
	}
	return "", false
}

func timeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t != nil && !t.IsZero() {
			return *t, true
		}
	case int64:
		if t > 0 {
			return time.Unix(t, 0), true
		}
	}
	return time.Time{}, false
}

func stringSlice(v any) []string {
	var out []string
	switch tags := v.(type) {
	case []string:
		for _, tag := range tags {
			if tag = strings.TrimSpace(tag); tag != "" {
				out = append(out, tag)
			}
		}
	case []any:
		for _, item := range tags {
			if tag, ok := item.(string); ok && strings.TrimSpace(tag) != "" {
				out = append(out, strings.TrimSpace(tag))
			}
		}
	}
	return out
}

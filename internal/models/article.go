package models

// Source - один настроенный источник (лента). После сборки реестра не меняется.
type Source struct {
	Name        string `json:"name" yaml:"name" toml:"name" validate:"required"`
	URL         string `json:"url" yaml:"url" toml:"url" validate:"required"`
	Category    string `json:"category,omitempty" yaml:"-" toml:"-"`
	Description string `json:"description" yaml:"description" toml:"description"`
}

// Article - нормализованная запись, построенная из одного элемента ленты.
// Link идентифицирует статью.
type Article struct {
	Title              string   `json:"title"`
	Link               string   `json:"link"`
	Summary            string   `json:"summary"`
	Published          string   `json:"published"`
	PublishedTimestamp int64    `json:"published_timestamp"`
	SourceName         string   `json:"source_name"`
	SourceURL          string   `json:"source_url"`
	Author             string   `json:"author,omitempty"`
	Tags               []string `json:"tags"`
	Content            string   `json:"content"`
}

// RawEntry - элемент ленты в том виде, в каком он пришёл от парсера.
// Значения могут отсутствовать или иметь неожиданный тип.
type RawEntry map[string]any

// Ключи, которые понимает нормализатор.
const (
	EntryTitle           = "title"
	EntryLink            = "link"
	EntrySummary         = "summary"
	EntryDescription     = "description"
	EntryContent         = "content"
	EntryPublished       = "published"
	EntryPublishedParsed = "published_parsed"
	EntryUpdated         = "updated"
	EntryUpdatedParsed   = "updated_parsed"
	EntryAuthor          = "author"
	EntryTags            = "tags"
)

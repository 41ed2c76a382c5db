package registry

import (
	"fmt"
	"sort"

	"news_hub/internal/models"

	"github.com/samber/lo"
)

// Registry - неизменяемое отображение категория -> упорядоченный список
// источников. Собирается один раз при старте.
type Registry struct {
	categories map[string][]models.Source
	names      []string
	byName     map[string]models.Source
	all        []models.Source
}

// New строит реестр. Имена источников должны быть уникальны во всём реестре.
func New(categories map[string][]models.Source) (*Registry, error) {
	r := &Registry{
		categories: make(map[string][]models.Source, len(categories)),
		byName:     make(map[string]models.Source),
	}

	r.names = lo.Keys(categories)
	sort.Strings(r.names)

	for _, category := range r.names {
		sources := make([]models.Source, 0, len(categories[category]))
		for _, s := range categories[category] {
			if s.Name == "" {
				return nil, fmt.Errorf("category %q: source without name", category)
			}
			if prev, ok := r.byName[s.Name]; ok {
				return nil, fmt.Errorf("duplicate source %q in categories %q and %q", s.Name, prev.Category, category)
			}
			s.Category = category
			r.byName[s.Name] = s
			sources = append(sources, s)
		}
		r.categories[category] = sources
		r.all = append(r.all, sources...)
	}
	return r, nil
}

// Merge добавляет extra к категориям конфигурации. При совпадении имён
// побеждает конфигурация. Источники без категории попадают в fallback.
func Merge(base map[string][]models.Source, extra []models.Source, fallback string) map[string][]models.Source {
	out := make(map[string][]models.Source, len(base))
	taken := make(map[string]bool)
	for category, sources := range base {
		out[category] = append([]models.Source(nil), sources...)
		for _, s := range sources {
			taken[s.Name] = true
		}
	}

	for _, s := range lo.UniqBy(extra, func(s models.Source) string { return s.Name }) {
		if taken[s.Name] {
			continue
		}
		category := s.Category
		if category == "" {
			category = fallback
		}
		out[category] = append(out[category], s)
		taken[s.Name] = true
	}
	return out
}

// Categories возвращает копию отображения категорий.
func (r *Registry) Categories() map[string][]models.Source {
	return lo.MapValues(r.categories, func(sources []models.Source, _ string) []models.Source {
		return append([]models.Source(nil), sources...)
	})
}

// CategoryNames - имена категорий в отсортированном порядке.
func (r *Registry) CategoryNames() []string {
	return append([]string(nil), r.names...)
}

func (r *Registry) HasCategory(category string) bool {
	_, ok := r.categories[category]
	return ok
}

// SourcesIn возвращает источники категории в порядке конфигурации.
// Для неизвестной категории - nil.
func (r *Registry) SourcesIn(category string) []models.Source {
	sources, ok := r.categories[category]
	if !ok {
		return nil
	}
	return append([]models.Source(nil), sources...)
}

func (r *Registry) Lookup(name string) (models.Source, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// All - все источники в порядке категорий.
func (r *Registry) All() []models.Source {
	return append([]models.Source(nil), r.all...)
}

func (r *Registry) FeedNames() []string {
	return lo.Map(r.all, func(s models.Source, _ int) string { return s.Name })
}

func (r *Registry) TotalFeeds() int {
	return len(r.all)
}

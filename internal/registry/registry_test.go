package registry_test

import (
	"testing"

	"news_hub/internal/models"
	"news_hub/internal/registry"

	"github.com/stretchr/testify/require"
)

func testCategories() map[string][]models.Source {
	return map[string][]models.Source{
		"tech": {
			{Name: "wired", URL: "https://wired.example/rss"},
			{Name: "verge", URL: "https://verge.example/rss"},
		},
		"general": {
			{Name: "bbc", URL: "https://bbc.example/rss", Description: "BBC"},
		},
	}
}

func TestNew(t *testing.T) {
	r, err := registry.New(testCategories())
	require.NoError(t, err)

	require.Equal(t, []string{"general", "tech"}, r.CategoryNames())
	require.Equal(t, 3, r.TotalFeeds())
	require.Equal(t, []string{"bbc", "wired", "verge"}, r.FeedNames())
	require.True(t, r.HasCategory("tech"))
	require.False(t, r.HasCategory("sports"))

	tech := r.SourcesIn("tech")
	require.Len(t, tech, 2)
	require.Equal(t, "wired", tech[0].Name)
	require.Equal(t, "tech", tech[0].Category)
	require.Nil(t, r.SourcesIn("sports"))

	bbc, ok := r.Lookup("bbc")
	require.True(t, ok)
	require.Equal(t, "general", bbc.Category)
	require.Equal(t, "BBC", bbc.Description)

	_, ok = r.Lookup("missing")
	require.False(t, ok)
}

func TestNew_DuplicateName(t *testing.T) {
	categories := testCategories()
	categories["general"] = append(categories["general"], models.Source{Name: "wired", URL: "https://other.example/rss"})

	_, err := registry.New(categories)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate source")
}

func TestNew_EmptyName(t *testing.T) {
	_, err := registry.New(map[string][]models.Source{"x": {{URL: "https://x.example/rss"}}})
	require.Error(t, err)
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	r, err := registry.New(testCategories())
	require.NoError(t, err)

	r.SourcesIn("tech")[0].Name = "changed"
	r.All()[0].Name = "changed"
	r.Categories()["tech"][0].Name = "changed"

	require.Equal(t, "wired", r.SourcesIn("tech")[0].Name)
	require.Equal(t, "bbc", r.All()[0].Name)
}

func TestMerge(t *testing.T) {
	extra := []models.Source{
		{Name: "wired", URL: "https://db.example/wired", Category: "tech"},
		{Name: "hn", URL: "https://hn.example/rss", Category: "tech"},
		{Name: "hn", URL: "https://hn.example/dup", Category: "tech"},
		{Name: "loose", URL: "https://loose.example/rss"},
	}

	merged := registry.Merge(testCategories(), extra, "custom")

	require.Len(t, merged["tech"], 3)
	require.Equal(t, "https://wired.example/rss", merged["tech"][0].URL)
	require.Equal(t, "hn", merged["tech"][2].Name)
	require.Equal(t, "https://hn.example/rss", merged["tech"][2].URL)
	require.Equal(t, "loose", merged["custom"][0].Name)

	r, err := registry.New(merged)
	require.NoError(t, err)
	require.Equal(t, 5, r.TotalFeeds())
}

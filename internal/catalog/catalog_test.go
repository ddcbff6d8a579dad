package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDefault(t *testing.T) *Catalog {
	t.Helper()
	cat, err := Load("")
	require.NoError(t, err)
	require.Greater(t, cat.Len(), 0)
	return cat
}

func TestMatch_AmazonProduct(t *testing.T) {
	cat := loadDefault(t)

	entry, ok := cat.Match("https://www.amazon.com/dp/B0EXAMPLE123")
	require.True(t, ok)
	assert.Equal(t, "amazon.product_by_url", entry.ToolKey)

	// Regional domain matches via host suffix.
	entry, ok = cat.Match("https://www.amazon.co.uk/gp-x/dp/B0EXAMPLE123")
	require.True(t, ok)
	assert.Equal(t, "amazon.product_by_url", entry.ToolKey)
}

func TestMatch_AmazonSearchNeedsQueryKey(t *testing.T) {
	cat := loadDefault(t)

	entry, ok := cat.Match("https://www.amazon.com/s?k=mechanical+keyboard")
	require.True(t, ok)
	assert.Equal(t, "amazon.search", entry.ToolKey)

	// Same path without the k parameter matches nothing.
	_, ok = cat.Match("https://www.amazon.com/s")
	assert.False(t, ok)
}

func TestMatch_OtherPlatforms(t *testing.T) {
	cat := loadDefault(t)

	cases := map[string]string{
		"https://www.google.com/maps/place/Somewhere":   "gmaps.details_by_url",
		"https://www.youtube.com/watch?v=abc123":        "youtube.video_by_url",
		"https://youtu.be/abc123":                       "youtube.video_by_shortlink",
		"https://www.tiktok.com/@user/video/1234567890": "tiktok.post_by_url",
		"https://www.instagram.com/p/XYZ/":              "instagram.post_by_url",
	}
	for url, wantKey := range cases {
		entry, ok := cat.Match(url)
		require.True(t, ok, url)
		assert.Equal(t, wantKey, entry.ToolKey, url)
	}
}

func TestMatch_YouTubeNeedsVideoID(t *testing.T) {
	cat := loadDefault(t)

	// Only watch pages carry a video id; channels and playlists have no
	// structured extractor and must fall through to the generic path.
	_, ok := cat.Match("https://www.youtube.com/@somechannel")
	assert.False(t, ok)

	_, ok = cat.Match("https://www.youtube.com/playlist?list=PL123")
	assert.False(t, ok)

	entry, ok := cat.Match("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.True(t, ok)
	assert.Equal(t, "youtube.video_by_url", entry.ToolKey)
}

func TestMatch_NoEntryForPlainSites(t *testing.T) {
	cat := loadDefault(t)

	_, ok := cat.Match("https://example.com/article/42")
	assert.False(t, ok)

	// Google outside /maps is not a structured target.
	_, ok = cat.Match("https://www.google.com/search?q=ok")
	assert.False(t, ok)

	_, ok = cat.Match("://not-a-url")
	assert.False(t, ok)
}

func TestMatch_MostSpecificWins(t *testing.T) {
	cat, err := New([]Entry{
		{ToolKey: "site.any", Hosts: []string{"example.com"}, InputKey: "url"},
		{ToolKey: "site.item", Hosts: []string{"example.com"}, PathContains: []string{"/item/"}, InputKey: "url"},
		{ToolKey: "site.other", Hosts: []string{"example.com"}, InputKey: "url"},
	})
	require.NoError(t, err)

	entry, ok := cat.Match("https://example.com/item/9")
	require.True(t, ok)
	assert.Equal(t, "site.item", entry.ToolKey)

	// Equal specificity falls back to declaration order: site.any and
	// site.other both match with the same score.
	entry, ok = cat.Match("https://example.com/about")
	require.True(t, ok)
	assert.Equal(t, "site.any", entry.ToolKey)
}

func TestList_Paging(t *testing.T) {
	cat := loadDefault(t)

	all, total := cat.List("", "", 0, 0)
	assert.Equal(t, cat.Len(), total)
	assert.Len(t, all, total)

	page, total2 := cat.List("", "", 2, 0)
	assert.Equal(t, total, total2)
	assert.Len(t, page, 2)

	// Offset past the end yields an empty page, not an error.
	none, _ := cat.List("", "", 10, total+5)
	assert.Empty(t, none)
}

func TestList_Filters(t *testing.T) {
	cat := loadDefault(t)

	social, total := cat.List("social", "", 0, 0)
	require.Equal(t, 2, total)
	for _, e := range social {
		assert.Equal(t, "social", e.Group)
	}

	amazon, _ := cat.List("", "amazon", 0, 0)
	require.NotEmpty(t, amazon)
	for _, e := range amazon {
		assert.Contains(t, e.ToolKey, "amazon")
	}

	assert.Equal(t, []string{"ecommerce", "maps", "media", "social"}, cat.Groups())
}

func TestNew_RejectsDuplicateKeys(t *testing.T) {
	_, err := New([]Entry{
		{ToolKey: "dup"},
		{ToolKey: "dup"},
	})
	assert.Error(t, err)

	_, err = New([]Entry{{ToolKey: ""}})
	assert.Error(t, err)
}

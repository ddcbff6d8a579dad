package services

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrapegate/scrapegate/internal/core/domain"
	"github.com/scrapegate/scrapegate/internal/core/ports"
)

func unlockerRegistry(t *testing.T, fake *fakeUpstream) *Registry {
	t.Helper()
	reg := NewRegistry(testLogger(), nil)
	for _, d := range NewUnlockerTools(testLogger(), fake).Descriptors() {
		require.NoError(t, reg.Register(d))
	}
	return reg
}

func TestUnlockerFetch_MarkdownDefault(t *testing.T) {
	fake := &fakeUpstream{
		scrapeResult: ports.ScrapeResult{HTML: "<html><body><h1>Title</h1><p>Body text</p></body></html>"},
	}
	reg := unlockerRegistry(t, fake)

	result := reg.Dispatch(context.Background(), domain.ToolCall{
		Name:  "unlocker.fetch",
		Input: map[string]any{"url": "https://example.com/a"},
	})
	require.True(t, result.OK)
	assert.Equal(t, "markdown", result.Output["format"])
	assert.Contains(t, result.Output["markdown"], "# Title")
	_, hasHTML := result.Output["html"]
	assert.False(t, hasHTML)
}

func TestUnlockerFetch_HTMLAndPNG(t *testing.T) {
	fake := &fakeUpstream{
		scrapeResult: ports.ScrapeResult{HTML: "<html><b>kept</b></html>", PNG: []byte{1, 2, 3}},
	}
	reg := unlockerRegistry(t, fake)

	result := reg.Dispatch(context.Background(), domain.ToolCall{
		Name:  "unlocker.fetch",
		Input: map[string]any{"url": "https://example.com/a", "output_format": "html"},
	})
	require.True(t, result.OK)
	assert.Contains(t, result.Output["html"], "<b>kept</b>")

	result = reg.Dispatch(context.Background(), domain.ToolCall{
		Name:  "unlocker.fetch",
		Input: map[string]any{"url": "https://example.com/a", "output_format": "png"},
	})
	require.True(t, result.OK)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), result.Output["png_base64"])
}

func TestUnlockerFetch_RejectsRelativeURL(t *testing.T) {
	fake := &fakeUpstream{}
	reg := unlockerRegistry(t, fake)

	for _, bad := range []string{"", "not-a-url", "ftp://example.com/x", "/relative/path"} {
		result := reg.Dispatch(context.Background(), domain.ToolCall{
			Name:  "unlocker.fetch",
			Input: map[string]any{"url": bad},
		})
		require.False(t, result.OK, "url %q", bad)
		assert.Equal(t, domain.KindValidation, result.Error.Kind, "url %q", bad)
	}
	assert.Zero(t, fake.scrapeCalls)
}

func TestUnlockerBatchFetch(t *testing.T) {
	fake := &fakeUpstream{
		scrapeResult: ports.ScrapeResult{HTML: "<html><body>page</body></html>"},
	}
	reg := unlockerRegistry(t, fake)

	result := reg.Dispatch(context.Background(), domain.ToolCall{
		Name: "unlocker.batch_fetch",
		Input: map[string]any{
			"urls": []any{"https://example.com/1", "bogus", "https://example.com/3"},
		},
	})
	require.True(t, result.OK)

	items := result.Output["results"].([]any)
	require.Len(t, items, 3)
	assert.Equal(t, true, items[0].(map[string]any)["ok"])
	assert.Equal(t, false, items[1].(map[string]any)["ok"])
	assert.Equal(t, true, items[2].(map[string]any)["ok"])
	// Only the two valid URLs hit the upstream.
	assert.Equal(t, 2, fake.scrapeCalls)
}

func TestUnlockerFetch_TruncatesLongContent(t *testing.T) {
	long := "<html><body>"
	for i := 0; i < 500; i++ {
		long += "<p>repeating paragraph of filler text</p>"
	}
	long += "</body></html>"

	fake := &fakeUpstream{scrapeResult: ports.ScrapeResult{HTML: long}}
	reg := unlockerRegistry(t, fake)

	result := reg.Dispatch(context.Background(), domain.ToolCall{
		Name:  "unlocker.fetch",
		Input: map[string]any{"url": "https://example.com/long", "max_chars": 200},
	})
	require.True(t, result.OK)
	md := result.Output["markdown"].(string)
	assert.Contains(t, md, "content truncated")
}

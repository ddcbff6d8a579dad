package services

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/url"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/scrapegate/scrapegate/internal/core/domain"
	"github.com/scrapegate/scrapegate/internal/core/ports"
)

// UnlockerTools exposes the web-unlocker API as agent tools: fetch one page
// past anti-bot protection, as rendered HTML, readable markdown, or a
// screenshot.
type UnlockerTools struct {
	logger *slog.Logger
	client ports.UpstreamClient
}

func NewUnlockerTools(logger *slog.Logger, client ports.UpstreamClient) *UnlockerTools {
	return &UnlockerTools{logger: logger, client: client}
}

func (t *UnlockerTools) Descriptors() []*domain.ToolDescriptor {
	fetchInput := objectSchema([]string{"url"}, map[string]*openapi3.Schema{
		"url":           stringProp("Absolute URL to fetch."),
		"output_format": enumProp("Result format.", "markdown", "html", "png"),
		"js_render":     boolProp("Render the page in a headless browser before extraction.", true),
		"country":       stringProp("Two-letter exit-node country code."),
		"wait":          intProp("Fixed wait after load, in milliseconds.", 0),
		"wait_for":      stringProp("CSS selector to wait for before capture."),
		"max_chars":     intProp("Truncate text output beyond this many characters.", DefaultMaxChars),
	})

	batchInput := objectSchema([]string{"urls"}, map[string]*openapi3.Schema{
		"urls":          stringArrayProp("URLs to fetch. Each URL is fetched independently."),
		"output_format": enumProp("Result format applied to every URL.", "markdown", "html"),
		"js_render":     boolProp("Render each page in a headless browser before extraction.", true),
		"max_chars":     intProp("Truncate each text output beyond this many characters.", DefaultMaxChars),
		"concurrency":   intProp("Parallel fetches to run at once.", DefaultBatchConcurrency),
	})

	return []*domain.ToolDescriptor{
		{
			Name:        "unlocker.fetch",
			Description: "Fetch one URL through the web unlocker and return markdown, HTML, or a PNG screenshot.",
			Input:       fetchInput,
			Handler:     domain.HandlerFunc(t.fetch),
		},
		{
			Name:        "unlocker.batch_fetch",
			Description: "Fetch several URLs through the web unlocker concurrently with per-URL error isolation.",
			Input:       batchInput,
			Handler:     domain.HandlerFunc(t.batchFetch),
		},
	}
}

func (t *UnlockerTools) fetch(ctx context.Context, call domain.ToolCall) (map[string]any, error) {
	rawURL := inputString(call.Input, "url", "")
	if errDetail := checkURL(rawURL); errDetail != nil {
		return nil, errDetail
	}
	return t.fetchOne(ctx, rawURL,
		inputString(call.Input, "output_format", "markdown"),
		inputBool(call.Input, "js_render", true),
		inputString(call.Input, "country", ""),
		inputInt(call.Input, "wait", 0),
		inputString(call.Input, "wait_for", ""),
		inputInt(call.Input, "max_chars", DefaultMaxChars),
	)
}

func (t *UnlockerTools) batchFetch(ctx context.Context, call domain.ToolCall) (map[string]any, error) {
	urls := inputStringSlice(call.Input, "urls")
	if len(urls) == 0 {
		return nil, domain.NewError(domain.KindValidation, "urls must be a non-empty array of strings", nil)
	}
	format := inputString(call.Input, "output_format", "markdown")
	jsRender := inputBool(call.Input, "js_render", true)
	maxChars := inputInt(call.Input, "max_chars", DefaultMaxChars)
	concurrency := ClampConcurrency(inputInt(call.Input, "concurrency", DefaultBatchConcurrency))

	results := RunBatch(ctx, urls, concurrency, func(ctx context.Context, u string) (map[string]any, error) {
		if errDetail := checkURL(u); errDetail != nil {
			return nil, errDetail
		}
		return t.fetchOne(ctx, u, format, jsRender, "", 0, "", maxChars)
	})
	return BatchOutput(results), nil
}

func (t *UnlockerTools) fetchOne(ctx context.Context, rawURL, format string, jsRender bool, country string, waitMS int, waitFor string, maxChars int) (map[string]any, error) {
	upstreamFormat := "html"
	if format == "png" {
		upstreamFormat = "png"
	}

	res, err := t.client.Scrape(ctx, ports.ScrapeRequest{
		URL:          rawURL,
		OutputFormat: upstreamFormat,
		JSRender:     jsRender,
		Country:      country,
		WaitMS:       waitMS,
		WaitFor:      waitFor,
	})
	if err != nil {
		return nil, err
	}

	out := map[string]any{"url": rawURL, "format": format}
	switch format {
	case "png":
		out["png_base64"] = base64.StdEncoding.EncodeToString(res.PNG)
	case "html":
		out["html"] = Truncate(res.HTML, maxChars)
	default:
		out["markdown"] = Truncate(HTMLToMarkdown(res.HTML), maxChars)
	}
	return out, nil
}

// checkURL rejects inputs the upstream would bounce anyway, before any
// network round trip.
func checkURL(rawURL string) *domain.ErrorDetail {
	if rawURL == "" {
		return domain.NewError(domain.KindValidation, "url is required", nil)
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.NewError(domain.KindValidation, "url must be an absolute http(s) URL", map[string]any{"url": rawURL})
	}
	return nil
}

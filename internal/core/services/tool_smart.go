package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/scrapegate/scrapegate/internal/core/domain"
)

// SmartTools exposes the routed scrape entry point: one tool that picks the
// best extraction path for any URL.
type SmartTools struct {
	logger *slog.Logger
	router *SmartRouter

	defaultMaxWait time.Duration
}

func NewSmartTools(logger *slog.Logger, router *SmartRouter, defaultMaxWait time.Duration) *SmartTools {
	if defaultMaxWait <= 0 {
		defaultMaxWait = 300 * time.Second
	}
	return &SmartTools{logger: logger, router: router, defaultMaxWait: defaultMaxWait}
}

func (t *SmartTools) Descriptors() []*domain.ToolDescriptor {
	input := objectSchema([]string{"url"}, map[string]*openapi3.Schema{
		"url":               stringProp("Absolute URL to scrape."),
		"prefer_structured": boolProp("Try a matching structured extractor before the generic fallback.", true),
		"max_wait_seconds":  intProp("Wait budget for the structured attempt, in seconds.", int(t.defaultMaxWait/time.Second)),
		"fallback_format":   enumProp("Format of the generic-fallback content.", "markdown", "html"),
		"max_chars":         intProp("Truncate fallback text beyond this many characters.", DefaultMaxChars),
	})

	return []*domain.ToolDescriptor{{
		Name:        "smart_scrape",
		Description: "Scrape any URL: structured extraction when a catalog entry matches, generic unlock-and-extract otherwise.",
		Input:       input,
		Handler:     domain.HandlerFunc(t.scrape),
	}}
}

func (t *SmartTools) scrape(ctx context.Context, call domain.ToolCall) (map[string]any, error) {
	rawURL := inputString(call.Input, "url", "")
	if errDetail := checkURL(rawURL); errDetail != nil {
		return nil, errDetail
	}
	return t.router.Scrape(ctx, SmartScrapeRequest{
		URL:              rawURL,
		PreferStructured: inputBool(call.Input, "prefer_structured", true),
		MaxWait:          time.Duration(inputInt(call.Input, "max_wait_seconds", int(t.defaultMaxWait/time.Second))) * time.Second,
		FallbackFormat:   inputString(call.Input, "fallback_format", "markdown"),
		MaxChars:         inputInt(call.Input, "max_chars", DefaultMaxChars),
	})
}

package services

import (
	"context"
	"log/slog"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/scrapegate/scrapegate/internal/core/domain"
	"github.com/scrapegate/scrapegate/internal/core/ports"
)

// SERPTools exposes the search-engine results API as agent tools.
type SERPTools struct {
	logger *slog.Logger
	client ports.UpstreamClient
}

func NewSERPTools(logger *slog.Logger, client ports.UpstreamClient) *SERPTools {
	return &SERPTools{logger: logger, client: client}
}

// Descriptors returns the SERP tool surface.
func (t *SERPTools) Descriptors() []*domain.ToolDescriptor {
	searchInput := objectSchema([]string{"query"}, map[string]*openapi3.Schema{
		"query":  stringProp("Search query. ASCII punctuation only; full-width punctuation is rejected."),
		"engine": enumProp("Search engine to query.", "google", "bing", "yandex", "duckduckgo"),
		"num":    intProp("Number of results to request.", 10),
		"start":  intProp("Result offset for pagination.", 0),
	})

	batchInput := objectSchema([]string{"queries"}, map[string]*openapi3.Schema{
		"queries":     stringArrayProp("Queries to run. Each query is validated and searched independently."),
		"engine":      enumProp("Search engine to query.", "google", "bing", "yandex", "duckduckgo"),
		"num":         intProp("Number of results to request per query.", 10),
		"concurrency": intProp("Parallel searches to run at once.", DefaultBatchConcurrency),
	})

	return []*domain.ToolDescriptor{
		{
			Name:        "serp.search",
			Description: "Run one search-engine query and return the organic results.",
			Input:       searchInput,
			Handler:     domain.HandlerFunc(t.search),
		},
		{
			Name:        "serp.batch_search",
			Description: "Run several search-engine queries concurrently with per-query error isolation.",
			Input:       batchInput,
			Handler:     domain.HandlerFunc(t.batchSearch),
		},
	}
}

func (t *SERPTools) search(ctx context.Context, call domain.ToolCall) (map[string]any, error) {
	query := inputString(call.Input, "query", "")
	if errDetail := domain.CheckQuery(query); errDetail != nil {
		return nil, errDetail
	}
	return t.runSearch(ctx, ports.SearchRequest{
		Query:  query,
		Engine: inputString(call.Input, "engine", "google"),
		Num:    inputInt(call.Input, "num", 10),
		Start:  inputInt(call.Input, "start", 0),
	})
}

func (t *SERPTools) batchSearch(ctx context.Context, call domain.ToolCall) (map[string]any, error) {
	queries := inputStringSlice(call.Input, "queries")
	if len(queries) == 0 {
		return nil, domain.NewError(domain.KindValidation, "queries must be a non-empty array of strings", nil)
	}
	engine := inputString(call.Input, "engine", "google")
	num := inputInt(call.Input, "num", 10)
	concurrency := ClampConcurrency(inputInt(call.Input, "concurrency", DefaultBatchConcurrency))

	results := RunBatch(ctx, queries, concurrency, func(ctx context.Context, q string) (map[string]any, error) {
		if errDetail := domain.CheckQuery(q); errDetail != nil {
			return nil, errDetail
		}
		return t.runSearch(ctx, ports.SearchRequest{Query: q, Engine: engine, Num: num})
	})
	return BatchOutput(results), nil
}

// runSearch performs the upstream call and shapes the result. An upstream
// 200 with zero organic hits is a successful empty result, not an error; the
// output carries an advisory hint so agents rephrase instead of retrying.
func (t *SERPTools) runSearch(ctx context.Context, req ports.SearchRequest) (map[string]any, error) {
	res, err := t.client.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	organic := make([]map[string]any, 0, len(res.Organic))
	for _, hit := range res.Organic {
		organic = append(organic, map[string]any{
			"title":       hit.Title,
			"link":        hit.Link,
			"description": hit.Description,
		})
	}

	out := map[string]any{
		"query":   req.Query,
		"engine":  req.Engine,
		"organic": organic,
		"count":   len(organic),
		"_meta": map[string]any{
			"engine":        req.Engine,
			"query":         req.Query,
			"organic_count": len(organic),
			"has_organic":   len(organic) > 0,
		},
	}
	if len(organic) == 0 {
		out["hint"] = "no organic results returned; try a shorter or rephrased query"
	}
	return out, nil
}

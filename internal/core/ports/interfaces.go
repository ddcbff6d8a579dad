package ports

import (
	"context"
)

// TaskSubmission is one structured-extraction job to create upstream.
type TaskSubmission struct {
	FileName   string
	SpiderID   string
	SpiderName string
	Params     map[string]any
}

// ScrapeRequest is one web-unlocker fetch.
type ScrapeRequest struct {
	URL          string
	OutputFormat string // "html" or "png"
	JSRender     bool
	Country      string
	WaitMS       int
	WaitFor      string
}

// ScrapeResult holds the unlocked page. Exactly one of HTML/PNG is set,
// depending on the requested format.
type ScrapeResult struct {
	HTML string
	PNG  []byte
}

// SearchRequest is one SERP query.
type SearchRequest struct {
	Query  string
	Engine string
	Num    int
	Start  int
}

// SearchHit is one organic result.
type SearchHit struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

// SearchResult is the parsed SERP payload. Raw keeps the full upstream
// document for callers that want more than the organic list.
type SearchResult struct {
	Organic []SearchHit
	Raw     map[string]any
}

// UpstreamClient abstracts the scraping platform's API. Errors returned by
// implementations are already classified (*domain.ErrorDetail) so services
// can propagate them unchanged.
type UpstreamClient interface {
	// SubmitTask creates a structured-extraction job and returns its task ID.
	SubmitTask(ctx context.Context, sub TaskSubmission) (string, error)

	// TaskStatus fetches the upstream status string for a task. Single round
	// trip, never blocks beyond it.
	TaskStatus(ctx context.Context, taskID string) (string, error)

	// TaskResult returns the download handle for a finished task.
	TaskResult(ctx context.Context, taskID, fileType string) (string, error)

	// Scrape runs the web unlocker against one URL.
	Scrape(ctx context.Context, req ScrapeRequest) (ScrapeResult, error)

	// Search runs one SERP query.
	Search(ctx context.Context, req SearchRequest) (SearchResult, error)
}

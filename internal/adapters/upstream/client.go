// Package upstream implements the scraping-platform API client. Every
// response is run through the domain error classifier so callers only ever
// see classified errors.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/scrapegate/scrapegate/internal/config"
	"github.com/scrapegate/scrapegate/internal/core/domain"
	"github.com/scrapegate/scrapegate/internal/core/ports"
)

// Client talks to the three platform APIs: structured tasks, the web
// unlocker, and SERP.
type Client struct {
	logger *slog.Logger
	http   *http.Client

	tasksURL     string
	universalURL string
	serpURL      string

	scraperToken string
	publicToken  string
	publicKey    string
}

// NewClient builds the platform client from configuration.
func NewClient(logger *slog.Logger, cfg *config.Config) *Client {
	return &Client{
		logger: logger,
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
		tasksURL:     cfg.TasksURL,
		universalURL: cfg.UniversalURL,
		serpURL:      cfg.SERPURL,
		scraperToken: cfg.ScraperToken,
		publicToken:  cfg.PublicToken,
		publicKey:    cfg.PublicKey,
	}
}

var _ ports.UpstreamClient = (*Client)(nil)

// SubmitTask creates one structured-extraction job.
func (c *Client) SubmitTask(ctx context.Context, sub ports.TaskSubmission) (string, error) {
	payload := map[string]any{
		"spider_id":   sub.SpiderID,
		"spider_name": sub.SpiderName,
		"file_name":   sub.FileName,
		"params":      sub.Params,
	}

	body, errDetail := c.postJSON(ctx, c.tasksURL+"/submit", payload, c.taskAuth)
	if errDetail != nil {
		return "", errDetail
	}

	var result struct {
		Data struct {
			TaskID string `json:"task_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", domain.NewError(domain.KindUpstreamInternal, "malformed task submit response", map[string]any{"cause": err.Error()})
	}
	if result.Data.TaskID == "" {
		return "", domain.NewError(domain.KindUpstreamInternal, "task submit response carried no task_id", nil)
	}
	return result.Data.TaskID, nil
}

// TaskStatus fetches the raw upstream status string for one task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (string, error) {
	body, errDetail := c.postJSON(ctx, c.tasksURL+"/status", map[string]any{"task_id": taskID}, c.taskAuth)
	if errDetail != nil {
		return "", errDetail
	}

	var result struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", domain.NewError(domain.KindUpstreamInternal, "malformed task status response", map[string]any{"cause": err.Error()})
	}
	return result.Data.Status, nil
}

// TaskResult fetches the download URL for a finished task.
func (c *Client) TaskResult(ctx context.Context, taskID, fileType string) (string, error) {
	payload := map[string]any{"task_id": taskID, "file_type": fileType}
	body, errDetail := c.postJSON(ctx, c.tasksURL+"/result", payload, c.taskAuth)
	if errDetail != nil {
		return "", errDetail
	}

	var result struct {
		Data struct {
			DownloadURL string `json:"download_url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", domain.NewError(domain.KindUpstreamInternal, "malformed task result response", map[string]any{"cause": err.Error()})
	}
	if result.Data.DownloadURL == "" {
		return "", domain.NewError(domain.KindNotFound, "no result file for task", map[string]any{"task_id": taskID, "file_type": fileType})
	}
	return result.Data.DownloadURL, nil
}

// Scrape runs the web unlocker against one URL.
func (c *Client) Scrape(ctx context.Context, req ports.ScrapeRequest) (ports.ScrapeResult, error) {
	jsRender := "no"
	if req.JSRender {
		jsRender = "yes"
	}
	payload := map[string]any{
		"url":       req.URL,
		"type":      req.OutputFormat,
		"js_render": jsRender,
	}
	if req.Country != "" {
		payload["country"] = req.Country
	}
	if req.WaitMS > 0 {
		payload["wait"] = req.WaitMS
	}
	if req.WaitFor != "" {
		payload["wait_for"] = req.WaitFor
	}

	body, errDetail := c.postJSON(ctx, c.universalURL, payload, c.bearerAuth)
	if errDetail != nil {
		return ports.ScrapeResult{}, errDetail
	}

	if req.OutputFormat == "png" {
		return ports.ScrapeResult{PNG: body}, nil
	}
	return ports.ScrapeResult{HTML: string(body)}, nil
}

// Search runs one SERP query.
func (c *Client) Search(ctx context.Context, req ports.SearchRequest) (ports.SearchResult, error) {
	engine := req.Engine
	if engine == "" {
		engine = "google"
	}
	payload := map[string]any{
		"q":      req.Query,
		"engine": engine,
	}
	if req.Num > 0 {
		payload["num"] = req.Num
	}
	if req.Start > 0 {
		payload["start"] = req.Start
	}

	body, errDetail := c.postJSON(ctx, c.serpURL, payload, c.bearerAuth)
	if errDetail != nil {
		return ports.SearchResult{}, errDetail
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return ports.SearchResult{}, domain.NewError(domain.KindUpstreamInternal, "malformed search response", map[string]any{"cause": err.Error()})
	}

	var parsed struct {
		Organic []ports.SearchHit `json:"organic"`
	}
	// Best effort: some engines return no organic block at all.
	_ = json.Unmarshal(body, &parsed)

	return ports.SearchResult{Organic: parsed.Organic, Raw: raw}, nil
}

// postJSON performs one POST round trip and classifies the outcome. A nil
// error detail means a 2xx response; body is the raw response payload.
func (c *Client) postJSON(ctx context.Context, url string, payload map[string]any, auth func(*http.Request)) ([]byte, *domain.ErrorDetail) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, "failed to encode request payload", map[string]any{"cause": err.Error()})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, "failed to build request", map[string]any{"cause": err.Error()})
	}
	req.Header.Set("Content-Type", "application/json")
	auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.Classify(nil, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Classify(nil, err)
	}

	if errDetail := domain.Classify(&domain.UpstreamResponse{Status: resp.StatusCode, Body: body}, nil); errDetail != nil {
		c.logger.Warn("upstream request failed",
			"url", url, "status", resp.StatusCode, "code", errDetail.Code)
		return nil, errDetail
	}
	return body, nil
}

func (c *Client) taskAuth(req *http.Request) {
	req.Header.Set("token", c.publicToken)
	req.Header.Set("key", c.publicKey)
}

func (c *Client) bearerAuth(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.scraperToken))
}

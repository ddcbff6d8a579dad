package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ModeRapid, cfg.Mode)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 300*time.Second, cfg.MaxWait)
	assert.Equal(t, 5, cfg.BatchConcurrency)
	assert.Equal(t, 20, cfg.BatchConcurrencyCap)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("SCRAPEGATE_SCRAPER_TOKEN", "tok-1")
	t.Setenv("SCRAPEGATE_MODE", "PRO")
	t.Setenv("SCRAPEGATE_TOOLS", "tasks.batch_run, serp.batch_search")
	t.Setenv("SCRAPEGATE_POLL_INTERVAL", "500ms")
	t.Setenv("SCRAPEGATE_TASKS_URL", "https://tasks.internal/")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", cfg.ScraperToken)
	assert.Equal(t, ModePro, cfg.Mode)
	assert.Equal(t, []string{"tasks.batch_run", "serp.batch_search"}, cfg.Tools)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	// Trailing slash is normalized so path joins stay predictable.
	assert.Equal(t, "https://tasks.internal", cfg.TasksURL)
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("SCRAPEGATE_MODE", "turbo")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("SCRAPEGATE_MODE", "rapid")
	t.Setenv("SCRAPEGATE_POLL_INTERVAL", "soon")
	_, err = FromEnv()
	assert.Error(t, err)

	t.Setenv("SCRAPEGATE_POLL_INTERVAL", "1s")
	t.Setenv("SCRAPEGATE_BATCH_CONCURRENCY", "-2")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestToolEnabled(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.ToolEnabled("serp.search", true))
	assert.False(t, cfg.ToolEnabled("tasks.batch_run", false))

	cfg.Tools = []string{"tasks.batch_run"}
	assert.True(t, cfg.ToolEnabled("tasks.batch_run", false))
	assert.True(t, cfg.ToolEnabled("Tasks.Batch_Run", false))

	cfg.Mode = ModePro
	assert.True(t, cfg.ToolEnabled("anything.at_all", false))
}

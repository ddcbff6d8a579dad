package services

import (
	"log/slog"

	scrapecatalog "github.com/scrapegate/scrapegate/internal/catalog"
	"github.com/scrapegate/scrapegate/internal/config"
	"github.com/scrapegate/scrapegate/internal/core/domain"
	"github.com/scrapegate/scrapegate/internal/core/ports"
)

// Base tool set registered in every mode. Everything else needs pro mode or
// an explicit allowlist entry.
var baseTools = map[string]bool{
	"serp.search":          true,
	"unlocker.fetch":       true,
	"smart_scrape":         true,
	"tasks.list":           true,
	"tasks.run":            true,
	"tasks.status":         true,
	"tasks.wait":           true,
	"tasks.result":         true,
	"serp.batch_search":    false,
	"unlocker.batch_fetch": false,
	"tasks.batch_run":      false,
	"tasks.cancel":         false,
}

// RegisterAll builds every tool group and registers the descriptors enabled
// by the configuration.
func RegisterAll(reg *Registry, logger *slog.Logger, cfg *config.Config, client ports.UpstreamClient, cat *scrapecatalog.Catalog) error {
	manager := NewTaskManager(logger, client, cat, cfg.PollInterval)
	router := NewSmartRouter(logger, manager, client, cat)

	var descriptors []*domain.ToolDescriptor
	descriptors = append(descriptors, NewSERPTools(logger, client).Descriptors()...)
	descriptors = append(descriptors, NewUnlockerTools(logger, client).Descriptors()...)
	descriptors = append(descriptors, NewTaskTools(logger, manager, cat, cfg.MaxWait).Descriptors()...)
	descriptors = append(descriptors, NewSmartTools(logger, router, cfg.MaxWait).Descriptors()...)

	for _, d := range descriptors {
		if !cfg.ToolEnabled(d.Name, baseTools[d.Name]) {
			logger.Debug("tool disabled by configuration", "tool", d.Name)
			continue
		}
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}

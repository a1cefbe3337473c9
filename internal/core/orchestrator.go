package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	DownloadStatusOK        = "ok"
	DownloadStatusFailed    = "failed"
	DownloadStatusDuplicate = "duplicate"
)

// Summary counts the outcome of a download run.
type Summary struct {
	Downloaded int
	Failed     int
	Skipped    int
}

// ResultHandler is called once per item after its download attempt. path is empty on failure or skip.
type ResultHandler func(item Item, path string, status string, err error)

// Orchestrator resolves user input into items and drives the media fetcher over them.
type Orchestrator struct {
	config   *Config
	catalog  Catalog
	media    MediaFetcher
	dedup    DedupStore
	metrics  MetricsRecorder
	logger   *zap.Logger
	onResult ResultHandler
	slice    Slice
}

func NewOrchestrator(
	config *Config,
	catalog Catalog,
	media MediaFetcher,
	dedup DedupStore,
	metrics MetricsRecorder,
	logger *zap.Logger,
) *Orchestrator {
	if metrics == nil {
		metrics = NopRecorder{}
	}
	return &Orchestrator{
		config:  config,
		catalog: catalog,
		media:   media,
		dedup:   dedup,
		metrics: metrics,
		logger:  logger,
	}
}

// SetResultHandler installs the per-item callback used for progress output.
func (o *Orchestrator) SetResultHandler(handler ResultHandler) {
	o.onResult = handler
}

// Validate checks everything user-supplied that can be checked without network access.
func (o *Orchestrator) Validate() error {
	if o.config.Download.Format != FormatHelp {
		if err := ValidateTemplate(o.config.Download.Format); err != nil {
			return fmt.Errorf("format: %w", err)
		}
	}

	slice, err := ParseSlice(o.config.App.Slice)
	if err != nil {
		return err
	}
	o.slice = slice

	if !o.config.App.SearchType.IsSearchable() {
		return fmt.Errorf("search type: %w: %s", ErrUnsupportedType, o.config.App.SearchType)
	}

	return nil
}

// Resolve turns a link, URI or free-text query into the selected items. A resolution
// that selects nothing returns an error wrapping ErrNoResults.
func (o *Orchestrator) Resolve(ctx context.Context, query string) ([]Item, error) {
	start := time.Now()

	items, err := o.catalog.ItemsByLink(ctx, query)
	if errors.Is(err, ErrInvalidReference) {
		o.logger.Debug("Input is not a catalog reference, searching",
			zap.String("query", query),
			zap.String("type", string(o.config.App.SearchType)))
		items, err = o.catalog.ItemsBySearch(ctx, query, o.config.App.SearchType)
	}
	if err != nil {
		return nil, err
	}

	selected := o.slice.Apply(items)

	o.logger.Info("Resolved query",
		zap.String("query", query),
		zap.Int("total", len(items)),
		zap.Int("selected", len(selected)),
		zap.String("slice", o.slice.String()),
		zap.Duration("elapsed", time.Since(start)))

	if len(selected) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoResults, query)
	}
	return selected, nil
}

// Download fetches every item in order. A failed item is reported and skipped; only
// cancellation stops the run early.
func (o *Orchestrator) Download(ctx context.Context, items []Item) (Summary, error) {
	var summary Summary

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if item.ID != "" && o.dedup.Has(item.ID) {
			o.logger.Info("Skipping duplicate track",
				zap.String("id", item.ID),
				zap.Int("index", item.Index))
			summary.Skipped++
			o.metrics.RecordDownload(DownloadStatusDuplicate)
			o.report(item, "", DownloadStatusDuplicate, nil)
			continue
		}

		path, err := o.fetch(ctx, item)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			o.logger.Warn("Download failed, skipping track",
				zap.String("id", item.ID),
				zap.Int("index", item.Index),
				zap.String("keywords", item.Keywords()),
				zap.Error(err))
			summary.Failed++
			o.metrics.RecordDownload(DownloadStatusFailed)
			o.report(item, "", DownloadStatusFailed, err)
			continue
		}

		if item.ID != "" {
			o.dedup.Add(item.ID)
		}
		summary.Downloaded++
		o.metrics.RecordDownload(DownloadStatusOK)
		o.report(item, path, DownloadStatusOK, nil)
	}

	o.logger.Info("Download run finished",
		zap.Int("downloaded", summary.Downloaded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped))

	return summary, nil
}

func (o *Orchestrator) fetch(ctx context.Context, item Item) (string, error) {
	name, err := item.RenderSafe(o.config.Download.Format)
	if err != nil {
		return "", err
	}
	if name == "" {
		name = item.ID
	}

	target := filepath.Join(o.config.Download.OutputDir, name)
	return o.media.Fetch(ctx, item, target)
}

func (o *Orchestrator) report(item Item, path, status string, err error) {
	if o.onResult != nil {
		o.onResult(item, path, status, err)
	}
}

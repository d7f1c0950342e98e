// Package discovery enumerates every listing URL of a paginated catalog.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IshaanNene/carharvest/internal/config"
	"github.com/IshaanNene/carharvest/internal/fetcher"
	"github.com/IshaanNene/carharvest/internal/observability"
	"github.com/IshaanNene/carharvest/internal/parser"
	"github.com/IshaanNene/carharvest/internal/types"
)

// Result is the outcome of one discovery run.
type Result struct {
	// URLs holds the listing URLs in catalog order, first appearance only.
	URLs []string

	// LastPage is the page count read from the catalog root.
	LastPage int

	// PagesFailed counts results pages that were skipped after a failure.
	PagesFailed int

	// Duplicates counts listing links dropped because they appeared earlier.
	Duplicates int

	Elapsed time.Duration
}

// Discoverer walks the results pages of a catalog.
type Discoverer struct {
	fetcher    fetcher.Fetcher
	parser     *parser.CatalogParser
	pageFormat string
	timeout    time.Duration
	failures   observability.FailureRecorder
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// New creates a Discoverer. failures receives every skipped page.
func New(cfg *config.Config, f fetcher.Fetcher, failures observability.FailureRecorder, metrics *observability.Metrics, logger *slog.Logger) *Discoverer {
	if failures == nil {
		failures = observability.Discard{}
	}
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	return &Discoverer{
		fetcher:    f,
		parser:     parser.NewCatalogParser(&cfg.Catalog, logger),
		pageFormat: cfg.Catalog.PagePathFormat,
		timeout:    cfg.Engine.RequestTimeout,
		failures:   failures,
		metrics:    metrics,
		logger:     logger.With("component", "discovery"),
	}
}

// Discover reads the last page number from root and collects the listing
// links of pages 1..last. A failure on root is a *types.DiscoveryError; a
// failure on a single results page is logged and that page is skipped.
func (d *Discoverer) Discover(ctx context.Context, root string) (*Result, error) {
	start := time.Now()
	root = strings.TrimRight(strings.TrimSpace(root), "/")

	resp, err := d.fetch(ctx, root, types.TagCatalog)
	if err != nil {
		d.failures.Record(observability.StageDiscovery, root, err)
		return nil, &types.DiscoveryError{URL: root, Err: err}
	}

	lastPage, err := d.parser.LastPage(resp)
	if err != nil {
		d.failures.Record(observability.StageDiscovery, root, err)
		return nil, &types.DiscoveryError{URL: root, Err: err}
	}

	d.logger.Info("catalog pages found", "root", root, "last_page", lastPage)

	result := &Result{LastPage: lastPage}
	dedup := newDeduplicator(lastPage)

	for page := 1; page <= lastPage; page++ {
		if err := ctx.Err(); err != nil {
			result.Elapsed = time.Since(start)
			return result, fmt.Errorf("%w: %w", types.ErrCrawlStopped, err)
		}

		pageURL := root + fmt.Sprintf(d.pageFormat, page)
		links, err := d.pageLinks(ctx, pageURL)
		if err != nil {
			result.PagesFailed++
			d.metrics.PagesFailed.Add(1)
			d.failures.Record(observability.StageResults, pageURL, err)
			d.logger.Error("results page skipped", "url", pageURL, "error", err)
			continue
		}
		d.metrics.PagesFetched.Add(1)

		for _, link := range links {
			if !dedup.firstSeen(link) {
				result.Duplicates++
				d.metrics.LinksDuplicate.Add(1)
				d.logger.Warn("duplicate listing link dropped", "url", link, "page", page)
				continue
			}
			result.URLs = append(result.URLs, link)
			d.metrics.LinksFound.Add(1)
		}

		d.logger.Debug("results page done", "page", page, "links", len(links))
	}

	result.Elapsed = time.Since(start)
	d.logger.Info("discovery finished",
		"links", len(result.URLs),
		"duplicates", result.Duplicates,
		"pages_failed", result.PagesFailed,
		"elapsed", result.Elapsed,
	)
	return result, nil
}

func (d *Discoverer) pageLinks(ctx context.Context, pageURL string) ([]string, error) {
	resp, err := d.fetch(ctx, pageURL, types.TagResults)
	if err != nil {
		return nil, err
	}
	return d.parser.ResultLinks(resp)
}

func (d *Discoverer) fetch(ctx context.Context, rawURL, tag string) (*types.Response, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, err
	}
	req.Tag = tag
	req.Timeout = d.timeout

	d.metrics.RequestsTotal.Add(1)
	resp, err := d.fetcher.Fetch(ctx, req)
	if err != nil {
		d.metrics.RequestsFailed.Add(1)
		return nil, err
	}
	d.metrics.BytesDownloaded.Add(int64(len(resp.Body)))

	if !resp.IsSuccess() {
		d.metrics.RequestsFailed.Add(1)
		return nil, &types.FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return resp, nil
}

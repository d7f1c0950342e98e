// Package engine drives the crawl: for every listing URL it checks the
// record store, fetches and parses the detail page, and stores the record.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IshaanNene/carharvest/internal/config"
	"github.com/IshaanNene/carharvest/internal/discovery"
	"github.com/IshaanNene/carharvest/internal/observability"
	"github.com/IshaanNene/carharvest/internal/types"
)

// Fetcher is the interface for all fetcher implementations.
type Fetcher interface {
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)
}

// Parser builds a listing record keyed by url from a detail page.
type Parser interface {
	Parse(resp *types.Response, url string) (*types.Listing, error)
}

// Store is the part of a record store the controller needs.
type Store interface {
	FindOne(ctx context.Context, url string) (*types.Listing, error)
	Upsert(ctx context.Context, listing *types.Listing) error
}

// Outcome is the terminal state of one URL in a crawl.
type Outcome int

const (
	OutcomeStored Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStored:
		return "stored"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of one URL.
type Result struct {
	URL      string
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// Summary aggregates the results of a crawl.
type Summary struct {
	Total    int
	Stored   int
	Skipped  int
	Failed   int
	Failures []Result

	// Stopped is set when the crawl ended early on cancellation or limit.
	Stopped bool
	Elapsed time.Duration
}

func (s *Summary) add(r Result) {
	s.Total++
	switch r.Outcome {
	case OutcomeStored:
		s.Stored++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
		s.Failures = append(s.Failures, r)
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithFailureRecorder sends every failed URL to fr.
func WithFailureRecorder(fr observability.FailureRecorder) Option {
	return func(c *Controller) { c.failures = fr }
}

// WithMetrics counts requests and outcomes in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// Controller runs the sequential crawl over a list of listing URLs.
type Controller struct {
	fetcher  Fetcher
	parser   Parser
	store    Store
	timeout  time.Duration
	limit    int
	failures observability.FailureRecorder
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewController creates a Controller. cfg supplies the per-request timeout
// and the fetch limit.
func NewController(cfg *config.EngineConfig, f Fetcher, p Parser, s Store, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		fetcher:  f,
		parser:   p,
		store:    s,
		timeout:  cfg.RequestTimeout,
		limit:    cfg.Limit,
		failures: observability.Discard{},
		logger:   logger.With("component", "controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = observability.NewMetrics(logger)
	}
	return c
}

// Run crawls every URL of a link file.
func (c *Controller) Run(ctx context.Context, linkFile string) (*Summary, error) {
	urls, err := discovery.ReadLinkFile(linkFile)
	if err != nil {
		return nil, err
	}
	c.logger.Info("link file loaded", "path", linkFile, "urls", len(urls))
	return c.Crawl(ctx, urls)
}

// Crawl processes urls one at a time. A failure on one URL is logged and
// the crawl continues. Cancelling ctx stops the crawl between URLs and
// returns the partial summary with an error wrapping types.ErrCrawlStopped.
func (c *Controller) Crawl(ctx context.Context, urls []string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}
	fetched := 0

	for _, raw := range urls {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}

		if err := ctx.Err(); err != nil {
			summary.Stopped = true
			summary.Elapsed = time.Since(start)
			return summary, fmt.Errorf("%w: %w", types.ErrCrawlStopped, err)
		}
		if c.limit > 0 && fetched >= c.limit {
			c.logger.Info("fetch limit reached", "limit", c.limit)
			summary.Stopped = true
			break
		}

		res := c.process(ctx, url)

		// A fetch cut short by cancellation is not a listing failure.
		if res.Outcome == OutcomeFailed && ctx.Err() != nil && errors.Is(res.Err, ctx.Err()) {
			summary.Stopped = true
			summary.Elapsed = time.Since(start)
			return summary, fmt.Errorf("%w: %w", types.ErrCrawlStopped, ctx.Err())
		}

		if res.Outcome != OutcomeSkipped {
			fetched++
		}
		summary.add(res)
		c.report(res)
	}

	summary.Elapsed = time.Since(start)
	c.logger.Info("crawl finished",
		"total", summary.Total,
		"stored", summary.Stored,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

// process takes one URL from Unvisited to Stored, Skipped or Failed.
func (c *Controller) process(ctx context.Context, url string) Result {
	start := time.Now()
	failed := func(err error) Result {
		return Result{URL: url, Outcome: OutcomeFailed, Err: err, Duration: time.Since(start)}
	}

	existing, err := c.store.FindOne(ctx, url)
	if err != nil {
		return failed(err)
	}
	if existing != nil {
		return Result{URL: url, Outcome: OutcomeSkipped, Duration: time.Since(start)}
	}

	resp, err := c.fetch(ctx, url)
	if err != nil {
		return failed(err)
	}

	listing, err := c.parser.Parse(resp, url)
	if err != nil {
		return failed(err)
	}

	if err := c.store.Upsert(ctx, listing); err != nil {
		return failed(err)
	}
	return Result{URL: url, Outcome: OutcomeStored, Duration: time.Since(start)}
}

func (c *Controller) fetch(ctx context.Context, url string) (*types.Response, error) {
	req, err := types.NewRequest(url)
	if err != nil {
		return nil, err
	}
	req.Tag = types.TagDetail
	req.Timeout = c.timeout

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.metrics.RequestsTotal.Add(1)
	resp, err := c.fetcher.Fetch(reqCtx, req)
	if err != nil {
		c.metrics.RequestsFailed.Add(1)
		return nil, err
	}
	c.metrics.BytesDownloaded.Add(int64(len(resp.Body)))

	if !resp.IsSuccess() {
		c.metrics.RequestsFailed.Add(1)
		return nil, &types.FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return resp, nil
}

func (c *Controller) report(res Result) {
	switch res.Outcome {
	case OutcomeStored:
		c.metrics.ListingsStored.Add(1)
		c.logger.Info("listing stored", "url", res.URL, "duration", res.Duration)
	case OutcomeSkipped:
		c.metrics.ListingsSkipped.Add(1)
		c.logger.Debug("listing already stored", "url", res.URL)
	case OutcomeFailed:
		c.metrics.ListingsFailed.Add(1)
		c.failures.Record(observability.StageListing, res.URL, res.Err)
		c.logger.Error("listing failed", "url", res.URL, "error", res.Err)
	}
}

package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
)

// Metrics tracks operational counters for discovery, crawling and
// normalization.
type Metrics struct {
	// Fetch metrics
	RequestsTotal   atomic.Int64
	RequestsFailed  atomic.Int64
	BytesDownloaded atomic.Int64

	// Discovery metrics
	PagesFetched   atomic.Int64
	PagesFailed    atomic.Int64
	LinksFound     atomic.Int64
	LinksDuplicate atomic.Int64

	// Crawl metrics
	ListingsStored  atomic.Int64
	ListingsSkipped atomic.Int64
	ListingsFailed  atomic.Int64

	// Normalization metrics
	RowsWritten  atomic.Int64
	RowsExcluded atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

type metricLine struct {
	name  string
	help  string
	value int64
}

func (m *Metrics) lines() []metricLine {
	return []metricLine{
		{"carharvest_requests_total", "Total page requests made", m.RequestsTotal.Load()},
		{"carharvest_requests_failed_total", "Total failed page requests", m.RequestsFailed.Load()},
		{"carharvest_bytes_downloaded_total", "Total bytes downloaded", m.BytesDownloaded.Load()},
		{"carharvest_pages_fetched_total", "Total results pages fetched", m.PagesFetched.Load()},
		{"carharvest_pages_failed_total", "Total results pages skipped after a failure", m.PagesFailed.Load()},
		{"carharvest_links_found_total", "Total listing links discovered", m.LinksFound.Load()},
		{"carharvest_links_duplicate_total", "Total duplicate listing links dropped", m.LinksDuplicate.Load()},
		{"carharvest_listings_stored_total", "Total listings stored", m.ListingsStored.Load()},
		{"carharvest_listings_skipped_total", "Total listings skipped as already stored", m.ListingsSkipped.Load()},
		{"carharvest_listings_failed_total", "Total listings that failed", m.ListingsFailed.Load()},
		{"carharvest_rows_written_total", "Total normalized rows written", m.RowsWritten.Load()},
		{"carharvest_rows_excluded_total", "Total rows excluded during normalization", m.RowsExcluded.Load()},
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	for _, metric := range m.lines() {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// Router returns the metrics and health routes.
func (m *Metrics) Router(path string) *mux.Router {
	r := mux.NewRouter()
	r.Handle(path, m).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	}).Methods(http.MethodGet)
	return r
}

// StartServer starts the metrics HTTP server in the background. The server
// shuts down when ctx is cancelled.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) *http.Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           m.Router(path),
		ReadHeaderTimeout: 5 * time.Second,
	}

	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"requests_total":   m.RequestsTotal.Load(),
		"requests_failed":  m.RequestsFailed.Load(),
		"bytes_downloaded": m.BytesDownloaded.Load(),
		"pages_fetched":    m.PagesFetched.Load(),
		"pages_failed":     m.PagesFailed.Load(),
		"links_found":      m.LinksFound.Load(),
		"links_duplicate":  m.LinksDuplicate.Load(),
		"listings_stored":  m.ListingsStored.Load(),
		"listings_skipped": m.ListingsSkipped.Load(),
		"listings_failed":  m.ListingsFailed.Load(),
		"rows_written":     m.RowsWritten.Load(),
		"rows_excluded":    m.RowsExcluded.Load(),
	}
}

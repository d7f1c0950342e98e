package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/carharvest/internal/config"
	"github.com/IshaanNene/carharvest/internal/discovery"
	"github.com/IshaanNene/carharvest/internal/observability"
	"github.com/IshaanNene/carharvest/internal/pipeline"
	"github.com/IshaanNene/carharvest/internal/storage"
	"github.com/IshaanNene/carharvest/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const adPage = `<html><body>
<h1><span property="p:name">%s</span></h1>
<table class="hirdetesadatok">
%s
</table>
</body></html>`

func row(label, value string) string {
	return fmt.Sprintf("<tr><td>%s</td><td>%s</td></tr>", label, value)
}

func result(href string) string {
	return fmt.Sprintf(`<div class="talalati_lista_head"><h3><a href="%s">Ford Focus</a></h3></div>`, href)
}

func newSiteServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auto/ford/focus", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a title="Utolsó oldal" href="/auto/ford/focus/page2">2</a></body></html>`)
	})
	mux.HandleFunc("/auto/ford/focus/page1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>"+result("/ad/focus-11111111")+result("/ad/focus-22222222")+"</body></html>")
	})
	mux.HandleFunc("/auto/ford/focus/page2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>"+result("/ad/focus-33333333")+result("/ad/focus-11111111")+"</body></html>")
	})
	mux.HandleFunc("/ad/focus-11111111", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, adPage, "Ford Focus 1.6 Trend", strings.Join([]string{
			row("Ár (EUR):", "€ 5.500"),
			row("Évjárat:", "2012/05"),
			row("Üzemanyag:", "Benzin"),
			row("Sebességváltó fajtája:", "Manuális (5 fokozatú)"),
			row("Szín:", "fekete (metál)"),
			row("Teljesítmény:", "92 kW, 125 LE"),
			row("Ajtók száma:", "5"),
		}, "\n"))
	})
	mux.HandleFunc("/ad/focus-22222222", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, adPage, "Ford Focus 1.4 Ambiente", row("Évjárat:", "2009"))
	})
	mux.HandleFunc("/ad/focus-33333333", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, failures *bytes.Buffer) *app {
	t.Helper()
	dir := t.TempDir()

	dict := filepath.Join(dir, "dictionary.json")
	if err := os.WriteFile(dict, []byte(`{"Benzin": "Petrol", "fekete": "black", "Manuális (5 fokozatú)": "Manual (5 speed)"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Catalog.LinkFile = filepath.Join(dir, "links.txt")
	cfg.Engine.RequestTimeout = 5 * time.Second
	cfg.Storage.Type = "memory"
	cfg.Normalize.TranslationFile = dict
	cfg.Normalize.OutputPath = filepath.Join(dir, "out.csv")
	if err := config.Validate(cfg); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &app{
		cfg:      cfg,
		logger:   testLogger,
		failures: observability.NewFailureLog(failures),
		metrics:  observability.NewMetrics(testLogger),
		store:    storage.NewMemoryStore(testLogger),
		ctx:      ctx,
		cancel:   cancel,
	}
	t.Cleanup(a.Close)
	return a
}

func TestRunThenNormalize(t *testing.T) {
	srv := newSiteServer(t)
	var failures bytes.Buffer
	a := newTestApp(t, &failures)

	result, err := a.discover(srv.URL + "/auto/ford/focus")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(result.URLs) != 3 || result.Duplicates != 1 {
		t.Fatalf("expected 3 links and 1 duplicate, got %d and %d", len(result.URLs), result.Duplicates)
	}
	links, err := discovery.ReadLinkFile(a.cfg.Catalog.LinkFile)
	if err != nil || len(links) != 3 {
		t.Fatalf("link file: %v (%d links)", err, len(links))
	}

	if err := a.crawl(); err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if got := a.metrics.ListingsStored.Load(); got != 2 {
		t.Errorf("expected 2 stored listings, got %d", got)
	}
	if got := a.metrics.ListingsFailed.Load(); got != 1 {
		t.Errorf("expected 1 failed listing, got %d", got)
	}
	if !strings.Contains(failures.String(), "focus-33333333") {
		t.Errorf("failure log should name the missing ad, got %q", failures.String())
	}

	// A second crawl skips everything already stored and retries the failure.
	if err := a.crawl(); err != nil {
		t.Fatalf("second crawl: %v", err)
	}
	if got := a.metrics.ListingsSkipped.Load(); got != 2 {
		t.Errorf("expected 2 skipped listings, got %d", got)
	}

	if err := a.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}

	f, err := os.Open(a.cfg.Normalize.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header and 1 row, got %d records", len(records))
	}

	header := records[0]
	cell := func(col string) string {
		for i, h := range header {
			if h == col {
				return records[1][i]
			}
		}
		t.Fatalf("column %q missing from %v", col, header)
		return ""
	}
	want := map[string]string{
		pipeline.ColPrice:      "5500",
		pipeline.ColYear:       "2012",
		pipeline.ColMonth:      "5",
		pipeline.ColFuel:       "Petrol",
		pipeline.ColGears:      "5",
		pipeline.ColPaint:      "black",
		pipeline.ColMetallic:   "true",
		pipeline.ColHorsepower: "125",
		pipeline.ColDoors:      "5",
	}
	for col, v := range want {
		if got := cell(col); got != v {
			t.Errorf("%s = %q, want %q", col, got, v)
		}
	}
}

func TestDiscoverStoppedKeepsLinkFile(t *testing.T) {
	var failures bytes.Buffer
	a := newTestApp(t, &failures)

	previous := "https://example.com/ad/focus-99999999\n"
	if err := os.WriteFile(a.cfg.Catalog.LinkFile, []byte(previous), 0o644); err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auto/ford/focus", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a title="Utolsó oldal" href="/auto/ford/focus/page3">3</a></body></html>`)
	})
	mux.HandleFunc("/auto/ford/focus/page1", func(w http.ResponseWriter, r *http.Request) {
		a.cancel()
		fmt.Fprint(w, "<html><body>"+result("/ad/focus-11111111")+"</body></html>")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	_, err := a.discover(srv.URL + "/auto/ford/focus")
	if !errors.Is(err, types.ErrCrawlStopped) {
		t.Fatalf("expected ErrCrawlStopped, got %v", err)
	}

	data, err := os.ReadFile(a.cfg.Catalog.LinkFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != previous {
		t.Errorf("link file was replaced by a partial list: %q", data)
	}
}

func TestDiscoverRejectsBadRoot(t *testing.T) {
	var failures bytes.Buffer
	a := newTestApp(t, &failures)
	if _, err := a.discover("ftp://example.com/catalog"); err == nil {
		t.Error("expected error for non-http root")
	}
}

func TestApplyCLIOverrides(t *testing.T) {
	t.Cleanup(func() {
		limit, dryRun, fetcherType, timeout, colorStrategy = 0, false, "", "", ""
	})
	limit, dryRun, fetcherType, timeout, colorStrategy = 25, true, "BROWSER", "3s", "split"

	cfg := config.DefaultConfig()
	if err := applyCLIOverrides(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.Limit != 25 {
		t.Errorf("limit = %d", cfg.Engine.Limit)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("dry run should select memory storage, got %q", cfg.Storage.Type)
	}
	if cfg.Fetcher.Type != "browser" {
		t.Errorf("fetcher = %q", cfg.Fetcher.Type)
	}
	if cfg.Engine.RequestTimeout != 3*time.Second {
		t.Errorf("timeout = %s", cfg.Engine.RequestTimeout)
	}
	if cfg.Normalize.ColorStrategy != "split" {
		t.Errorf("color strategy = %q", cfg.Normalize.ColorStrategy)
	}

	timeout = "soon"
	if err := applyCLIOverrides(config.DefaultConfig()); err == nil {
		t.Error("expected error for unparsable timeout")
	}
}

func TestSetupLoggerToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carharvest.log")
	logger, closer, err := setupLogger(&config.LoggingConfig{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatal(err)
	}
	if closer == nil {
		t.Fatal("file output should return a closer")
	}
	logger.Info("hello", "component", "test")
	logger.Debug("hidden")
	_ = closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) || strings.Contains(string(data), "hidden") {
		t.Errorf("unexpected log contents %q", data)
	}
}

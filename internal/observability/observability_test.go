package observability

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestFailureLogRecord(t *testing.T) {
	var buf bytes.Buffer
	fl := NewFailureLog(&buf)

	fl.Record(StageListing, "https://example.com/ad-12345678", errors.New("boom"))
	fl.Record(StageResults, "https://example.com/page2", errors.New("status 500"))

	scanner := bufio.NewScanner(&buf)
	var entries []map[string]any
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("entry is not JSON: %v", err)
		}
		entries = append(entries, entry)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0]["stage"] != StageListing || entries[0]["url"] != "https://example.com/ad-12345678" || entries[0]["error"] != "boom" {
		t.Errorf("unexpected first entry: %v", entries[0])
	}
}

func TestOpenFailureLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scrape.log")

	for i := 0; i < 2; i++ {
		fl, err := OpenFailureLog(path)
		if err != nil {
			t.Fatalf("OpenFailureLog: %v", err)
		}
		fl.Record(StageListing, "https://example.com/ad", errors.New("boom"))
		if err := fl.Close(); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Errorf("expected 2 lines across runs, got %d", n)
	}
}

func TestMetricsRouter(t *testing.T) {
	m := NewMetrics(testLogger)
	m.ListingsStored.Add(3)
	m.LinksDuplicate.Add(1)

	srv := httptest.NewServer(m.Router("/metrics"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	if !strings.Contains(body.String(), "carharvest_listings_stored_total 3") {
		t.Errorf("missing stored counter in:\n%s", body.String())
	}
	if !strings.Contains(body.String(), "carharvest_links_duplicate_total 1") {
		t.Errorf("missing duplicate counter in:\n%s", body.String())
	}

	health, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("expected health 200, got %d", health.StatusCode)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics(testLogger)
	m.RowsExcluded.Add(2)
	if got := m.Snapshot()["rows_excluded"]; got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
}

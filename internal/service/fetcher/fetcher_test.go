package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bulkget/bulkget/internal/domain"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"concurrency too high", func(cfg *Config) { cfg.Concurrency = MaxConcurrency + 1 }},
		{"negative concurrency", func(cfg *Config) { cfg.Concurrency = -1 }},
		{"negative retries", func(cfg *Config) { cfg.Retries = -1 }},
		{"retry wait max below min", func(cfg *Config) {
			cfg.RetryWaitMin = time.Second
			cfg.RetryWaitMax = time.Millisecond
		}},
		{"malformed proxy url", func(cfg *Config) { cfg.ProxyURL = "://not-a-url" }},
		{"proxy url without host", func(cfg *Config) { cfg.ProxyURL = "relative/path" }},
		{"proxy with custom transport", func(cfg *Config) {
			cfg.ProxyURL = "http://proxy:3128"
			cfg.Transport = http.DefaultTransport
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if _, err := New(cfg, nil); err == nil {
				t.Error("New() accepted an invalid configuration")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	f, err := New(nil, nil)
	if err != nil {
		t.Fatalf("New(nil, nil): %v", err)
	}
	if f.cfg.Concurrency != 32 {
		t.Errorf("default concurrency = %d, want 32", f.cfg.Concurrency)
	}
	if !f.cfg.Resume {
		t.Error("resume must default to true")
	}
	if f.cfg.Retries != 0 {
		t.Errorf("default retries = %d, want 0", f.cfg.Retries)
	}
}

func TestDownload_OneSummaryPerInput(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte("data for " + r.URL.Path))
		}
	}))
	defer ts.Close()

	downloads := make([]domain.Download, 0, 5)
	for i := 0; i < 5; i++ {
		downloads = append(downloads, parseDownload(t, fmt.Sprintf("%s/file-%d.bin", ts.URL, i)))
	}

	f := newTestFetcher(t, t.TempDir(), func(cfg *Config) { cfg.Concurrency = 2 })
	summaries := f.Download(t.Context(), downloads)

	if len(summaries) != len(downloads) {
		t.Fatalf("got %d summaries, want %d", len(summaries), len(downloads))
	}

	// Each input descriptor must appear in exactly one summary.
	seen := make(map[string]int)
	for _, summary := range summaries {
		seen[summary.Download.URL.String()]++
		if !summary.Terminal() {
			t.Errorf("summary for %s is not terminal", summary.Download.URL)
		}
	}
	for _, download := range downloads {
		if seen[download.URL.String()] != 1 {
			t.Errorf("descriptor %s appears %d times, want 1", download.URL, seen[download.URL.String()])
		}
	}
}

func TestDownload_RespectsConcurrencyBound(t *testing.T) {
	var inFlight, peak atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			observed := peak.Load()
			if current <= observed || peak.CompareAndSwap(observed, current) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		w.Write([]byte("payload"))
	}))
	defer ts.Close()

	downloads := make([]domain.Download, 0, 6)
	for i := 0; i < 6; i++ {
		downloads = append(downloads, parseDownload(t, fmt.Sprintf("%s/file-%d.bin", ts.URL, i)))
	}

	f := newTestFetcher(t, t.TempDir(), func(cfg *Config) {
		cfg.Concurrency = 2
		cfg.Resume = false
	})
	summaries := f.Download(t.Context(), downloads)

	for _, summary := range summaries {
		if summary.Outcome.Kind() != domain.OutcomeSuccess {
			t.Fatalf("outcome for %s = %v", summary.Download.Filename, summary.Outcome)
		}
	}
	if got := peak.Load(); got > 2 {
		t.Errorf("observed %d concurrent requests, want at most 2", got)
	}
}

func TestDownload_EmptyBatch(t *testing.T) {
	f := newTestFetcher(t, t.TempDir(), nil)
	if summaries := f.Download(t.Context(), nil); len(summaries) != 0 {
		t.Errorf("empty batch produced %d summaries", len(summaries))
	}
}

func TestDownload_CancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer ts.Close()

	downloads := make([]domain.Download, 0, 4)
	for i := 0; i < 4; i++ {
		downloads = append(downloads, parseDownload(t, fmt.Sprintf("%s/file-%d.bin", ts.URL, i)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(t, t.TempDir(), func(cfg *Config) { cfg.Concurrency = 2 })
	summaries := f.Download(ctx, downloads)

	if len(summaries) != len(downloads) {
		t.Fatalf("got %d summaries, want %d", len(summaries), len(downloads))
	}
	for _, summary := range summaries {
		if summary.Outcome.Kind() != domain.OutcomeFail {
			t.Errorf("outcome for %s = %v, want fail after cancellation",
				summary.Download.Filename, summary.Outcome)
		}
	}
}

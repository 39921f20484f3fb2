package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bulkget/bulkget/internal/domain"
	"go.uber.org/zap"
)

// MaxConcurrency is the upper bound on parallel downloads per batch.
const MaxConcurrency = 255

// Config contains fetcher configuration. The zero value of optional fields is
// replaced with defaults by New; out-of-range values are rejected there.
type Config struct {
	// Directory is the destination directory for downloaded files.
	Directory string
	// Retries is the number of times a failed transport call is retried.
	// Zero disables retrying.
	Retries int
	// Concurrency bounds the number of downloads in flight at once.
	Concurrency int
	// Resume enables probing for range support and continuing partial files.
	Resume bool
	// Headers are applied to every outgoing request.
	Headers http.Header
	// ProxyURL routes all requests through an outbound proxy when set.
	ProxyURL string

	// RetryWaitMin and RetryWaitMax bound the exponential backoff between
	// retry attempts.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// BufferSize is the copy buffer used while streaming a response body.
	BufferSize int
	// ProgressInterval throttles per-download progress log lines.
	ProgressInterval time.Duration
	// Transport overrides the base transport the shared client is built on.
	// It must be safe for concurrent use and is never mutated after New.
	Transport http.RoundTripper
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() *Config {
	return &Config{
		Directory:        ".",
		Retries:          0,
		Concurrency:      32,
		Resume:           true,
		RetryWaitMin:     500 * time.Millisecond,
		RetryWaitMax:     15 * time.Second,
		BufferSize:       256 * 1024,
		ProgressInterval: 10 * time.Second,
	}
}

// Validate checks configured bounds.
func (c *Config) Validate() error {
	if c.Concurrency < 1 || c.Concurrency > MaxConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d, got %d", MaxConcurrency, c.Concurrency)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must be non-negative, got %d", c.Retries)
	}
	if c.RetryWaitMax < c.RetryWaitMin {
		return fmt.Errorf("retry wait max (%s) is below retry wait min (%s)", c.RetryWaitMax, c.RetryWaitMin)
	}
	if c.ProxyURL != "" && c.Transport != nil {
		return fmt.Errorf("proxy url and custom transport cannot both be set")
	}
	return nil
}

// Fetcher downloads batches of resources concurrently, resuming partial files
// when the server supports ranged requests. The shared HTTP client and
// configuration are read-only after New; each download owns its own summary.
type Fetcher struct {
	cfg    *Config
	client *http.Client
	logger *zap.Logger
}

// New creates a Fetcher. Construction fails when the configuration is out of
// range or the shared transport client cannot be built from it; no download
// starts in that case.
func New(cfg *Config, logger *zap.Logger) (*Fetcher, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Directory == "" {
		cfg.Directory = "."
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 32
	}
	if cfg.RetryWaitMin == 0 {
		cfg.RetryWaitMin = 500 * time.Millisecond
	}
	if cfg.RetryWaitMax == 0 {
		cfg.RetryWaitMax = 15 * time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256 * 1024
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 10 * time.Second
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fetcher config: %w", err)
	}

	base := cfg.Transport
	if base == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.ProxyURL != "" {
			proxyURL, err := url.Parse(cfg.ProxyURL)
			if err != nil {
				return nil, fmt.Errorf("invalid proxy url %q: %w", cfg.ProxyURL, err)
			}
			if proxyURL.Scheme == "" || proxyURL.Host == "" {
				return nil, fmt.Errorf("invalid proxy url %q: missing scheme or host", cfg.ProxyURL)
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
		base = transport
	}

	client := &http.Client{
		Transport: &retryTransport{
			base:       base,
			maxRetries: cfg.Retries,
			waitMin:    cfg.RetryWaitMin,
			waitMax:    cfg.RetryWaitMax,
			logger:     logger,
		},
	}

	return &Fetcher{cfg: cfg, client: client, logger: logger}, nil
}

// Download fetches the batch and returns exactly one terminal summary per
// submitted download, in no particular order. Per-item failures are captured
// in the corresponding summary and never abort the batch. Cancelling ctx
// fails the remaining items with the context error.
func (f *Fetcher) Download(ctx context.Context, downloads []domain.Download) []*domain.Summary {
	if len(downloads) == 0 {
		return nil
	}

	workers := f.cfg.Concurrency
	if workers > len(downloads) {
		workers = len(downloads)
	}

	jobs := make(chan domain.Download)
	results := make(chan *domain.Summary, len(downloads))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for dl := range jobs {
				results <- f.fetch(ctx, dl)
			}
		}()
	}

	f.logger.Debug("batch started",
		zap.Int("downloads", len(downloads)),
		zap.Int("workers", workers))

dispatch:
	for i, dl := range downloads {
		select {
		case jobs <- dl:
		case <-ctx.Done():
			// Undispatched downloads still need a terminal summary.
			for _, rest := range downloads[i:] {
				summary := domain.NewSummary(rest)
				summary.Fail(fmt.Sprintf("not started: %v", ctx.Err()))
				results <- summary
			}
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	summaries := make([]*domain.Summary, 0, len(downloads))
	for summary := range results {
		summaries = append(summaries, summary)
	}

	f.logger.Debug("batch finished", zap.Int("summaries", len(summaries)))
	return summaries
}

func (f *Fetcher) applyHeaders(req *http.Request) {
	for name, values := range f.cfg.Headers {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
}

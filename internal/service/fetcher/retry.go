package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// retryTransport retries transient failures with exponential backoff. It
// wraps every transport call the fetcher makes, probe and transfer alike.
// Transient means a network-level error or a 5xx response; 4xx responses and
// context cancellation pass through untouched. Once the retry budget is
// exhausted the last error (or last 5xx response) is returned as-is, so the
// caller cannot tell an exhausted retry from an immediate failure.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	waitMin    time.Duration
	waitMax    time.Duration
	logger     *zap.Logger
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := t.base.RoundTrip(req.Clone(req.Context()))
		if err != nil {
			if attempt >= t.maxRetries || !retryable(err) {
				return nil, err
			}
		} else if resp.StatusCode >= http.StatusInternalServerError && attempt < t.maxRetries {
			// Drain so the connection can be reused for the retry.
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		} else {
			return resp, nil
		}

		wait := t.backoff(attempt)
		t.logger.Debug("retrying request",
			zap.String("url", req.URL.String()),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", t.maxRetries),
			zap.Duration("backoff", wait),
			zap.Error(err))
		if waitErr := sleep(req.Context(), wait); waitErr != nil {
			if err != nil {
				return nil, err
			}
			return nil, waitErr
		}
	}
}

// backoff doubles the delay per attempt, bounded by waitMax.
func (t *retryTransport) backoff(attempt int) time.Duration {
	wait := t.waitMin
	for i := 0; i < attempt; i++ {
		wait *= 2
		if wait >= t.waitMax {
			return t.waitMax
		}
	}
	return wait
}

// retryable reports whether a transport error is worth retrying. Everything
// the base transport returns is a network-level failure except cancellation
// of the request's own context.
func retryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package fetcher

import (
	"context"
	"net/http"
	"strconv"

	"github.com/bulkget/bulkget/internal/domain"
)

// probe issues a HEAD request to determine whether the server honors partial
// range requests and how large the resource is. An absent Accept-Ranges
// header, or the explicit value "none", means ranges are not supported; a
// Content-Length header alone is not sufficient. The size is parsed best
// effort and left unset when missing or unparsable. Transport failures
// propagate to the caller and abort the fetch; retrying happens in the shared
// transport layer underneath.
func (f *Fetcher) probe(ctx context.Context, dl domain.Download) (domain.RangeCapability, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, dl.URL.String(), nil)
	if err != nil {
		return domain.RangeCapability{}, err
	}
	f.applyHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.RangeCapability{}, err
	}
	defer resp.Body.Close()

	var capability domain.RangeCapability
	if ranges := resp.Header.Get("Accept-Ranges"); ranges != "" && ranges != "none" {
		capability.Resumable = true
	}
	if raw := resp.Header.Get("Content-Length"); raw != "" {
		if size, err := strconv.ParseInt(raw, 10, 64); err == nil && size >= 0 {
			capability.Size = &size
		}
	}
	return capability, nil
}

package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Download identifies one remote resource and the local filename it is saved
// under. It is immutable once constructed.
type Download struct {
	URL      *url.URL
	Filename string
}

// NewDownload creates a Download with an explicit destination filename.
func NewDownload(u *url.URL, filename string) Download {
	return Download{URL: u, Filename: filename}
}

// ParseDownload builds a Download from a raw URL string. The destination
// filename is derived from the last path segment of the URL, percent-decoded.
func ParseDownload(raw string) (Download, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Download{}, fmt.Errorf("%w %q: %v", ErrInvalidURL, raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return Download{}, fmt.Errorf("%w %q: not an absolute URL", ErrInvalidURL, raw)
	}

	// url.Parse already percent-decodes the path.
	segments := strings.Split(u.Path, "/")
	filename := segments[len(segments)-1]
	if filename == "" {
		return Download{}, fmt.Errorf("%w: %q", ErrNoFilename, raw)
	}

	return Download{URL: u, Filename: filename}, nil
}

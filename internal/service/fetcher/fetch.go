package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bulkget/bulkget/internal/domain"
	"github.com/bulkget/bulkget/internal/util/ratelimiter"
	"go.uber.org/zap"
)

// fetch drives one download end to end and always returns a terminal summary.
// Errors never escape: they are captured as a Fail outcome together with
// whatever partial state (status code, byte count, partial file) existed at
// failure time.
func (f *Fetcher) fetch(ctx context.Context, dl domain.Download) *domain.Summary {
	summary := domain.NewSummary(dl)
	dest := filepath.Join(f.cfg.Directory, dl.Filename)

	var (
		sizeOnDisk int64
		resumable  bool
		totalSize  *int64
	)

	if f.cfg.Resume {
		capability, err := f.probe(ctx, dl)
		if err != nil {
			summary.Fail(fmt.Sprintf("range probe failed: %v", err))
			return summary
		}
		resumable = capability.Resumable
		totalSize = capability.Size

		if resumable {
			info, err := os.Stat(dest)
			switch {
			case err == nil:
				sizeOnDisk = info.Size()
			case !errors.Is(err, fs.ErrNotExist):
				summary.Fail(fmt.Sprintf("stat %s: %v", dest, err))
				return summary
			}
		}
	}

	// The file is complete when the remote size matches what is on disk, or
	// when an existing file accounts for the whole expected total.
	expected := sizeOnDisk
	if totalSize != nil {
		expected += *totalSize
	}
	if (totalSize != nil && *totalSize == sizeOnDisk) || (sizeOnDisk > 0 && expected == sizeOnDisk) {
		summary.Resumed = resumable && sizeOnDisk > 0
		summary.Skip(domain.SkipReasonComplete)
		f.logger.Debug("skipping complete file",
			zap.String("filename", dl.Filename),
			zap.Int64("size", sizeOnDisk))
		return summary
	}

	useRange := resumable && sizeOnDisk > 0

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dl.URL.String(), nil)
	if err != nil {
		summary.Fail(fmt.Sprintf("build request: %v", err))
		return summary
	}
	f.applyHeaders(req)
	if useRange {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", sizeOnDisk))
		f.logger.Debug("resuming download",
			zap.String("filename", dl.Filename),
			zap.Int64("from_byte", sizeOnDisk))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		summary.Fail(fmt.Sprintf("transfer request failed: %v", err))
		return summary
	}
	defer resp.Body.Close()

	summary.StatusCode = resp.StatusCode
	summary.Resumed = useRange
	if resp.StatusCode >= http.StatusBadRequest {
		summary.Fail(fmt.Sprintf("unexpected status %s", resp.Status))
		return summary
	}

	// Sibling downloads may target the same parent directory; MkdirAll is
	// idempotent and safe under that race.
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		summary.Fail(fmt.Sprintf("create directory: %v", err))
		return summary
	}

	flags := os.O_CREATE | os.O_WRONLY
	if useRange {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(dest, flags, 0o644)
	if err != nil {
		summary.Fail(fmt.Sprintf("open %s: %v", dest, err))
		return summary
	}

	summary.Bytes = sizeOnDisk
	if err := f.stream(resp.Body, file, summary); err != nil {
		// Bytes already flushed stay on disk so a later resumable attempt
		// can continue from them.
		file.Close()
		summary.Fail(err.Error())
		return summary
	}
	if err := file.Close(); err != nil {
		summary.Fail(fmt.Sprintf("close %s: %v", dest, err))
		return summary
	}

	summary.Succeed()
	f.logger.Info("download complete",
		zap.String("filename", dl.Filename),
		zap.Int64("bytes", summary.Bytes),
		zap.Bool("resumed", summary.Resumed))
	return summary
}

// stream copies the response body to the destination file chunk by chunk,
// keeping the summary byte count in step with what was actually flushed.
func (f *Fetcher) stream(body io.Reader, file *os.File, summary *domain.Summary) error {
	progress := ratelimiter.New(f.cfg.ProgressInterval)
	buf := make([]byte, f.cfg.BufferSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			written, writeErr := file.Write(buf[:n])
			summary.Bytes += int64(written)
			if writeErr != nil {
				return fmt.Errorf("write %s: %v", file.Name(), writeErr)
			}
			if progress.Allow() {
				f.logger.Debug("download progress",
					zap.String("filename", summary.Download.Filename),
					zap.Int64("bytes", summary.Bytes))
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read response body: %v", readErr)
		}
	}
}

package vmr

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/fortify/retry"
)

// partSuffix marks an in-progress download file. Completed files are
// renamed into place, so a .part file never masquerades as a finished
// download.
const partSuffix = ".part"

// downloader fetches archive files from the repository host, resuming
// partial downloads where the server supports ranged requests.
type downloader struct {
	// httpClient is used for all HTTP requests.
	httpClient HTTPClient

	// logger receives diagnostic messages. May be nil.
	logger Logger

	// retrier retries transient fetch failures with exponential backoff.
	retrier retry.Retry[int64]
}

// newDownloader creates a downloader using the given HTTP client.
func newDownloader(client HTTPClient, logger Logger) *downloader {
	return &downloader{
		httpClient: client,
		logger:     logger,
		retrier: retry.New[int64](retry.Config{
			MaxAttempts:   MaxRetries,
			InitialDelay:  InitialBackoff,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    BackoffMultiplier,
			// Missing files and other client errors won't improve on retry.
			NonRetryableErrors: []error{ErrDownloadFailed},
		}),
	}
}

// fetch downloads url to dest, resuming from a .part file when one exists.
// expectedSize of 0 disables size verification. Returns the final path:
// dest, or the extraction directory when cfg.extract is set and the file is
// a zip archive.
func (d *downloader) fetch(ctx context.Context, url, dest string, expectedSize int64, cfg *downloadConfig) (string, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("%w: creating download directory: %v", ErrDownloadFailed, err)
	}

	part := dest + partSuffix

	// Transient failures restart the attempt from whatever the .part file
	// already holds, so retries never re-download completed bytes.
	written, err := d.retrier.Do(ctx, func(ctx context.Context) (int64, error) {
		return d.fetchAttempt(ctx, url, part, expectedSize, cfg)
	})
	if err != nil {
		return "", err
	}

	if expectedSize > 0 && written != expectedSize {
		os.Remove(part)
		return "", fmt.Errorf("%w: %s: got %d bytes, expected %d", ErrDownloadFailed, filepath.Base(dest), written, expectedSize)
	}

	if err := os.Rename(part, dest); err != nil {
		return "", fmt.Errorf("%w: finalizing %s: %v", ErrDownloadFailed, dest, err)
	}

	if d.logger != nil {
		d.logger.Debug("download complete", "path", dest, "bytes", written)
	}

	if cfg.extract && strings.EqualFold(filepath.Ext(dest), ".zip") {
		extractDir := strings.TrimSuffix(dest, filepath.Ext(dest))
		if err := extractZip(dest, extractDir); err != nil {
			return "", err
		}
		return extractDir, nil
	}

	return dest, nil
}

// fetchAttempt performs one download attempt, appending to the .part file.
// Returns the total size of the .part file on success.
func (d *downloader) fetchAttempt(ctx context.Context, url, part string, expectedSize int64, cfg *downloadConfig) (int64, error) {
	var offset int64
	if fi, err := os.Stat(part); err == nil {
		offset = fi.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: creating request: %v", ErrDownloadFailed, err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching %s: %v: %w", url, err, ErrNetworkError)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Server ignored the range; start over.
		offset = 0
	case http.StatusPartialContent:
		// Resuming from offset.
	case http.StatusRequestedRangeNotSatisfiable:
		// The .part file already holds the complete file.
		return offset, nil
	default:
		if resp.StatusCode >= http.StatusInternalServerError {
			return 0, fmt.Errorf("fetching %s: status %d: %w", url, resp.StatusCode, ErrNetworkError)
		}
		return 0, fmt.Errorf("%w: fetching %s: status %d", ErrDownloadFailed, url, resp.StatusCode)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if offset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	out, err := os.OpenFile(part, flags, 0644)
	if err != nil {
		return 0, fmt.Errorf("%w: opening %s: %v", ErrDownloadFailed, part, err)
	}
	defer out.Close()

	total := expectedSize
	if total == 0 && resp.ContentLength > 0 {
		total = offset + resp.ContentLength
	}

	var w io.Writer = out
	if cfg.progress != nil {
		w = &progressWriter{
			w:        out,
			filename: strings.TrimSuffix(filepath.Base(part), partSuffix),
			received: offset,
			total:    total,
			fn:       cfg.progress,
		}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %v: %w", url, err, ErrNetworkError)
	}

	return offset + n, nil
}

// progressWriter reports cumulative bytes to a progress callback as they
// are written.
type progressWriter struct {
	w        io.Writer
	filename string
	received int64
	total    int64
	fn       func(DownloadProgress)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.received += int64(n)
	p.fn(DownloadProgress{
		Filename:      p.filename,
		BytesReceived: p.received,
		BytesTotal:    p.total,
	})
	return n, err
}

// extractZip unpacks a zip archive into destDir. Entries that would escape
// destDir are rejected.
func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: opening archive %s: %v", ErrDownloadFailed, archivePath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrDownloadFailed, destDir, err)
	}

	for _, f := range r.File {
		target := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("%w: archive entry escapes destination: %s", ErrDownloadFailed, f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("%w: creating %s: %v", ErrDownloadFailed, target, err)
			}
			continue
		}

		if err := extractZipFile(f, target); err != nil {
			return err
		}
	}

	return nil
}

// extractZipFile writes one archive entry to target.
func extractZipFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrDownloadFailed, filepath.Dir(target), err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: reading archive entry %s: %v", ErrDownloadFailed, f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrDownloadFailed, target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("%w: extracting %s: %v", ErrDownloadFailed, f.Name, err)
	}

	return nil
}

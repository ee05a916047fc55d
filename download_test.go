package vmr

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// newFileServer serves named byte blobs with Range support.
func newFileServer(t *testing.T, files map[string][]byte) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}

		if rng := r.Header.Get("Range"); rng != "" {
			offset, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(rng, "bytes="), "-"), 10, 64)
			if err == nil {
				if offset >= int64(len(body)) {
					w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
					return
				}
				w.Header().Set("Content-Range",
					fmt.Sprintf("bytes %d-%d/%d", offset, len(body)-1, len(body)))
				w.WriteHeader(http.StatusPartialContent)
				w.Write(body[offset:])
				return
			}
		}

		w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestDownloaderFetch(t *testing.T) {
	content := []byte("model archive bytes")
	ts := newFileServer(t, map[string][]byte{"/file.zip": content})

	d := newDownloader(http.DefaultClient, nil)
	dest := filepath.Join(t.TempDir(), "file.zip")

	path, err := d.fetch(context.Background(), ts.URL+"/file.zip", dest, int64(len(content)), &downloadConfig{})
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}
	if path != dest {
		t.Errorf("fetch() = %q, want %q", path, dest)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("downloaded content = %q, want %q", got, content)
	}

	// No partial file left behind.
	if _, err := os.Stat(dest + partSuffix); !os.IsNotExist(err) {
		t.Error("part file should not exist after completed download")
	}
}

func TestDownloaderSizeMismatch(t *testing.T) {
	ts := newFileServer(t, map[string][]byte{"/file.zip": []byte("short")})

	d := newDownloader(http.DefaultClient, nil)
	dest := filepath.Join(t.TempDir(), "file.zip")

	_, err := d.fetch(context.Background(), ts.URL+"/file.zip", dest, 9999, &downloadConfig{})
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("fetch() error = %v, want ErrDownloadFailed", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("destination should not exist after size mismatch")
	}
}

func TestDownloaderNotFound(t *testing.T) {
	ts := newFileServer(t, nil)

	d := newDownloader(http.DefaultClient, nil)
	dest := filepath.Join(t.TempDir(), "missing.zip")

	_, err := d.fetch(context.Background(), ts.URL+"/missing.zip", dest, 0, &downloadConfig{})
	if !errors.Is(err, ErrDownloadFailed) {
		t.Errorf("fetch() error = %v, want ErrDownloadFailed", err)
	}
}

func TestDownloaderResume(t *testing.T) {
	content := []byte("0123456789abcdef")
	ts := newFileServer(t, map[string][]byte{"/file.zip": content})

	dir := t.TempDir()
	dest := filepath.Join(dir, "file.zip")

	// Simulate an interrupted earlier attempt.
	if err := os.WriteFile(dest+partSuffix, content[:6], 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var updates []DownloadProgress
	cfg := &downloadConfig{progress: func(p DownloadProgress) { updates = append(updates, p) }}

	d := newDownloader(http.DefaultClient, nil)
	if _, err := d.fetch(context.Background(), ts.URL+"/file.zip", dest, int64(len(content)), cfg); err != nil {
		t.Fatalf("fetch() error = %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("resumed content = %q, want %q", got, content)
	}

	if len(updates) == 0 {
		t.Fatal("no progress updates received")
	}
	first := updates[0]
	if first.BytesReceived <= 6 {
		t.Errorf("first progress update BytesReceived = %d, want > 6 (resumed offset counted)", first.BytesReceived)
	}
	last := updates[len(updates)-1]
	if last.BytesReceived != int64(len(content)) {
		t.Errorf("final BytesReceived = %d, want %d", last.BytesReceived, len(content))
	}
}

func TestDownloaderCompletePartFile(t *testing.T) {
	content := []byte("whole file")
	ts := newFileServer(t, map[string][]byte{"/file.zip": content})

	dir := t.TempDir()
	dest := filepath.Join(dir, "file.zip")

	// The previous attempt finished writing but crashed before the rename.
	if err := os.WriteFile(dest+partSuffix, content, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	d := newDownloader(http.DefaultClient, nil)
	if _, err := d.fetch(context.Background(), ts.URL+"/file.zip", dest, int64(len(content)), &downloadConfig{}); err != nil {
		t.Fatalf("fetch() error = %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("content = %q, want %q", got, content)
	}
}

func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip Create() error = %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip Write() error = %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close() error = %v", err)
	}
	return buf.Bytes()
}

func TestDownloaderExtract(t *testing.T) {
	archive := makeZip(t, map[string]string{
		"Models/0001.vtp":      "surface mesh",
		"Paths/aorta.pth":      "path data",
		"Simulations/job.json": "{}",
	})
	ts := newFileServer(t, map[string][]byte{"/0001.zip": archive})

	dir := t.TempDir()
	dest := filepath.Join(dir, "0001.zip")

	d := newDownloader(http.DefaultClient, nil)
	path, err := d.fetch(context.Background(), ts.URL+"/0001.zip", dest, int64(len(archive)), &downloadConfig{extract: true})
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}

	wantDir := filepath.Join(dir, "0001")
	if path != wantDir {
		t.Errorf("fetch() = %q, want extraction dir %q", path, wantDir)
	}

	got, err := os.ReadFile(filepath.Join(wantDir, "Models", "0001.vtp"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "surface mesh" {
		t.Errorf("extracted content = %q", got)
	}
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("../escape.txt")
	if err != nil {
		t.Fatalf("zip Create() error = %v", err)
	}
	w.Write([]byte("bad"))
	zw.Close()

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.zip")
	if err := os.WriteFile(archivePath, buf.Bytes(), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := extractZip(archivePath, filepath.Join(dir, "out")); !errors.Is(err, ErrDownloadFailed) {
		t.Errorf("extractZip() error = %v, want ErrDownloadFailed", err)
	}
}

package vmr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestListModelsFetchesCatalogOnce(t *testing.T) {
	ts := newTestCatalogServer(t, nil)
	cli := newTestClient(t, ts.URL)
	ctx := context.Background()

	models, err := cli.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 4 {
		t.Fatalf("ListModels() returned %d models, want 4", len(models))
	}

	after := ts.requests.Load()
	if after == 0 {
		t.Fatal("no requests reached the server")
	}

	// Subsequent reads serve the in-memory snapshot without touching the
	// network.
	again, err := cli.ListModels(ctx)
	if err != nil {
		t.Fatalf("second ListModels() error = %v", err)
	}
	if ts.requests.Load() != after {
		t.Errorf("second load made %d extra requests, want 0", ts.requests.Load()-after)
	}
	if len(again) != len(models) {
		t.Errorf("second load returned %d models, want %d", len(again), len(models))
	}
	for i := range models {
		if again[i].Name != models[i].Name {
			t.Errorf("second load differs at %d: %q vs %q", i, again[i].Name, models[i].Name)
		}
	}
}

func TestSecondClientUsesDiskCache(t *testing.T) {
	ts := newTestCatalogServer(t, nil)
	cacheDir := t.TempDir()
	ctx := context.Background()

	cli1, err := NewClient(Config{BaseURL: ts.URL, CacheDir: cacheDir})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := cli1.ListModels(ctx); err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}

	after := ts.requests.Load()

	cli2, err := NewClient(Config{BaseURL: ts.URL, CacheDir: cacheDir})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	models, err := cli2.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}

	if ts.requests.Load() != after {
		t.Errorf("second client made %d extra requests, want 0", ts.requests.Load()-after)
	}
	if len(models) != 4 {
		t.Errorf("second client returned %d models, want 4", len(models))
	}
}

func TestLoadNoCacheNoNetwork(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)

	cli, err := NewClient(Config{BaseURL: ts.URL, CacheDir: t.TempDir()},
		WithHTTPClient(&http.Client{Timeout: time.Second}))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = cli.ListModels(context.Background())
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Errorf("ListModels() error = %v, want ErrCatalogUnavailable", err)
	}
}

func TestRefreshReplacesCache(t *testing.T) {
	ts := newTestCatalogServer(t, nil)
	cli := newTestClient(t, ts.URL)
	ctx := context.Background()

	if _, err := cli.ListModels(ctx); err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	before := ts.requests.Load()

	snap, err := cli.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if snap.Stale {
		t.Error("Refresh() returned stale snapshot from a healthy server")
	}
	if len(snap.Models) != 4 {
		t.Errorf("Refresh() snapshot has %d models, want 4", len(snap.Models))
	}
	if ts.requests.Load() == before {
		t.Error("Refresh() made no requests; expected a forced fetch")
	}
}

func TestRefreshFailureServesStaleSnapshot(t *testing.T) {
	ts := newTestCatalogServer(t, nil)
	cli := newTestClient(t, ts.URL)
	ctx := context.Background()

	first, err := cli.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}

	ts.Close()

	snap, err := cli.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh() error = %v, want stale fallback", err)
	}
	if !snap.Stale {
		t.Error("Refresh() after server loss should flag the snapshot stale")
	}
	if len(snap.Models) != len(first) {
		t.Errorf("stale snapshot has %d models, want %d", len(snap.Models), len(first))
	}

	// Reads keep working from the retained snapshot.
	models, err := cli.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels() after failed refresh error = %v", err)
	}
	if len(models) != len(first) {
		t.Errorf("ListModels() = %d models, want %d", len(models), len(first))
	}
}

func TestLoadMissingOptionalResources(t *testing.T) {
	ts := newTestCatalogServer(t, map[string]*string{
		abbreviationsCSVPath: nil,
		additionalCSVPath:    nil,
	})
	cli := newTestClient(t, ts.URL)
	ctx := context.Background()

	models, err := cli.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 4 {
		t.Errorf("ListModels() returned %d models, want 4", len(models))
	}

	datasets, err := cli.Datasets(ctx)
	if err != nil {
		t.Fatalf("Datasets() error = %v", err)
	}
	if len(datasets) != 0 {
		t.Errorf("Datasets() = %+v, want empty", datasets)
	}
}

func TestLoadMissingRequiredResource(t *testing.T) {
	ts := newTestCatalogServer(t, map[string]*string{
		projectsCSVPath: nil,
	})
	cli := newTestClient(t, ts.URL)

	_, err := cli.ListModels(context.Background())
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Errorf("ListModels() error = %v, want ErrCatalogUnavailable", err)
	}
}

func TestCacheInfo(t *testing.T) {
	ts := newTestCatalogServer(t, nil)
	cacheDir := t.TempDir()
	ctx := context.Background()

	cli, err := NewClient(Config{BaseURL: ts.URL, CacheDir: cacheDir, CacheTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	status, err := cli.CacheInfo(ctx)
	if err != nil {
		t.Fatalf("CacheInfo() error = %v", err)
	}
	if status.Exists {
		t.Error("CacheInfo() reports a cache before any fetch")
	}
	if status.TTL != time.Hour {
		t.Errorf("TTL = %v, want 1h", status.TTL)
	}

	if _, err := cli.ListModels(ctx); err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}

	status, err = cli.CacheInfo(ctx)
	if err != nil {
		t.Fatalf("CacheInfo() error = %v", err)
	}
	if !status.Exists {
		t.Fatal("CacheInfo() reports no cache after fetch")
	}
	if status.Stale {
		t.Error("fresh cache reported stale")
	}
	if status.SizeBytes == 0 {
		t.Error("SizeBytes = 0 for existing cache file")
	}
	if status.FetchedAt.IsZero() {
		t.Error("FetchedAt is zero for existing cache")
	}
}

func TestCacheInfoStale(t *testing.T) {
	ts := newTestCatalogServer(t, nil)
	cacheDir := t.TempDir()
	ctx := context.Background()

	// TTL shorter than the snapshot's age makes it stale immediately.
	cli, err := NewClient(Config{BaseURL: ts.URL, CacheDir: cacheDir, CacheTTL: time.Nanosecond})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := cli.ListModels(ctx); err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}

	status, err := cli.CacheInfo(ctx)
	if err != nil {
		t.Fatalf("CacheInfo() error = %v", err)
	}
	if !status.Stale {
		t.Error("CacheInfo() should report stale for an expired TTL")
	}

	// Staleness never triggers a refetch on read.
	before := ts.requests.Load()
	if _, err := cli.ListModels(ctx); err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if ts.requests.Load() != before {
		t.Error("stale cache triggered an implicit refetch")
	}
}

func TestRetryOnServerError(t *testing.T) {
	var fails int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == projectsCSVPath && fails < 2 {
			fails++
			http.Error(w, "transient", http.StatusInternalServerError)
			return
		}
		switch r.URL.Path {
		case projectsCSVPath:
			w.Write([]byte(testProjectsCSV))
		case resultsCSVPath:
			w.Write([]byte(testResultsCSV))
		case fileSizesCSVPath:
			w.Write([]byte(testFileSizesCSV))
		default:
			http.NotFound(w, r)
		}
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	cli := newTestClient(t, ts.URL)

	models, err := cli.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v after transient failures", err)
	}
	if len(models) != 4 {
		t.Errorf("ListModels() returned %d models, want 4", len(models))
	}
	if fails != 2 {
		t.Errorf("server saw %d failed attempts, want 2", fails)
	}
}

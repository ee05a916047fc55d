package vmr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/fortify/retry"
)

// rawCatalog holds the unparsed CSV resources that make up one catalog
// snapshot.
type rawCatalog struct {
	projects      []byte
	results       []byte
	fileSizes     []byte
	abbreviations []byte
	additional    []byte
}

// fetchResult is the outcome of one completed HTTP exchange. Transport
// failures and server errors are surfaced as retryable errors instead;
// client errors (4xx) complete the exchange and are mapped by the caller.
type fetchResult struct {
	status int
	body   []byte
}

// remoteClient fetches catalog resources from the repository host.
type remoteClient struct {
	// baseURL is the repository base URL, without trailing slash.
	baseURL string

	// httpClient is used for all HTTP requests.
	httpClient HTTPClient

	// logger receives diagnostic messages. May be nil.
	logger Logger

	// retrier retries transient fetch failures with exponential backoff.
	retrier retry.Retry[fetchResult]
}

// newRemoteClient creates a client for the given repository base URL.
func newRemoteClient(baseURL string, client HTTPClient, logger Logger) *remoteClient {
	return &remoteClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     logger,
		retrier: retry.New[fetchResult](retry.Config{
			MaxAttempts:   MaxRetries,
			InitialDelay:  InitialBackoff,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    BackoffMultiplier,
		}),
	}
}

// get fetches a URL with retries and returns the completed exchange.
// Network failures and 5xx responses are retried; any other response is
// returned as-is for the caller to interpret.
func (r *remoteClient) get(ctx context.Context, url string) (fetchResult, error) {
	return r.retrier.Do(ctx, func(ctx context.Context) (fetchResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fetchResult{}, fmt.Errorf("creating request: %v: %w", err, ErrNetworkError)
		}

		resp, err := r.httpClient.Do(req)
		if err != nil {
			if r.logger != nil {
				r.logger.Debug("fetch attempt failed", "url", url, "error", err)
			}
			return fetchResult{}, fmt.Errorf("fetching %s: %v: %w", url, err, ErrNetworkError)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fetchResult{}, fmt.Errorf("fetching %s: status %d: %w", url, resp.StatusCode, ErrNetworkError)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fetchResult{}, fmt.Errorf("reading %s: %v: %w", url, err, ErrNetworkError)
		}

		return fetchResult{status: resp.StatusCode, body: body}, nil
	})
}

// fetchResource fetches one CSV resource by path.
func (r *remoteClient) fetchResource(ctx context.Context, path string) ([]byte, error) {
	url := joinURL(r.baseURL, path)

	res, err := r.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if res.status != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d: %w", url, res.status, ErrNetworkError)
	}
	return res.body, nil
}

// fetchCatalog fetches all catalog resources. The abbreviations and
// additional-data resources are optional: a missing file degrades those
// sections to empty rather than failing the whole snapshot.
func (r *remoteClient) fetchCatalog(ctx context.Context) (*rawCatalog, error) {
	raw := &rawCatalog{}

	var err error
	if raw.projects, err = r.fetchResource(ctx, projectsCSVPath); err != nil {
		return nil, err
	}
	if raw.results, err = r.fetchResource(ctx, resultsCSVPath); err != nil {
		return nil, err
	}
	if raw.fileSizes, err = r.fetchResource(ctx, fileSizesCSVPath); err != nil {
		return nil, err
	}

	if raw.abbreviations, err = r.fetchResource(ctx, abbreviationsCSVPath); err != nil {
		if r.logger != nil {
			r.logger.Warn("abbreviations resource unavailable", "error", err)
		}
		raw.abbreviations = nil
	}
	if raw.additional, err = r.fetchResource(ctx, additionalCSVPath); err != nil {
		if r.logger != nil {
			r.logger.Warn("additional data resource unavailable", "error", err)
		}
		raw.additional = nil
	}

	return raw, nil
}

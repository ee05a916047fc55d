package vmr

import "errors"

// Sentinel errors for repository operations.
// Use errors.Is() to check for specific error conditions.
var (
	// ErrCatalogUnavailable indicates the remote catalog could not be
	// fetched and no usable cached snapshot exists.
	ErrCatalogUnavailable = errors.New("vmr: catalog unavailable")

	// ErrModelNotFound indicates the named model does not exist in the catalog.
	ErrModelNotFound = errors.New("vmr: model not found")

	// ErrSimulationNotFound indicates the model has no simulation result
	// with the given filename.
	ErrSimulationNotFound = errors.New("vmr: simulation not found")

	// ErrDatasetNotFound indicates the named additional dataset does not
	// exist in the catalog.
	ErrDatasetNotFound = errors.New("vmr: dataset not found")

	// ErrInvalidFilter indicates a semantically malformed filter combination,
	// such as AgeMin greater than AgeMax.
	ErrInvalidFilter = errors.New("vmr: invalid filter")

	// ErrDownloadFailed indicates a file download failed after all retries,
	// or the downloaded size did not match the expected size.
	ErrDownloadFailed = errors.New("vmr: download failed")

	// ErrNetworkError indicates a network or connection failure.
	ErrNetworkError = errors.New("vmr: network error")

	// ErrCacheError indicates a local cache read or write failed.
	// Non-fatal for read operations, which fall back to the remote source.
	ErrCacheError = errors.New("vmr: cache error")
)

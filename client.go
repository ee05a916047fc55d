package vmr

import (
	"context"
)

// Client provides programmatic access to the Vascular Model Repository.
// All methods are safe for concurrent use.
// For CLI integration, use NewCommand instead.
type Client interface {
	// ListModels returns every model in the catalog, in catalog order.
	ListModels(ctx context.Context) ([]Model, error)

	// Search returns the models satisfying the filter, in catalog order.
	// Returns ErrInvalidFilter if the filter is malformed.
	Search(ctx context.Context, filter FilterSet) ([]Model, error)

	// GetModel returns the model with the given name.
	// Returns ErrModelNotFound if the name is absent from the catalog.
	GetModel(ctx context.Context, name string) (Model, error)

	// Simulations returns all simulation results belonging to the named
	// model. Returns ErrModelNotFound if the model does not exist; a model
	// without simulations yields an empty slice and no error.
	Simulations(ctx context.Context, modelName string) ([]SimulationResult, error)

	// ListSimulations returns the simulation results satisfying the filter,
	// in catalog order.
	ListSimulations(ctx context.Context, filter SimulationFilter) ([]SimulationResult, error)

	// Datasets returns the additional datasets hosted alongside the catalog.
	Datasets(ctx context.Context) ([]AdditionalDataset, error)

	// Abbreviations returns the catalog's code-to-long-form mappings.
	Abbreviations(ctx context.Context) ([]Abbreviation, error)

	// Download fetches a model's archive into destDir and returns the path
	// of the downloaded file, or of the extraction directory when
	// WithExtract is given. Returns ErrModelNotFound if the model does not
	// exist and ErrDownloadFailed if the transfer cannot complete.
	Download(ctx context.Context, name, destDir string, opts ...DownloadOption) (string, error)

	// DownloadSimulation fetches one simulation result archive into destDir.
	// Returns ErrSimulationNotFound if the model has no simulation with the
	// given filename.
	DownloadSimulation(ctx context.Context, modelName, filename, destDir string, opts ...DownloadOption) (string, error)

	// DownloadSimulations fetches all of a model's simulation archives into
	// destDir. Individual failures are recorded per item and never abort
	// the remaining downloads. Returns ErrModelNotFound if the model does
	// not exist.
	DownloadSimulations(ctx context.Context, modelName, destDir string, opts ...DownloadOption) (BatchReport, error)

	// DownloadBatch fetches the archives of the named models into destDir.
	// Download options apply to each model as in Download. Unknown names
	// and failed transfers are recorded per item; the batch itself only
	// errs on setup failures such as an unreachable catalog.
	DownloadBatch(ctx context.Context, names []string, destDir string, opts ...DownloadOption) (BatchReport, error)

	// DownloadDataset fetches an additional dataset archive into destDir.
	// Returns ErrDatasetNotFound if the dataset does not exist.
	DownloadDataset(ctx context.Context, name, destDir string, opts ...DownloadOption) (string, error)

	// Refresh fetches a new catalog snapshot, replacing the cache. If the
	// fetch fails but an older snapshot exists, that snapshot is returned
	// with its Stale flag set. Returns ErrCatalogUnavailable only when no
	// snapshot can be produced at all.
	Refresh(ctx context.Context) (*Snapshot, error)

	// CacheInfo reports the state of the local catalog cache without
	// fetching anything.
	CacheInfo(ctx context.Context) (CacheStatus, error)

	// ClearCache removes the cached catalog snapshot. The next catalog
	// access fetches from the repository.
	ClearCache(ctx context.Context) error

	// Summary computes aggregate statistics over the models satisfying the
	// filter. A zero FilterSet summarizes the whole catalog.
	Summary(ctx context.Context, filter FilterSet) (Summary, error)
}

// client is the concrete implementation of the Client interface.
type client struct {
	// cfg holds the resolved configuration.
	cfg Config

	// logger receives diagnostic messages. May be nil.
	logger Logger

	// catalog coordinates snapshot loading, caching, and refresh.
	catalog *catalog

	// downloader fetches archive files.
	downloader *downloader
}

// Ensure client implements Client interface.
var _ Client = (*client)(nil)

// NewClient creates a new Client with the given configuration.
// Zero-value fields fall back to defaults; an unwritable cache location is
// the only construction failure.
func NewClient(cfg Config, opts ...ClientOption) (Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	ccfg := newClientConfig()
	for _, opt := range opts {
		opt(ccfg)
	}

	storage, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	remote := newRemoteClient(cfg.BaseURL, ccfg.httpClient, ccfg.logger)

	return &client{
		cfg:        cfg,
		logger:     ccfg.logger,
		catalog:    newCatalog(storage, remote, ccfg.logger, cfg.CacheTTL),
		downloader: newDownloader(ccfg.httpClient, ccfg.logger),
	}, nil
}

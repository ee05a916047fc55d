package vmr

import (
	"context"
	"path/filepath"
)

// simulationsDirSuffix names the directory that receives a model's
// simulation archives when WithSimulations is given.
const simulationsDirSuffix = "_simulations"

// ListModels returns every model in the catalog, in catalog order.
func (c *client) ListModels(ctx context.Context) ([]Model, error) {
	snap, err := c.catalog.load(ctx, false)
	if err != nil {
		return nil, err
	}
	return snap.Models, nil
}

// Search returns the models satisfying the filter, in catalog order.
func (c *client) Search(ctx context.Context, filter FilterSet) ([]Model, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	snap, err := c.catalog.load(ctx, false)
	if err != nil {
		return nil, err
	}
	return snap.Query(filter)
}

// GetModel returns the model with the given name.
func (c *client) GetModel(ctx context.Context, name string) (Model, error) {
	snap, err := c.catalog.load(ctx, false)
	if err != nil {
		return Model{}, err
	}
	return snap.Model(name)
}

// Simulations returns all simulation results belonging to the named model.
func (c *client) Simulations(ctx context.Context, modelName string) ([]SimulationResult, error) {
	snap, err := c.catalog.load(ctx, false)
	if err != nil {
		return nil, err
	}
	if _, err := snap.Model(modelName); err != nil {
		return nil, err
	}
	return snap.SimulationsFor(modelName), nil
}

// ListSimulations returns the simulation results satisfying the filter.
func (c *client) ListSimulations(ctx context.Context, filter SimulationFilter) ([]SimulationResult, error) {
	snap, err := c.catalog.load(ctx, false)
	if err != nil {
		return nil, err
	}
	return snap.QuerySimulations(filter), nil
}

// Datasets returns the additional datasets hosted alongside the catalog.
func (c *client) Datasets(ctx context.Context) ([]AdditionalDataset, error) {
	snap, err := c.catalog.load(ctx, false)
	if err != nil {
		return nil, err
	}
	return snap.Datasets, nil
}

// Abbreviations returns the catalog's code-to-long-form mappings.
func (c *client) Abbreviations(ctx context.Context) ([]Abbreviation, error) {
	snap, err := c.catalog.load(ctx, false)
	if err != nil {
		return nil, err
	}
	return snap.Abbreviations, nil
}

// Download fetches a model's archive into destDir.
func (c *client) Download(ctx context.Context, name, destDir string, opts ...DownloadOption) (string, error) {
	cfg := newDownloadConfig(opts)

	snap, err := c.catalog.load(ctx, false)
	if err != nil {
		return "", err
	}
	m, err := snap.Model(name)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(destDir, name+".zip")
	url := modelArchiveURL(c.cfg.BaseURL, name)

	path, err := c.downloader.fetch(ctx, url, dest, m.FileSize, cfg)
	if err != nil {
		return "", err
	}

	c.downloadCompanions(ctx, snap, name, destDir, cfg)

	return path, nil
}

// downloadCompanions fetches a model's optional companion artifacts per the
// download options. Companion downloads are best-effort; the model archive
// is already in place, so their failures only warn.
func (c *client) downloadCompanions(ctx context.Context, snap *Snapshot, name, destDir string, cfg *downloadConfig) {
	if cfg.simulations {
		simDir := filepath.Join(destDir, name+simulationsDirSuffix)
		report := c.downloadSimulations(ctx, snap, name, simDir, cfg)
		for _, item := range report.Items {
			if item.Err != nil && c.logger != nil {
				c.logger.Warn("simulation download failed", "model", name, "file", item.Name, "error", item.Err)
			}
		}
	}
	if cfg.pdf {
		pdfDest := filepath.Join(destDir, name+".pdf")
		pdfCfg := &downloadConfig{progress: cfg.progress}
		if _, err := c.downloader.fetch(ctx, modelPDFURL(c.cfg.BaseURL, name), pdfDest, 0, pdfCfg); err != nil {
			if c.logger != nil {
				c.logger.Warn("pdf download failed", "model", name, "error", err)
			}
		}
	}
}

// DownloadSimulation fetches one simulation result archive into destDir.
func (c *client) DownloadSimulation(ctx context.Context, modelName, filename, destDir string, opts ...DownloadOption) (string, error) {
	cfg := newDownloadConfig(opts)

	snap, err := c.catalog.load(ctx, false)
	if err != nil {
		return "", err
	}
	if _, err := snap.Model(modelName); err != nil {
		return "", err
	}

	for _, sim := range snap.SimulationsFor(modelName) {
		if sim.FullFilename == filename {
			dest := filepath.Join(destDir, filename)
			url := simulationURL(c.cfg.BaseURL, modelName, filename)
			return c.downloader.fetch(ctx, url, dest, sim.FileSize, cfg)
		}
	}

	return "", ErrSimulationNotFound
}

// DownloadSimulations fetches all of a model's simulation archives into
// destDir.
func (c *client) DownloadSimulations(ctx context.Context, modelName, destDir string, opts ...DownloadOption) (BatchReport, error) {
	cfg := newDownloadConfig(opts)

	snap, err := c.catalog.load(ctx, false)
	if err != nil {
		return BatchReport{}, err
	}
	if _, err := snap.Model(modelName); err != nil {
		return BatchReport{}, err
	}

	return c.downloadSimulations(ctx, snap, modelName, destDir, cfg), nil
}

// downloadSimulations fetches each simulation archive of a model, recording
// per-item outcomes.
func (c *client) downloadSimulations(ctx context.Context, snap *Snapshot, modelName, destDir string, cfg *downloadConfig) BatchReport {
	var report BatchReport
	for _, sim := range snap.SimulationsFor(modelName) {
		item := BatchItem{Name: sim.FullFilename}
		dest := filepath.Join(destDir, sim.FullFilename)
		url := simulationURL(c.cfg.BaseURL, modelName, sim.FullFilename)

		path, err := c.downloader.fetch(ctx, url, dest, sim.FileSize, cfg)
		if err != nil {
			item.Err = err
		} else {
			item.Path = path
		}
		report.Items = append(report.Items, item)
	}
	return report
}

// DownloadBatch fetches the archives of the named models into destDir.
func (c *client) DownloadBatch(ctx context.Context, names []string, destDir string, opts ...DownloadOption) (BatchReport, error) {
	cfg := newDownloadConfig(opts)

	snap, err := c.catalog.load(ctx, false)
	if err != nil {
		return BatchReport{}, err
	}

	var report BatchReport
	for _, name := range names {
		item := BatchItem{Name: name}

		m, err := snap.Model(name)
		if err != nil {
			item.Err = err
			report.Items = append(report.Items, item)
			continue
		}

		dest := filepath.Join(destDir, name+".zip")
		url := modelArchiveURL(c.cfg.BaseURL, name)

		path, err := c.downloader.fetch(ctx, url, dest, m.FileSize, cfg)
		if err != nil {
			item.Err = err
		} else {
			item.Path = path
			c.downloadCompanions(ctx, snap, name, destDir, cfg)
		}
		report.Items = append(report.Items, item)
	}

	return report, nil
}

// DownloadDataset fetches an additional dataset archive into destDir.
func (c *client) DownloadDataset(ctx context.Context, name, destDir string, opts ...DownloadOption) (string, error) {
	cfg := newDownloadConfig(opts)

	snap, err := c.catalog.load(ctx, false)
	if err != nil {
		return "", err
	}

	for _, d := range snap.Datasets {
		if d.Name == name {
			dest := filepath.Join(destDir, name+".zip")
			url := datasetURL(c.cfg.BaseURL, name)
			return c.downloader.fetch(ctx, url, dest, d.FileSize, cfg)
		}
	}

	return "", ErrDatasetNotFound
}

// Refresh unconditionally fetches a new catalog snapshot.
func (c *client) Refresh(ctx context.Context) (*Snapshot, error) {
	return c.catalog.load(ctx, true)
}

// CacheInfo reports the state of the local catalog cache.
func (c *client) CacheInfo(ctx context.Context) (CacheStatus, error) {
	return c.catalog.cacheInfo()
}

// ClearCache removes the cached catalog snapshot.
func (c *client) ClearCache(ctx context.Context) error {
	return c.catalog.clearCache()
}

// Summary computes aggregate statistics over the models satisfying the
// filter.
func (c *client) Summary(ctx context.Context, filter FilterSet) (Summary, error) {
	models, err := c.Search(ctx, filter)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(models), nil
}

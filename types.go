package vmr

import (
	"strings"
	"time"
)

// Config configures the client. It can be loaded from a YAML file with
// LoadConfig.
type Config struct {
	// BaseURL is the base URL of the repository.
	// If empty, DefaultBaseURL is used.
	BaseURL string

	// CacheDir overrides the default catalog cache directory.
	// If empty, a platform-appropriate default is used.
	// Can also be set via the VMR_CACHE_DIR environment variable.
	CacheDir string

	// CacheTTL is the age past which a cached catalog snapshot is reported
	// as stale. Stale snapshots are still served; they are never refreshed
	// implicitly. If zero, DefaultCacheTTL is used.
	CacheTTL time.Duration
}

// Model represents one vascular model in the catalog.
type Model struct {
	// Name is the unique model identifier, e.g. "0001_H_AO_SVD".
	// It is stable across catalog snapshots and keys all downloads.
	Name string `json:"name"`

	// LegacyName is the identifier under the previous naming convention.
	LegacyName string `json:"legacy_name,omitempty"`

	// ImageNumber is the image reference number.
	ImageNumber string `json:"image_number,omitempty"`

	// Sex is the patient sex (Male/Female), empty if unknown.
	Sex string `json:"sex,omitempty"`

	// Age is the patient age in years, nil if unknown.
	Age *float64 `json:"age,omitempty"`

	// Species is Human or Animal.
	Species string `json:"species,omitempty"`

	// Ethnicity is the patient ethnicity, if recorded.
	Ethnicity string `json:"ethnicity,omitempty"`

	// Animal is the animal type when Species is Animal.
	Animal string `json:"animal,omitempty"`

	// Anatomy is the anatomical region, e.g. Aorta or Coronary.
	Anatomy string `json:"anatomy,omitempty"`

	// Disease is the disease or condition label, e.g. "Healthy".
	Disease string `json:"disease,omitempty"`

	// Procedure is the medical procedure, if any.
	Procedure string `json:"procedure,omitempty"`

	HasImages        bool `json:"has_images,omitempty"`
	HasPaths         bool `json:"has_paths,omitempty"`
	HasSegmentations bool `json:"has_segmentations,omitempty"`
	HasModels        bool `json:"has_models,omitempty"`
	HasMeshes        bool `json:"has_meshes,omitempty"`

	// HasSimulations reports whether simulation result archives exist for
	// this model.
	HasSimulations bool `json:"has_simulations,omitempty"`

	// HasResults reports whether processed results are available.
	HasResults bool `json:"has_results,omitempty"`

	Notes    string `json:"notes,omitempty"`
	DOI      string `json:"doi,omitempty"`
	Citation string `json:"citation,omitempty"`

	ImageManufacturer string `json:"image_manufacturer,omitempty"`
	ImageType         string `json:"image_type,omitempty"`
	ImageSource       string `json:"image_source,omitempty"`
	ImageModality     string `json:"image_modality,omitempty"`

	// DateAdded is when the model entered the repository, nil if unknown.
	DateAdded *time.Time `json:"date_added,omitempty"`

	// OrderUploaded is the upload order number, nil if unknown.
	OrderUploaded *int `json:"order_uploaded,omitempty"`

	// ModelCreator is the creator of the model.
	ModelCreator string `json:"model_creator,omitempty"`

	// FileSize is the size in bytes of the model archive, 0 if unknown.
	FileSize int64 `json:"file_size,omitempty"`
}

// DownloadURL returns the archive URL for this model on the public
// repository host. Clients with a custom BaseURL build URLs themselves.
func (m Model) DownloadURL() string {
	return modelArchiveURL(DefaultBaseURL, m.Name)
}

// PDFURL returns the URL of the model's PDF documentation.
func (m Model) PDFURL() string {
	return modelPDFURL(DefaultBaseURL, m.Name)
}

// ImageURL returns the URL of the model's preview image.
func (m Model) ImageURL() string {
	return modelImageURL(DefaultBaseURL, m.Name)
}

// String returns "name | anatomy | disease | species", skipping empty parts.
func (m Model) String() string {
	parts := []string{m.Name}
	for _, p := range []string{m.Anatomy, m.Disease, m.Species} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " | ")
}

// SimulationResult represents one downloadable simulation result archive
// belonging to a model. Simulations have no independent existence: when the
// owning model is absent from the catalog, its simulations are unreachable.
type SimulationResult struct {
	// ModelName is the name of the owning model.
	ModelName string `json:"model_name"`

	// FullFilename is the archive filename, used as the download key.
	FullFilename string `json:"full_filename"`

	// ImageNumber is the owning model's image reference number.
	ImageNumber string `json:"image_number,omitempty"`

	// ShortName is a short display name for the simulation.
	ShortName string `json:"short_name,omitempty"`

	// LegacyName is the filename under the previous naming convention.
	LegacyName string `json:"legacy_name,omitempty"`

	// Fidelity describes the simulation fidelity, e.g. "3D".
	Fidelity string `json:"fidelity,omitempty"`

	// Method is the simulation method, e.g. "RIGID" or "FSI".
	Method string `json:"method,omitempty"`

	// Condition describes the simulated conditions.
	Condition string `json:"condition,omitempty"`

	// ResultsType is the type of results contained in the archive.
	ResultsType string `json:"results_type,omitempty"`

	// FileType is the result file format, e.g. "VTP" or "VTU".
	FileType string `json:"file_type,omitempty"`

	// Creator is the simulation creator.
	Creator string `json:"creator,omitempty"`

	Notes string `json:"notes,omitempty"`

	// FileSize is the archive size in bytes, 0 if unknown.
	FileSize int64 `json:"file_size,omitempty"`
}

// DownloadURL returns the archive URL for this simulation result on the
// public repository host.
func (s SimulationResult) DownloadURL() string {
	return simulationURL(DefaultBaseURL, s.ModelName, s.FullFilename)
}

// String returns "model/short-name", falling back to the full filename.
func (s SimulationResult) String() string {
	name := s.ShortName
	if name == "" {
		name = s.FullFilename
	}
	return s.ModelName + "/" + name
}

// AdditionalDataset represents a supplementary dataset hosted alongside the
// model catalog.
type AdditionalDataset struct {
	// Name is the dataset identifier.
	Name string `json:"name"`

	Notes    string `json:"notes,omitempty"`
	Citation string `json:"citation,omitempty"`

	// FileSize is the archive size in bytes, 0 if unknown.
	FileSize int64 `json:"file_size,omitempty"`
}

// DownloadURL returns the archive URL for this dataset on the public
// repository host.
func (d AdditionalDataset) DownloadURL() string {
	return datasetURL(DefaultBaseURL, d.Name)
}

// Abbreviation maps a catalog code to its long form, e.g. "COA" to
// "Coarctation of Aorta".
type Abbreviation struct {
	// Category is the code category: Species, Anatomy, Disease, etc.
	Category string `json:"category"`

	// ShortName is the abbreviated code.
	ShortName string `json:"short_name"`

	// LongName is the expanded name.
	LongName string `json:"long_name"`
}

// Snapshot is an immutable copy of the full catalog at a point in time.
// Snapshots are replaced wholesale on refresh, never mutated in place, so
// concurrent readers never observe a partially updated catalog.
type Snapshot struct {
	// Models lists all catalog entries in fetch order.
	Models []Model `json:"models"`

	// Simulations lists all simulation results in fetch order.
	Simulations []SimulationResult `json:"simulations"`

	// Datasets lists all additional datasets.
	Datasets []AdditionalDataset `json:"datasets,omitempty"`

	// Abbreviations lists all code mappings.
	Abbreviations []Abbreviation `json:"abbreviations,omitempty"`

	// FetchedAt is when this snapshot was fetched from the remote source.
	FetchedAt time.Time `json:"fetched_at"`

	// Stale reports that this snapshot was served after a failed refresh
	// attempt. Not persisted; set only on the fallback path.
	Stale bool `json:"-"`
}

// Model returns the model with the given name.
// Returns ErrModelNotFound if the name is absent from the snapshot.
func (s *Snapshot) Model(name string) (Model, error) {
	for _, m := range s.Models {
		if m.Name == name {
			return m, nil
		}
	}
	return Model{}, ErrModelNotFound
}

// SimulationsFor returns all simulation results owned by the named model,
// in snapshot order. The result is empty when the model has none.
func (s *Snapshot) SimulationsFor(modelName string) []SimulationResult {
	var sims []SimulationResult
	for _, sim := range s.Simulations {
		if sim.ModelName == modelName {
			sims = append(sims, sim)
		}
	}
	return sims
}

// CacheStatus describes the state of the local catalog cache.
type CacheStatus struct {
	// Path is the location of the cache file.
	Path string `json:"path"`

	// Exists reports whether a cached snapshot is present on disk.
	Exists bool `json:"exists"`

	// FetchedAt is when the cached snapshot was fetched. Zero if none.
	FetchedAt time.Time `json:"fetched_at,omitempty"`

	// Age is the age of the cached snapshot. Zero if none.
	Age time.Duration `json:"age,omitempty"`

	// Stale reports whether Age exceeds TTL. A stale snapshot is still
	// served until the caller refreshes explicitly.
	Stale bool `json:"stale"`

	// TTL is the configured staleness threshold.
	TTL time.Duration `json:"ttl"`

	// SizeBytes is the on-disk size of the cache file.
	SizeBytes int64 `json:"size_bytes,omitempty"`
}

// BatchItem records the outcome of one download within a batch.
type BatchItem struct {
	// Name identifies the requested model or file.
	Name string `json:"name"`

	// Path is where the file was saved. Empty on failure.
	Path string `json:"path,omitempty"`

	// Err is nil on success.
	Err error `json:"-"`
}

// BatchReport collects per-item outcomes of a batch download.
// One item failing never aborts the remaining items.
type BatchReport struct {
	// Items holds one entry per requested download, in request order.
	Items []BatchItem `json:"items"`
}

// Succeeded returns the number of successful items.
func (r BatchReport) Succeeded() int {
	n := 0
	for _, it := range r.Items {
		if it.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of failed items.
func (r BatchReport) Failed() int {
	return len(r.Items) - r.Succeeded()
}

// AllFailed reports whether the batch was non-empty and every item failed.
func (r BatchReport) AllFailed() bool {
	return len(r.Items) > 0 && r.Succeeded() == 0
}

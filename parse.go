package vmr

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Catalog CSV column names for the projects resource.
const (
	colName              = "Name"
	colLegacyName        = "Legacy Name"
	colImageNumber       = "Image Number"
	colSex               = "Sex"
	colAge               = "Age"
	colSpecies           = "Species"
	colEthnicity         = "Ethnicity"
	colAnimal            = "Animal"
	colAnatomy           = "Anatomy"
	colDisease           = "Disease"
	colProcedure         = "Procedure"
	colImages            = "Images"
	colPaths             = "Paths"
	colSegmentations     = "Segmentations"
	colModels            = "Models"
	colMeshes            = "Meshes"
	colSimulations       = "Simulations"
	colNotes             = "Notes"
	colDOI               = "DOI"
	colCitation          = "Citation"
	colImageManufacturer = "Image Manufacturer"
	colImageType         = "Image Type"
	colImageSource       = "Image Source"
	colImageModality     = "Image Modality"
	colResults           = "Results"
	colDateAdded         = "Date Added"
	colOrderUploaded     = "Order Uploaded"
	colModelCreator      = "Model Creator"
)

// Catalog CSV column names for the simulation results resource.
const (
	colSimModelName    = "Model Name"
	colSimFullFilename = "Full Simulation File Name"
	colSimImageNumber  = "Model Image Number"
	colSimShortName    = "Short Simulation File Name"
	colSimLegacyName   = "Legacy Simulation File Name"
	colSimFidelity     = "Simulation Fidelity"
	colSimMethod       = "Simulation Method"
	colSimCondition    = "Simulation Condition"
	colSimResultsType  = "Results Type"
	colSimFileType     = "Results File Type"
	colSimCreator      = "Simulation Creator"
	colSimNotes        = "Notes"
)

// csvRow gives header-keyed access to one CSV record.
type csvRow struct {
	header map[string]int
	record []string
}

// get returns the trimmed value of the named column, or "" when the column
// is absent or the record is short.
func (r csvRow) get(col string) string {
	idx, ok := r.header[col]
	if !ok || idx >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[idx])
}

// forEachRow parses CSV data and invokes fn for each data row.
// Catalog CSVs occasionally carry ragged rows; short records are padded by
// header-keyed access rather than rejected.
func forEachRow(data []byte, fn func(row csvRow)) error {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headerRec, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading csv header: %v", err)
	}

	header := make(map[string]int, len(headerRec))
	for i, name := range headerRec {
		header[strings.TrimSpace(name)] = i
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading csv record: %v", err)
		}
		fn(csvRow{header: header, record: record})
	}
}

// parseBool interprets catalog truth markers: 1/0, yes/no, true/false.
func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "yes", "true":
		return true
	default:
		return false
	}
}

// parseFloat returns nil for empty or unparseable values.
func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseInt returns nil for empty or unparseable values. Values written as
// floats ("3.0") are truncated.
func parseInt(s string) *int {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	v := int(f)
	return &v
}

// dateLayouts are the formats observed in the catalog's date columns.
var dateLayouts = []string{"2 Jan 2006", "2006-01-02", "1/2/2006"}

// parseDate returns nil for empty or unrecognized values.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// parseProjects parses the projects resource into Model records, attaching
// archive sizes from the file-sizes map. Rows without a name are skipped.
func parseProjects(data []byte, sizes map[string]int64) ([]Model, error) {
	var models []Model
	err := forEachRow(data, func(row csvRow) {
		name := row.get(colName)
		if name == "" {
			return
		}
		m := Model{
			Name:              name,
			LegacyName:        row.get(colLegacyName),
			ImageNumber:       row.get(colImageNumber),
			Sex:               row.get(colSex),
			Age:               parseFloat(row.get(colAge)),
			Species:           row.get(colSpecies),
			Ethnicity:         row.get(colEthnicity),
			Animal:            row.get(colAnimal),
			Anatomy:           row.get(colAnatomy),
			Disease:           row.get(colDisease),
			Procedure:         row.get(colProcedure),
			HasImages:         parseBool(row.get(colImages)),
			HasPaths:          parseBool(row.get(colPaths)),
			HasSegmentations:  parseBool(row.get(colSegmentations)),
			HasModels:         parseBool(row.get(colModels)),
			HasMeshes:         parseBool(row.get(colMeshes)),
			HasSimulations:    parseBool(row.get(colSimulations)),
			Notes:             row.get(colNotes),
			DOI:               row.get(colDOI),
			Citation:          row.get(colCitation),
			ImageManufacturer: row.get(colImageManufacturer),
			ImageType:         row.get(colImageType),
			ImageSource:       row.get(colImageSource),
			ImageModality:     row.get(colImageModality),
			HasResults:        parseBool(row.get(colResults)),
			DateAdded:         parseDate(row.get(colDateAdded)),
			OrderUploaded:     parseInt(row.get(colOrderUploaded)),
			ModelCreator:      row.get(colModelCreator),
		}
		m.FileSize = sizes[modelSizeKey(name)]
		models = append(models, m)
	})
	if err != nil {
		return nil, fmt.Errorf("parsing projects: %w", err)
	}
	return models, nil
}

// parseResults parses the simulation results resource. Rows missing the
// model name or filename are skipped.
func parseResults(data []byte, sizes map[string]int64) ([]SimulationResult, error) {
	var sims []SimulationResult
	err := forEachRow(data, func(row csvRow) {
		modelName := row.get(colSimModelName)
		filename := row.get(colSimFullFilename)
		if modelName == "" || filename == "" {
			return
		}
		sims = append(sims, SimulationResult{
			ModelName:    modelName,
			FullFilename: filename,
			ImageNumber:  row.get(colSimImageNumber),
			ShortName:    row.get(colSimShortName),
			LegacyName:   row.get(colSimLegacyName),
			Fidelity:     row.get(colSimFidelity),
			Method:       row.get(colSimMethod),
			Condition:    row.get(colSimCondition),
			ResultsType:  row.get(colSimResultsType),
			FileType:     row.get(colSimFileType),
			Creator:      row.get(colSimCreator),
			Notes:        row.get(colSimNotes),
			FileSize:     sizes[simulationSizeKey(modelName, filename)],
		})
	})
	if err != nil {
		return nil, fmt.Errorf("parsing results: %w", err)
	}
	return sims, nil
}

// parseFileSizes parses the file-sizes resource into a path-to-bytes map.
func parseFileSizes(data []byte) (map[string]int64, error) {
	sizes := make(map[string]int64)
	err := forEachRow(data, func(row csvRow) {
		name := row.get("Name")
		if name == "" {
			return
		}
		size, err := strconv.ParseInt(row.get("Size"), 10, 64)
		if err != nil {
			return
		}
		sizes[name] = size
	})
	if err != nil {
		return nil, fmt.Errorf("parsing file sizes: %w", err)
	}
	return sizes, nil
}

// parseAbbreviations parses the abbreviations resource.
func parseAbbreviations(data []byte) ([]Abbreviation, error) {
	var abbrs []Abbreviation
	err := forEachRow(data, func(row csvRow) {
		short := row.get("Short Name")
		if short == "" {
			return
		}
		abbrs = append(abbrs, Abbreviation{
			Category:  row.get("Category"),
			ShortName: short,
			LongName:  row.get("Long Name"),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("parsing abbreviations: %w", err)
	}
	return abbrs, nil
}

// parseDatasets parses the additional-data resource.
func parseDatasets(data []byte, sizes map[string]int64) ([]AdditionalDataset, error) {
	var datasets []AdditionalDataset
	err := forEachRow(data, func(row csvRow) {
		name := row.get("Name")
		if name == "" {
			return
		}
		datasets = append(datasets, AdditionalDataset{
			Name:     name,
			Notes:    row.get("Notes"),
			Citation: row.get("Citation"),
			FileSize: sizes[datasetSizeKey(name)],
		})
	})
	if err != nil {
		return nil, fmt.Errorf("parsing additional data: %w", err)
	}
	return datasets, nil
}

// buildSnapshot parses all catalog resources into one Snapshot.
// The snapshot is fully formed or not at all: any parse failure in a
// required resource fails the whole build.
func buildSnapshot(raw *rawCatalog, fetchedAt time.Time) (*Snapshot, error) {
	sizes, err := parseFileSizes(raw.fileSizes)
	if err != nil {
		return nil, err
	}

	models, err := parseProjects(raw.projects, sizes)
	if err != nil {
		return nil, err
	}

	sims, err := parseResults(raw.results, sizes)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Models:      models,
		Simulations: sims,
		FetchedAt:   fetchedAt,
	}

	if raw.abbreviations != nil {
		if snap.Abbreviations, err = parseAbbreviations(raw.abbreviations); err != nil {
			return nil, err
		}
	}
	if raw.additional != nil {
		if snap.Datasets, err = parseDatasets(raw.additional, sizes); err != nil {
			return nil, err
		}
	}

	return snap, nil
}

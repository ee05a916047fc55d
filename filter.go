package vmr

import (
	"fmt"
	"strings"
)

// FilterSet is a set of optional predicates narrowing a model query.
// Omitted (zero / nil) fields impose no constraint; all supplied predicates
// combine with logical AND. Results keep snapshot order.
type FilterSet struct {
	// Name matches models whose name contains this value (case-insensitive).
	Name string

	// Anatomy matches the anatomy label exactly (case-insensitive).
	Anatomy string

	// Species matches the species exactly (case-insensitive). The catalog
	// codes "H" and "A" are accepted for Human and Animal.
	Species string

	// Disease matches models whose disease label contains this value
	// (case-insensitive substring match; "aneurysm" matches both thoracic
	// and abdominal aneurysm labels).
	Disease string

	// Sex matches the sex exactly (case-insensitive).
	Sex string

	// AgeMin and AgeMax are inclusive age bounds in years. Models with
	// unknown age are excluded whenever either bound is set.
	AgeMin *float64
	AgeMax *float64

	// Availability flags. Nil imposes no constraint.
	HasImages        *bool
	HasPaths         *bool
	HasSegmentations *bool
	HasMeshes        *bool
	HasSimulations   *bool
	HasResults       *bool

	// ModelCreator matches creators containing this value (case-insensitive).
	ModelCreator string
}

// Validate reports whether the filter combination is semantically well
// formed. Returns ErrInvalidFilter when AgeMin exceeds AgeMax or either
// bound is negative.
func (f FilterSet) Validate() error {
	if f.AgeMin != nil && *f.AgeMin < 0 {
		return fmt.Errorf("%w: age_min %g is negative", ErrInvalidFilter, *f.AgeMin)
	}
	if f.AgeMax != nil && *f.AgeMax < 0 {
		return fmt.Errorf("%w: age_max %g is negative", ErrInvalidFilter, *f.AgeMax)
	}
	if f.AgeMin != nil && f.AgeMax != nil && *f.AgeMin > *f.AgeMax {
		return fmt.Errorf("%w: age_min %g exceeds age_max %g", ErrInvalidFilter, *f.AgeMin, *f.AgeMax)
	}
	return nil
}

// Matches reports whether a model satisfies every supplied predicate.
// Assumes the filter has been validated.
func (f FilterSet) Matches(m Model) bool {
	if f.Name != "" && !containsFold(m.Name, f.Name) {
		return false
	}
	if f.Anatomy != "" && !strings.EqualFold(m.Anatomy, f.Anatomy) {
		return false
	}
	if f.Species != "" && normalizeSpecies(m.Species) != normalizeSpecies(f.Species) {
		return false
	}
	if f.Disease != "" && !containsFold(m.Disease, f.Disease) {
		return false
	}
	if f.Sex != "" && !strings.EqualFold(m.Sex, f.Sex) {
		return false
	}
	if f.AgeMin != nil && (m.Age == nil || *m.Age < *f.AgeMin) {
		return false
	}
	if f.AgeMax != nil && (m.Age == nil || *m.Age > *f.AgeMax) {
		return false
	}
	for _, fl := range []struct {
		want *bool
		got  bool
	}{
		{f.HasImages, m.HasImages},
		{f.HasPaths, m.HasPaths},
		{f.HasSegmentations, m.HasSegmentations},
		{f.HasMeshes, m.HasMeshes},
		{f.HasSimulations, m.HasSimulations},
		{f.HasResults, m.HasResults},
	} {
		if fl.want != nil && fl.got != *fl.want {
			return false
		}
	}
	if f.ModelCreator != "" && !containsFold(m.ModelCreator, f.ModelCreator) {
		return false
	}
	return true
}

// Query returns the models satisfying the filter, in snapshot order.
// Returns ErrInvalidFilter for malformed filter combinations; valid filters
// matching nothing return an empty slice, not an error.
func (s *Snapshot) Query(f FilterSet) ([]Model, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	result := make([]Model, 0, len(s.Models))
	for _, m := range s.Models {
		if f.Matches(m) {
			result = append(result, m)
		}
	}
	return result, nil
}

// containsFold reports whether s contains substr, ignoring case.
// Empty values never match.
func containsFold(s, substr string) bool {
	if s == "" || substr == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// normalizeSpecies folds catalog species codes into their long form.
func normalizeSpecies(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h", "human":
		return "human"
	case "a", "animal":
		return "animal"
	default:
		return strings.ToLower(strings.TrimSpace(s))
	}
}

// SimulationFilter is a set of optional predicates narrowing a simulation
// query. All string matches are case-insensitive substring matches and
// combine with logical AND.
type SimulationFilter struct {
	ModelName   string
	Fidelity    string
	Method      string
	Condition   string
	ResultsType string
	FileType    string
	Creator     string
}

// Matches reports whether a simulation satisfies every supplied predicate.
func (f SimulationFilter) Matches(s SimulationResult) bool {
	for _, p := range []struct{ want, got string }{
		{f.ModelName, s.ModelName},
		{f.Fidelity, s.Fidelity},
		{f.Method, s.Method},
		{f.Condition, s.Condition},
		{f.ResultsType, s.ResultsType},
		{f.FileType, s.FileType},
		{f.Creator, s.Creator},
	} {
		if p.want != "" && !containsFold(p.got, p.want) {
			return false
		}
	}
	return true
}

// QuerySimulations returns the simulations satisfying the filter, in
// snapshot order.
func (s *Snapshot) QuerySimulations(f SimulationFilter) []SimulationResult {
	result := make([]SimulationResult, 0, len(s.Simulations))
	for _, sim := range s.Simulations {
		if f.Matches(sim) {
			result = append(result, sim)
		}
	}
	return result
}

// AgeStats summarizes the ages of models with a known age.
type AgeStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// Summary holds aggregate statistics over a set of models.
type Summary struct {
	Total int `json:"total"`

	BySpecies map[string]int `json:"by_species,omitempty"`
	ByAnatomy map[string]int `json:"by_anatomy,omitempty"`
	ByDisease map[string]int `json:"by_disease,omitempty"`

	WithSimulations   int `json:"with_simulations"`
	WithMeshes        int `json:"with_meshes"`
	WithSegmentations int `json:"with_segmentations"`

	// Ages is nil when no model has a known age.
	Ages *AgeStats `json:"age_statistics,omitempty"`

	// TotalSizeBytes sums the known archive sizes.
	TotalSizeBytes int64 `json:"total_size_bytes"`
}

// Summarize computes aggregate statistics over the given models.
func Summarize(models []Model) Summary {
	s := Summary{Total: len(models)}
	if len(models) == 0 {
		return s
	}

	s.BySpecies = make(map[string]int)
	s.ByAnatomy = make(map[string]int)
	s.ByDisease = make(map[string]int)

	var ageSum float64
	for _, m := range models {
		s.BySpecies[orUnknown(m.Species)]++
		s.ByAnatomy[orUnknown(m.Anatomy)]++
		s.ByDisease[orUnknown(m.Disease)]++

		if m.HasSimulations {
			s.WithSimulations++
		}
		if m.HasMeshes {
			s.WithMeshes++
		}
		if m.HasSegmentations {
			s.WithSegmentations++
		}

		if m.Age != nil {
			if s.Ages == nil {
				s.Ages = &AgeStats{Min: *m.Age, Max: *m.Age}
			}
			if *m.Age < s.Ages.Min {
				s.Ages.Min = *m.Age
			}
			if *m.Age > s.Ages.Max {
				s.Ages.Max = *m.Age
			}
			ageSum += *m.Age
			s.Ages.Count++
		}

		s.TotalSizeBytes += m.FileSize
	}

	if s.Ages != nil {
		s.Ages.Mean = ageSum / float64(s.Ages.Count)
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

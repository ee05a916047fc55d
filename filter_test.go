package vmr

import (
	"errors"
	"testing"
)

func ptrF(v float64) *float64 { return &v }
func ptrB(v bool) *bool       { return &v }

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()

	sizes, err := parseFileSizes([]byte(testFileSizesCSV))
	if err != nil {
		t.Fatalf("parseFileSizes() error = %v", err)
	}
	models, err := parseProjects([]byte(testProjectsCSV), sizes)
	if err != nil {
		t.Fatalf("parseProjects() error = %v", err)
	}
	sims, err := parseResults([]byte(testResultsCSV), sizes)
	if err != nil {
		t.Fatalf("parseResults() error = %v", err)
	}
	return &Snapshot{Models: models, Simulations: sims}
}

func queryNames(t *testing.T, snap *Snapshot, f FilterSet) []string {
	t.Helper()

	models, err := snap.Query(f)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}
	return names
}

func TestQueryNoFilterReturnsAllInOrder(t *testing.T) {
	snap := testSnapshot(t)

	got := queryNames(t, snap, FilterSet{})
	want := []string{"0001_H_AO_SVD", "0002_H_AO_H", "0003_A_PULM_C", "0004_H_CORO_K"}

	if len(got) != len(want) {
		t.Fatalf("Query() returned %d models, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Query()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestQueryFilters(t *testing.T) {
	snap := testSnapshot(t)

	tests := []struct {
		name   string
		filter FilterSet
		want   []string
	}{
		{
			name:   "anatomy and max age",
			filter: FilterSet{Anatomy: "Aorta", AgeMax: ptrF(18)},
			want:   []string{"0002_H_AO_H"},
		},
		{
			name:   "anatomy case insensitive",
			filter: FilterSet{Anatomy: "aorta"},
			want:   []string{"0001_H_AO_SVD", "0002_H_AO_H"},
		},
		{
			name:   "species animal",
			filter: FilterSet{Species: "Animal"},
			want:   []string{"0003_A_PULM_C"},
		},
		{
			name:   "species code H",
			filter: FilterSet{Species: "H", Anatomy: "Coronary"},
			want:   []string{"0004_H_CORO_K"},
		},
		{
			name:   "species code A",
			filter: FilterSet{Species: "A"},
			want:   []string{"0003_A_PULM_C"},
		},
		{
			name:   "disease substring",
			filter: FilterSet{Disease: "coarct"},
			want:   []string{"0002_H_AO_H"},
		},
		{
			name:   "name substring",
			filter: FilterSet{Name: "pulm"},
			want:   []string{"0003_A_PULM_C"},
		},
		{
			name:   "sex exact",
			filter: FilterSet{Sex: "female"},
			want:   []string{"0002_H_AO_H"},
		},
		{
			name:   "age bounds inclusive",
			filter: FilterSet{AgeMin: ptrF(10), AgeMax: ptrF(45)},
			want:   []string{"0001_H_AO_SVD", "0002_H_AO_H"},
		},
		{
			name:   "unknown age excluded when bound set",
			filter: FilterSet{AgeMin: ptrF(0)},
			want:   []string{"0001_H_AO_SVD", "0002_H_AO_H", "0004_H_CORO_K"},
		},
		{
			name:   "has simulations",
			filter: FilterSet{HasSimulations: ptrB(true)},
			want:   []string{"0001_H_AO_SVD", "0002_H_AO_H"},
		},
		{
			name:   "has meshes false",
			filter: FilterSet{HasMeshes: ptrB(false), Species: "Human"},
			want:   []string{"0002_H_AO_H", "0004_H_CORO_K"},
		},
		{
			name:   "creator substring",
			filter: FilterSet{ModelCreator: "wilson"},
			want:   []string{"0001_H_AO_SVD", "0002_H_AO_H"},
		},
		{
			name:   "no matches is empty not error",
			filter: FilterSet{Anatomy: "Cerebral"},
			want:   []string{},
		},
		{
			name:   "all predicates AND together",
			filter: FilterSet{Anatomy: "Aorta", Species: "Human", Disease: "Healthy", AgeMin: ptrF(40)},
			want:   []string{"0001_H_AO_SVD"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := queryNames(t, snap, tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("Query() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Query()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestQueryRepeatedCallsIdentical(t *testing.T) {
	snap := testSnapshot(t)
	f := FilterSet{Anatomy: "Aorta"}

	first := queryNames(t, snap, f)
	second := queryNames(t, snap, f)

	if len(first) != len(second) {
		t.Fatalf("repeated Query() lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("repeated Query() differs at %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestFilterValidate(t *testing.T) {
	tests := []struct {
		name    string
		filter  FilterSet
		wantErr bool
	}{
		{"empty filter", FilterSet{}, false},
		{"valid bounds", FilterSet{AgeMin: ptrF(5), AgeMax: ptrF(10)}, false},
		{"equal bounds", FilterSet{AgeMin: ptrF(5), AgeMax: ptrF(5)}, false},
		{"inverted bounds", FilterSet{AgeMin: ptrF(50), AgeMax: ptrF(18)}, true},
		{"negative min", FilterSet{AgeMin: ptrF(-1)}, true},
		{"negative max", FilterSet{AgeMax: ptrF(-0.5)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidFilter) {
				t.Errorf("Validate() = %v, want ErrInvalidFilter", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestQueryInvalidFilter(t *testing.T) {
	snap := testSnapshot(t)

	_, err := snap.Query(FilterSet{AgeMin: ptrF(50), AgeMax: ptrF(18)})
	if !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("Query() error = %v, want ErrInvalidFilter", err)
	}
}

func TestQuerySimulations(t *testing.T) {
	snap := testSnapshot(t)

	sims := snap.QuerySimulations(SimulationFilter{Method: "rigid"})
	if len(sims) != 2 {
		t.Fatalf("QuerySimulations() returned %d results, want 2", len(sims))
	}
	if sims[0].FullFilename != "0001_0001.zip" || sims[1].FullFilename != "0002_0001.zip" {
		t.Errorf("QuerySimulations() = %v, %v", sims[0].FullFilename, sims[1].FullFilename)
	}

	sims = snap.QuerySimulations(SimulationFilter{ModelName: "0001_H_AO_SVD", Fidelity: "3D"})
	if len(sims) != 2 {
		t.Errorf("QuerySimulations() returned %d results, want 2", len(sims))
	}
}

func TestSummarize(t *testing.T) {
	snap := testSnapshot(t)

	s := Summarize(snap.Models)

	if s.Total != 4 {
		t.Errorf("Total = %d, want 4", s.Total)
	}
	if s.BySpecies["Human"] != 3 || s.BySpecies["Animal"] != 1 {
		t.Errorf("BySpecies = %v", s.BySpecies)
	}
	if s.ByAnatomy["Aorta"] != 2 {
		t.Errorf("ByAnatomy[Aorta] = %d, want 2", s.ByAnatomy["Aorta"])
	}
	if s.WithSimulations != 2 {
		t.Errorf("WithSimulations = %d, want 2", s.WithSimulations)
	}
	if s.Ages == nil {
		t.Fatal("Ages = nil, want stats")
	}
	if s.Ages.Count != 3 {
		t.Errorf("Ages.Count = %d, want 3", s.Ages.Count)
	}
	if s.Ages.Min != 10 || s.Ages.Max != 67.5 {
		t.Errorf("Ages min/max = %g/%g, want 10/67.5", s.Ages.Min, s.Ages.Max)
	}
	if s.TotalSizeBytes != 1048576+2048 {
		t.Errorf("TotalSizeBytes = %d, want %d", s.TotalSizeBytes, 1048576+2048)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Total != 0 {
		t.Errorf("Total = %d, want 0", s.Total)
	}
	if s.Ages != nil {
		t.Errorf("Ages = %v, want nil", s.Ages)
	}
}

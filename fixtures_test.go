package vmr

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// Catalog CSV fixtures shared across tests. Column subsets are valid input:
// parsing is header-keyed and tolerant of absent columns.
const (
	testProjectsCSV = `Name,Sex,Age,Species,Animal,Anatomy,Disease,Simulations,Meshes,Segmentations,Date Added,Order Uploaded,Model Creator
0001_H_AO_SVD,Male,45,Human,,Aorta,Healthy,1,1,1,2 Jan 2019,1,N. Wilson
0002_H_AO_H,Female,10,Human,,Aorta,Coarctation,1,0,1,2020-03-15,2,N. Wilson
0003_A_PULM_C,,,Animal,Rabbit,Pulmonary,Stenosis,0,1,0,,3,J. Pfaller
0004_H_CORO_K,Male,67.5,Human,,Coronary,Kawasaki,0,0,1,7/4/2021,4,
`

	testResultsCSV = `Model Name,Full Simulation File Name,Short Simulation File Name,Simulation Fidelity,Simulation Method,Results File Type
0001_H_AO_SVD,0001_0001.zip,0001,3D,RIGID,VTP
0001_H_AO_SVD,0001_0002.zip,0002,3D,FSI,VTU
0002_H_AO_H,0002_0001.zip,0001,1D,RIGID,CSV
`

	testFileSizesCSV = `Name,Size
svprojects/0001_H_AO_SVD.zip,1048576
svprojects/0002_H_AO_H.zip,2048
svresults/0001_H_AO_SVD/0001_0001.zip,4096
additionaldata/centerlines.zip,512
`

	testAbbreviationsCSV = `Category,Short Name,Long Name
Disease,COA,Coarctation of Aorta
Anatomy,AO,Aorta
`

	testAdditionalCSV = `Name,Notes,Citation
centerlines,Extracted centerline geometry,Wilson et al. 2013
`
)

// testCatalogServer serves the five catalog resources and counts requests
// per path.
type testCatalogServer struct {
	*httptest.Server
	requests atomic.Int64
}

// newTestCatalogServer starts a server with the standard fixtures.
// Pass overrides to replace individual resources; a nil value yields 404.
func newTestCatalogServer(t *testing.T, overrides map[string]*string) *testCatalogServer {
	t.Helper()

	resources := map[string]string{
		projectsCSVPath:      testProjectsCSV,
		resultsCSVPath:       testResultsCSV,
		fileSizesCSVPath:     testFileSizesCSV,
		abbreviationsCSVPath: testAbbreviationsCSV,
		additionalCSVPath:    testAdditionalCSV,
	}
	for path, body := range overrides {
		if body == nil {
			delete(resources, path)
		} else {
			resources[path] = *body
		}
	}

	ts := &testCatalogServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.requests.Add(1)
		body, ok := resources[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

// newTestClient builds a client backed by the given server and a private
// cache directory.
func newTestClient(t *testing.T, serverURL string) Client {
	t.Helper()

	cli, err := NewClient(Config{
		BaseURL:  serverURL,
		CacheDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return cli
}

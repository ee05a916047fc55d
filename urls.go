package vmr

import "strings"

// DefaultBaseURL is the public repository host.
const DefaultBaseURL = "https://www.vascularmodel.com"

// Catalog resource paths relative to the base URL. Each resource is a CSV
// document; together they form one catalog snapshot.
const (
	projectsCSVPath      = "/dataset/dataset-svprojects.csv"
	resultsCSVPath       = "/dataset/dataset-svresults.csv"
	fileSizesCSVPath     = "/dataset/file_sizes.csv"
	abbreviationsCSVPath = "/dataset/dataset-abbreviations.csv"
	additionalCSVPath    = "/dataset/additionaldata.csv"
)

// joinURL concatenates a base URL and a path, normalizing slashes.
func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// modelArchiveURL returns the URL of a model's zip archive.
func modelArchiveURL(base, name string) string {
	return joinURL(base, "/svprojects/"+name+".zip")
}

// simulationURL returns the URL of a simulation result archive.
func simulationURL(base, modelName, filename string) string {
	return joinURL(base, "/svresults/"+modelName+"/"+filename)
}

// datasetURL returns the URL of an additional dataset archive.
func datasetURL(base, name string) string {
	return joinURL(base, "/additionaldata/"+name+".zip")
}

// modelPDFURL returns the URL of a model's PDF documentation.
func modelPDFURL(base, name string) string {
	return joinURL(base, "/vmr-pdfs/"+name+".pdf")
}

// modelImageURL returns the URL of a model's preview image.
func modelImageURL(base, name string) string {
	return joinURL(base, "/img/vmr-images/"+name+".png")
}

// Keys into the file-sizes resource for each archive kind.

func modelSizeKey(name string) string {
	return "svprojects/" + name + ".zip"
}

func simulationSizeKey(modelName, filename string) string {
	return "svresults/" + modelName + "/" + filename
}

func datasetSizeKey(name string) string {
	return "additionaldata/" + name + ".zip"
}

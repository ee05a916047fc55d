// Command vmr browses and downloads models from the Vascular Model
// Repository.
//
// Configuration is loaded from a YAML file and environment variables:
//   - VMR_CONFIG: path to the config file (default ~/.config/vmr/config.yaml)
//   - VMR_BASE_URL: override for the repository base URL
//   - VMR_CACHE_DIR: override for the catalog cache directory
//   - VMR_LOG_LEVEL, VMR_LOG_FORMAT: logging controls
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	vmr "github.com/lucapegolotti/go-vmr"
)

// CLI exit codes for standardized error reporting.
const (
	// ExitSuccess indicates the operation completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitInvalidArgs indicates invalid command line arguments or filters.
	ExitInvalidArgs = 2

	// ExitNotFound indicates a model, simulation, or dataset was not found.
	ExitNotFound = 3

	// ExitCatalogUnavailable indicates the catalog could not be loaded.
	ExitCatalogUnavailable = 4

	// ExitNetworkError indicates a network or connection failure.
	ExitNetworkError = 5

	// ExitDownloadFailed indicates a file download could not complete.
	ExitDownloadFailed = 6

	// ExitCacheError indicates a cache filesystem operation failed.
	ExitCacheError = 7
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitGeneralError)
	}

	logger := newLogger(os.Stderr, quietRequested())

	cmd := vmr.NewCommand(cfg, vmr.WithLogger(logger))
	if err := cmd.Execute(); err != nil {
		os.Exit(exitCodeFromError(err))
	}
}

// quietRequested reports whether --quiet appears on the command line.
// Checked before cobra parses flags so the logger is quiet from the start.
func quietRequested() bool {
	for _, arg := range os.Args[1:] {
		if arg == "--quiet" || arg == "-q" {
			return true
		}
	}
	return false
}

// loadConfig reads the config file and applies environment overrides.
func loadConfig() (vmr.Config, error) {
	path := os.Getenv("VMR_CONFIG")
	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ".config", "vmr", "config.yaml")
		}
	}

	var cfg vmr.Config
	if path != "" {
		var err error
		cfg, err = vmr.LoadConfig(path)
		if err != nil {
			return vmr.Config{}, err
		}
	}

	if baseURL := os.Getenv("VMR_BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	// VMR_CACHE_DIR is handled by the storage layer.

	return cfg, nil
}

// exitCodeFromError maps error types to exit codes.
func exitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, vmr.ErrModelNotFound),
		errors.Is(err, vmr.ErrSimulationNotFound),
		errors.Is(err, vmr.ErrDatasetNotFound):
		return ExitNotFound
	case errors.Is(err, vmr.ErrInvalidFilter):
		return ExitInvalidArgs
	case errors.Is(err, vmr.ErrCatalogUnavailable):
		return ExitCatalogUnavailable
	case errors.Is(err, vmr.ErrDownloadFailed):
		return ExitDownloadFailed
	case errors.Is(err, vmr.ErrNetworkError):
		return ExitNetworkError
	case errors.Is(err, vmr.ErrCacheError):
		return ExitCacheError
	default:
		return ExitGeneralError
	}
}

// Package vmr provides a Go client for the Vascular Model Repository
// (https://www.vascularmodel.com), a public catalog of cardiovascular
// anatomical models and simulation results.
//
// The package serves two primary use cases:
//
//  1. Programmatic API via the Client interface - Applications can use
//     NewClient to create a Client that provides methods for listing,
//     searching, and downloading models and their simulation results.
//
//  2. Embeddable CLI via NewCommand - Parent CLI tools can attach a complete
//     "vmr" subcommand tree to their Cobra root command, or build a
//     standalone binary around it (see cmd/vmr).
//
// # Catalog Cache
//
// The remote catalog is fetched once and persisted as a single JSON snapshot
// in a local cache directory. Subsequent calls are answered from the cache
// without network access. Snapshots are replaced wholesale using a
// write-temp-then-rename discipline, so a crash mid-write can never corrupt
// the cache, and concurrent CLI invocations sharing a cache directory never
// observe a half-written file. Cached data older than the configured TTL is
// still served but flagged as stale; refreshing is always an explicit caller
// decision (Refresh or a force-refresh flag), never implicit.
//
// # Thread Safety
//
// The Client interface is safe for concurrent use. All methods can be called
// from multiple goroutines without external synchronization.
//
// # Storage
//
// The catalog cache lives in a platform-appropriate directory:
//   - Linux: $XDG_CACHE_HOME/vmr/ or ~/.cache/vmr/
//   - macOS: ~/Library/Caches/vmr/
//   - Windows: %LOCALAPPDATA%\vmr\
//
// The location can be overridden via Config.CacheDir or the VMR_CACHE_DIR
// environment variable.
package vmr

package vmr

import (
	"net/http"
	"time"
)

// Default client settings.
const (
	// DefaultCacheTTL is the age past which a cached snapshot is flagged
	// stale if Config.CacheTTL is not set.
	DefaultCacheTTL = 24 * time.Hour

	// DefaultRequestTimeout is the timeout applied to the default HTTP
	// client used when WithHTTPClient is not specified.
	DefaultRequestTimeout = 30 * time.Second
)

// Retry configuration constants for failed HTTP requests.
const (
	// MaxRetries is the maximum number of attempts per request.
	MaxRetries = 3

	// InitialBackoff is the delay before the first retry.
	InitialBackoff = 1 * time.Second

	// BackoffMultiplier is the exponential backoff multiplier between retries.
	BackoffMultiplier = 2.0
)

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

// clientConfig holds configuration for Client construction.
type clientConfig struct {
	// httpClient is used for all HTTP requests.
	httpClient HTTPClient

	// logger receives diagnostic log messages.
	logger Logger
}

// newClientConfig returns a clientConfig with default values.
func newClientConfig() *clientConfig {
	return &clientConfig{
		httpClient: &http.Client{Timeout: DefaultRequestTimeout},
	}
}

// WithHTTPClient sets a custom HTTP client for repository requests.
// Useful for testing with mock servers or customizing timeouts.
func WithHTTPClient(client HTTPClient) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithLogger sets a logger for diagnostic output.
// If not set, logging is disabled.
func WithLogger(logger Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// DownloadOption configures a download operation.
type DownloadOption func(*downloadConfig)

// downloadConfig holds configuration for a download operation.
type downloadConfig struct {
	// extract unpacks zip archives after download.
	extract bool

	// simulations also downloads the model's simulation archives.
	simulations bool

	// pdf also downloads the model's PDF documentation.
	pdf bool

	// progress is called as bytes arrive. May be nil.
	progress func(DownloadProgress)
}

// newDownloadConfig returns a downloadConfig with default values.
func newDownloadConfig(opts []DownloadOption) *downloadConfig {
	cfg := &downloadConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithExtract unpacks zip archives into a sibling directory after download.
func WithExtract() DownloadOption {
	return func(c *downloadConfig) {
		c.extract = true
	}
}

// WithSimulations also downloads the model's simulation result archives
// into a "<name>_simulations" directory. Individual simulation failures are
// logged and do not fail the model download.
func WithSimulations() DownloadOption {
	return func(c *downloadConfig) {
		c.simulations = true
	}
}

// WithPDF also downloads the model's PDF documentation.
func WithPDF() DownloadOption {
	return func(c *downloadConfig) {
		c.pdf = true
	}
}

// WithProgress sets a callback for download progress updates.
func WithProgress(fn func(DownloadProgress)) DownloadOption {
	return func(c *downloadConfig) {
		c.progress = fn
	}
}

// DownloadProgress reports progress of a single file download.
type DownloadProgress struct {
	// Filename is the file being downloaded.
	Filename string

	// BytesReceived is the number of bytes written so far, including any
	// resumed partial download.
	BytesReceived int64

	// BytesTotal is the expected total size, 0 if unknown.
	BytesTotal int64
}

// HTTPClient is the interface for HTTP operations.
// *http.Client satisfies this interface.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// Logger is the interface for diagnostic logging.
// Compatible with slog, zap, logrus, and other structured loggers.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, keysAndValues ...any)
}

package client

import (
	"net/http"
	"net/url"

	"github.com/failsafe-go/failsafe-go/failsafehttp"

	"github.com/tvmirror/playlist-mirror/internal/config"
)

// New creates the shared HTTP client used for playlist and icon requests.
// Requests that fail to establish a connection are retried once, and
// compressed response bodies are decompressed transparently. The client
// carries no timeout of its own: deadlines are applied per request through
// contexts.
func New(cfg *config.Config) *http.Client {
	retrying := failsafehttp.NewRoundTripper(newBaseTransport(cfg), newRetryPolicy())

	// Wrap transport with compression support (gzip, brotli, zstd)
	return &http.Client{
		Transport: newCompressionTransport(retrying),
	}
}

// newBaseTransport clones DefaultTransport to preserve all its settings
// (timeouts, connection pooling, HTTP/2, etc.) and sizes the connection pool
// to the worker count so a full download run can keep every worker on a warm
// connection.
func newBaseTransport(cfg *config.Config) *http.Transport {
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Workers > 0 {
		baseTransport.MaxIdleConnsPerHost = cfg.Workers
		baseTransport.MaxConnsPerHost = cfg.Workers
	}

	if cfg.ProxyConnectionString != "" {
		proxyURL, err := url.Parse(cfg.ProxyConnectionString)
		if err != nil {
			// Log error but continue without proxy
			logger := config.GetLogger()
			logger.Warn().Err(err).Str("proxy", cfg.ProxyConnectionString).Msg("Invalid proxy URL, continuing without proxy")
		} else {
			// Override only the Proxy field
			baseTransport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return baseTransport
}

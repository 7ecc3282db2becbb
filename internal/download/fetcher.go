package download

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/tvmirror/playlist-mirror/internal/config"
	"github.com/tvmirror/playlist-mirror/internal/metrics"
	"github.com/tvmirror/playlist-mirror/internal/models"
)

// copyChunkBytes is the buffer size for streaming icon bodies to disk.
const copyChunkBytes = 8192

// Fetcher downloads single icons to their destination paths over the shared
// HTTP client. The optional limiter throttles request starts across all
// workers.
type Fetcher struct {
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
}

// NewFetcher creates a fetcher with the configured per-item timeout. A nil
// limiter disables rate limiting.
func NewFetcher(httpClient *http.Client, cfg *config.Config, limiter *rate.Limiter) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		timeout:    durationFromConfig(cfg.IconTimeout, DefaultIconTimeout, "icon_timeout"),
		limiter:    limiter,
	}
}

// FetchOne downloads one icon to its destination path, overwriting any
// previous file. Every failure is converted to a false return so the
// calling batch continues with its next job. The request runs under its own
// deadline detached from the run context: an expiring run skips queued
// jobs but never cuts off an in-flight write.
func (f *Fetcher) FetchOne(mapping models.IconMapping) bool {
	if f.fetchOne(mapping) {
		metrics.IconDownloadsTotal.WithLabelValues("success").Inc()
		return true
	}

	metrics.IconDownloadsTotal.WithLabelValues("failure").Inc()
	return false
}

func (f *Fetcher) fetchOne(mapping models.IconMapping) bool {
	logger := config.GetLogger()

	reqCtx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	if f.limiter != nil {
		if err := f.limiter.Wait(reqCtx); err != nil {
			logger.Debug().Err(err).Str("url", mapping.SourceURL).Msg("Rate limiter wait aborted")
			return false
		}
	}

	if err := os.MkdirAll(filepath.Dir(mapping.DestPath), 0o755); err != nil {
		logger.Warn().Err(err).Str("path", mapping.DestPath).Msg("Failed to create icon directory")
		return false
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, mapping.SourceURL, nil)
	if err != nil {
		logger.Warn().Err(err).Str("url", mapping.SourceURL).Msg("Failed to create icon request")
		return false
	}
	req.Header.Set("User-Agent", config.GetUserAgent())

	resp, err := f.httpClient.Do(req)
	if err != nil {
		logger.Debug().Err(err).Str("url", mapping.SourceURL).Msg("Icon download failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		logger.Debug().Int("status", resp.StatusCode).Str("url", mapping.SourceURL).Msg("Icon download returned error status")
		return false
	}

	out, err := os.Create(mapping.DestPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", mapping.DestPath).Msg("Failed to create icon file")
		return false
	}

	// Hide the file's ReadFrom so the copy actually streams through the
	// fixed-size buffer.
	buf := make([]byte, copyChunkBytes)
	_, err = io.CopyBuffer(struct{ io.Writer }{out}, resp.Body, buf)
	closeErr := out.Close()
	if err != nil {
		logger.Debug().Err(err).Str("url", mapping.SourceURL).Msg("Icon body copy failed")
		return false
	}
	if closeErr != nil {
		logger.Warn().Err(closeErr).Str("path", mapping.DestPath).Msg("Failed to close icon file")
		return false
	}

	return true
}

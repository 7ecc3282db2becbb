package mirror

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tvmirror/playlist-mirror/internal/config"
	"github.com/tvmirror/playlist-mirror/internal/download"
	"github.com/tvmirror/playlist-mirror/internal/metrics"
	"github.com/tvmirror/playlist-mirror/internal/models"
	"github.com/tvmirror/playlist-mirror/internal/playlist"
)

// DefaultService implements Service over the shared rewriter and scheduler.
type DefaultService struct {
	cfg       *config.Config
	rewriter  *playlist.Rewriter
	scheduler *download.Scheduler
	logger    zerolog.Logger
}

// NewService creates a mirror service. The service logger carries a run ID
// so overlapping cron invocations stay distinguishable in logs.
func NewService(cfg *config.Config, rewriter *playlist.Rewriter, scheduler *download.Scheduler) Service {
	return &DefaultService{
		cfg:       cfg,
		rewriter:  rewriter,
		scheduler: scheduler,
		logger:    config.GetLogger().With().Str("run_id", uuid.NewString()).Logger(),
	}
}

// Run mirrors all configured playlist sources and then their icons. Sources
// are processed sequentially; a failing source is logged, reported and
// skipped. Icon downloads run through the scheduler under its timeouts.
func (s *DefaultService) Run(ctx context.Context) (models.RunResult, error) {
	if err := s.prepareDirectories(); err != nil {
		return models.RunResult{}, err
	}

	var mappingSets [][]models.IconMapping
	for _, sourceURL := range s.cfg.Sources {
		result, err := s.rewriter.FetchAndRewrite(ctx, sourceURL)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", sourceURL).Msg("Skipping playlist source")
			sentry.CaptureException(err)
			metrics.PlaylistsProcessedTotal.WithLabelValues("failure").Inc()
			continue
		}

		// Icons are still mirrored even when the rewritten playlist cannot
		// be written out.
		mappingSets = append(mappingSets, result.Mappings)
		if s.writePlaylist(result) {
			metrics.PlaylistsProcessedTotal.WithLabelValues("success").Inc()
		} else {
			metrics.PlaylistsProcessedTotal.WithLabelValues("failure").Inc()
		}
	}

	jobs := download.Merge(mappingSets...)
	if len(jobs) == 0 {
		s.logger.Info().Msg("No icons to mirror")
		return models.RunResult{}, nil
	}

	runResult := s.scheduler.Run(ctx, jobs)
	if runResult.TimedOut {
		sentry.CaptureMessage(fmt.Sprintf(
			"icon download run timed out after %s with %d of %d downloaded",
			runResult.Elapsed, runResult.Succeeded, runResult.TotalJobs))
	}

	s.logger.Info().
		Int("downloaded", runResult.Succeeded).
		Int("total", runResult.TotalJobs).
		Dur("elapsed", runResult.Elapsed).
		Msg("Mirror run complete")
	return runResult, nil
}

// prepareDirectories creates the playlist and icon output directories.
func (s *DefaultService) prepareDirectories() error {
	for _, dir := range []string{s.cfg.PlaylistDir, s.cfg.SquareIconDir, s.cfg.RectIconDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	return nil
}

// writePlaylist stores one rewritten playlist under the output directory and
// reports whether it landed.
func (s *DefaultService) writePlaylist(result *models.RewriteResult) bool {
	if result.Filename == "" {
		s.logger.Warn().Msg("Playlist source URL has no usable filename, not writing it out")
		return false
	}

	dest := filepath.Join(s.cfg.PlaylistDir, result.Filename)
	if err := os.WriteFile(dest, []byte(result.Content), 0o644); err != nil {
		s.logger.Warn().Err(err).Str("path", dest).Msg("Failed to write rewritten playlist")
		sentry.CaptureException(err)
		return false
	}

	s.logger.Debug().Str("path", dest).Msg("Wrote rewritten playlist")
	return true
}

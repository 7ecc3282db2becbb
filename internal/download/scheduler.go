package download

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tvmirror/playlist-mirror/internal/config"
	"github.com/tvmirror/playlist-mirror/internal/metrics"
	"github.com/tvmirror/playlist-mirror/internal/models"
)

const (
	// DefaultGlobalTimeout bounds a whole download run.
	DefaultGlobalTimeout = 300 * time.Second
	// DefaultIconTimeout bounds a single icon request.
	DefaultIconTimeout = 300 * time.Second
	// DefaultBatchWait bounds the wait for any one batch result.
	DefaultBatchWait = 60 * time.Second
)

// IconFetcher downloads one icon and reports whether it landed on disk.
type IconFetcher interface {
	FetchOne(mapping models.IconMapping) bool
}

// Scheduler fans a merged job list out over a bounded worker pool, batch by
// batch, and harvests batch results as they complete.
type Scheduler struct {
	fetcher    IconFetcher
	workers    int
	batchSize  int
	batchWait  time.Duration
	globalWait time.Duration
}

// NewScheduler creates a scheduler sized from the configuration. Invalid
// durations and non-positive pool sizes fall back to the defaults.
func NewScheduler(fetcher IconFetcher, cfg *config.Config) *Scheduler {
	workers := cfg.Workers
	if workers <= 0 {
		workers = config.DefaultWorkers
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}

	return &Scheduler{
		fetcher:    fetcher,
		workers:    workers,
		batchSize:  batchSize,
		batchWait:  durationFromConfig(cfg.BatchWait, DefaultBatchWait, "batch_wait"),
		globalWait: durationFromConfig(cfg.GlobalTimeout, DefaultGlobalTimeout, "global_timeout"),
	}
}

func durationFromConfig(value string, fallback time.Duration, name string) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logger := config.GetLogger()
		logger.Warn().Err(err).Str("setting", name).Msgf("Invalid duration, using default of %s", fallback)
		return fallback
	}
	return parsed
}

// Partition splits jobs into batches of at most size mappings, preserving
// submission order. The final batch may be shorter.
func Partition(jobs []models.IconMapping, size int) []models.Batch {
	if len(jobs) == 0 {
		return nil
	}
	if size <= 0 {
		size = 1
	}

	batches := make([]models.Batch, 0, (len(jobs)+size-1)/size)
	for start := 0; start < len(jobs); start += size {
		end := start + size
		if end > len(jobs) {
			end = len(jobs)
		}
		batches = append(batches, models.Batch(jobs[start:end]))
	}
	return batches
}

type workItem struct {
	index int
	batch models.Batch
}

type batchResult struct {
	index     int
	succeeded int
}

// Run downloads all jobs and reports how many landed. Batches run in
// parallel across the pool while jobs within a batch run sequentially.
// The run never returns an error: batches that outlive their harvest wait
// contribute zero, and once the global deadline passes the partial tally is
// returned with TimedOut set.
func (s *Scheduler) Run(ctx context.Context, jobs []models.IconMapping) models.RunResult {
	logger := config.GetLogger()
	start := time.Now()

	if len(jobs) == 0 {
		return models.RunResult{Elapsed: time.Since(start)}
	}

	metrics.IconJobsQueued.Set(float64(len(jobs)))
	batches := Partition(jobs, s.batchSize)

	// The deadline doubles as the cancellation signal workers poll between
	// jobs.
	runCtx, cancel := context.WithTimeout(ctx, s.globalWait)
	defer cancel()

	workers := s.workers
	if workers > len(batches) {
		workers = len(batches)
	}

	pending := make(chan workItem, len(batches))
	results := make(chan batchResult, len(batches))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range pending {
				results <- batchResult{index: item.index, succeeded: s.runBatch(runCtx, item.batch)}
			}
		}()
	}

	for index, batch := range batches {
		pending <- workItem{index: index, batch: batch}
	}
	close(pending)

	go func() {
		wg.Wait()
		close(results)
	}()

	logger.Info().Int("jobs", len(jobs)).Int("batches", len(batches)).Int("workers", workers).Msg("Starting icon downloads")

	succeeded, deadlineHit := s.harvest(runCtx, results, len(batches), start)

	result := models.RunResult{
		TotalJobs: len(jobs),
		Succeeded: succeeded,
		Elapsed:   time.Since(start),
		TimedOut:  deadlineHit,
	}
	logger.Info().
		Int("downloaded", result.Succeeded).
		Int("total", result.TotalJobs).
		Dur("elapsed", result.Elapsed).
		Bool("timed_out", result.TimedOut).
		Msg("Icon downloads finished")
	return result
}

// runBatch downloads a batch's jobs in order, checking for cancellation
// between jobs. In-flight downloads are never interrupted.
func (s *Scheduler) runBatch(ctx context.Context, batch models.Batch) int {
	succeeded := 0
	for _, mapping := range batch {
		if ctx.Err() != nil {
			break
		}
		if s.fetcher.FetchOne(mapping) {
			succeeded++
		}
	}
	return succeeded
}

// harvest collects batch results as they arrive. A slot that stays empty for
// the batch wait forfeits one batch's worth of credit; a late result still
// fills a later slot. Reaching the global deadline stops the harvest with
// whatever has been tallied.
func (s *Scheduler) harvest(ctx context.Context, results <-chan batchResult, batchCount int, start time.Time) (int, bool) {
	logger := config.GetLogger()
	succeeded := 0

	for harvested := 0; harvested < batchCount; harvested++ {
		timer := time.NewTimer(s.batchWait)
		select {
		case result := <-results:
			timer.Stop()
			succeeded += result.succeeded
			metrics.BatchesHarvestedTotal.WithLabelValues("harvested").Inc()
			logger.Info().
				Str("progress", fmt.Sprintf("%.1f%%", float64(harvested+1)/float64(batchCount)*100)).
				Int("downloaded", succeeded).
				Dur("elapsed", time.Since(start)).
				Msg("Batch harvested")
		case <-timer.C:
			metrics.BatchesHarvestedTotal.WithLabelValues("timeout").Inc()
			logger.Warn().Int("batch_slot", harvested).Msg("Batch harvest timed out, counting it as zero")
		case <-ctx.Done():
			timer.Stop()
			logger.Warn().Int("downloaded", succeeded).Msg("Global deadline reached, stopping harvest")
			return succeeded, true
		}
	}
	return succeeded, false
}

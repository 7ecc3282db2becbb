package mirror

import (
	"context"

	"github.com/tvmirror/playlist-mirror/internal/models"
)

// Service runs one full mirror pass: fetch and rewrite every configured
// playlist, then download the referenced icons.
type Service interface {
	// Run executes the pass and reports the download tally. It returns an
	// error only when the output directories cannot be prepared; individual
	// playlist and icon failures are absorbed into the result.
	Run(ctx context.Context) (models.RunResult, error)
}

package models

import "time"

// IconMapping associates a remote icon URL with the local path the asset is
// mirrored to. Source URLs act as unique keys in a merged job set.
type IconMapping struct {
	SourceURL string // Remote icon URL as found in the playlist
	DestPath  string // Local destination path, derived from the URL's icon path
}

// Batch is a submission-ordered slice of mappings processed sequentially by
// one worker.
type Batch []IconMapping

// RewriteResult is the outcome of fetching and rewriting a single playlist.
type RewriteResult struct {
	Filename string        // Output file name (basename of the source URL path)
	Content  string        // Rewritten playlist text, UTF-8, newline-joined
	Mappings []IconMapping // Icon jobs contributed by this playlist
	Replaced int           // Icon URLs rewritten to the mirror base
	External int           // Icon URLs left untouched (unrecognized host/shape)
}

// RunResult summarizes one icon download run.
type RunResult struct {
	TotalJobs int           // Jobs submitted to the scheduler
	Succeeded int           // Jobs whose download completed successfully
	Elapsed   time.Duration // Wall-clock duration of the download phase
	TimedOut  bool          // True when the global deadline cut the run short
}

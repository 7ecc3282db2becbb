package apperrors

import "fmt"

// ErrMissingRepository is returned when no target repository is configured.
// The mirror base URL cannot be derived without one, so this error is fatal.
type ErrMissingRepository struct{}

// Error implements the error interface.
func (e *ErrMissingRepository) Error() string {
	return "repository is not configured (set MIRROR_REPOSITORY)"
}

// Is allows for error checking with errors.Is().
func (e *ErrMissingRepository) Is(target error) bool {
	_, ok := target.(*ErrMissingRepository)
	return ok
}

// ErrPlaylistFetch is returned when a playlist source cannot be downloaded.
type ErrPlaylistFetch struct {
	URL    string
	Status int
}

// Error implements the error interface.
func (e *ErrPlaylistFetch) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("playlist fetch failed for %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("playlist fetch failed for %s", e.URL)
}

// Is allows for error checking with errors.Is().
func (e *ErrPlaylistFetch) Is(target error) bool {
	_, ok := target.(*ErrPlaylistFetch)
	return ok
}

// NewPlaylistFetchError creates a new ErrPlaylistFetch for an HTTP status failure.
func NewPlaylistFetchError(url string, status int) *ErrPlaylistFetch {
	return &ErrPlaylistFetch{
		URL:    url,
		Status: status,
	}
}

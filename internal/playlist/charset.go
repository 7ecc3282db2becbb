package playlist

import (
	"io"

	"golang.org/x/net/html/charset"
)

// newUTF8Reader wraps body with automatic character encoding detection and
// conversion to UTF-8. Playlists published for legacy set-top boxes still
// arrive in Windows-1251 or Latin-1 variants; the declared Content-Type is
// consulted first, then byte order marks and content heuristics.
//
// If the content is already UTF-8, this is a no-op wrapper with minimal overhead.
func newUTF8Reader(body io.Reader, contentType string) (io.Reader, error) {
	return charset.NewReader(body, contentType)
}

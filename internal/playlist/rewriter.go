package playlist

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tvmirror/playlist-mirror/internal/apperrors"
	"github.com/tvmirror/playlist-mirror/internal/config"
	"github.com/tvmirror/playlist-mirror/internal/models"
)

// DefaultFetchTimeout bounds a single playlist download when no
// playlist_timeout is configured.
const DefaultFetchTimeout = 60 * time.Second

// iconAttribute marks lines that carry an icon reference.
const iconAttribute = `tvg-logo="`

// Scanner sizing: playlists are line-oriented but single EXTINF lines can
// get long once every attribute is inlined.
const (
	scannerBufferBytes = 64 * 1024
	maxLineBytes       = 1024 * 1024
)

// Rewriter downloads playlist documents and redirects their icon references
// to the mirror, collecting the download jobs the rewrite implies.
type Rewriter struct {
	httpClient *http.Client
	mirrorBase string
	squareDir  string
	rectDir    string
	timeout    time.Duration
	iconRe     *regexp.Regexp
}

// NewRewriter creates a rewriter bound to the shared HTTP client and the
// mirror layout from the configuration.
func NewRewriter(httpClient *http.Client, cfg *config.Config) *Rewriter {
	// Parse timeout duration
	timeout := DefaultFetchTimeout
	if cfg.PlaylistTimeout != "" {
		if parsedTimeout, err := time.ParseDuration(cfg.PlaylistTimeout); err != nil {
			logger := config.GetLogger()
			logger.Warn().Err(err).Str("timeout", cfg.PlaylistTimeout).Msg("Invalid playlist timeout, using default 60s")
		} else {
			timeout = parsedTimeout
		}
	}

	return &Rewriter{
		httpClient: httpClient,
		mirrorBase: cfg.MirrorBaseURL(),
		squareDir:  filepath.Clean(cfg.SquareIconDir),
		rectDir:    filepath.Clean(cfg.RectIconDir),
		timeout:    timeout,
		iconRe:     iconPattern(cfg.IconHost),
	}
}

// iconPattern builds the icon matcher for the given host. Capture group 1 is
// the full icon URL, group 2 the path below /img/.
func iconPattern(host string) *regexp.Regexp {
	return regexp.MustCompile(`tvg-logo="(https?://` + regexp.QuoteMeta(host) + `/img/([^"]+))"`)
}

// FetchAndRewrite downloads one playlist and rewrites every recognized icon
// reference to the mirror base. Transport and HTTP status failures are
// returned to the caller so a broken source never aborts the other sources.
func (r *Rewriter) FetchAndRewrite(ctx context.Context, sourceURL string) (*models.RewriteResult, error) {
	logger := config.GetLogger()

	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating playlist request: %w", err)
	}
	req.Header.Set("User-Agent", config.GetUserAgent())

	logger.Info().Str("url", sourceURL).Msg("Downloading playlist")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading playlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, apperrors.NewPlaylistFetchError(sourceURL, resp.StatusCode)
	}

	body, err := newUTF8Reader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("detecting playlist charset: %w", err)
	}

	result := &models.RewriteResult{Filename: filenameFromURL(sourceURL)}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, scannerBufferBytes), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, r.rewriteLine(scanner.Text(), result))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	result.Content = strings.Join(lines, "\n")

	logger.Info().
		Str("playlist", result.Filename).
		Int("replaced", result.Replaced).
		Int("external", result.External).
		Msg("Playlist rewritten")

	return result, nil
}

// rewriteLine processes a single playlist line, updating the result's
// mappings and counters. Only the first icon match per line is considered;
// every occurrence of the matched URL in the line is replaced.
func (r *Rewriter) rewriteLine(line string, result *models.RewriteResult) string {
	if !strings.Contains(line, iconAttribute) {
		return line
	}

	match := r.iconRe.FindStringSubmatch(line)
	if match == nil {
		logger := config.GetLogger()
		logger.Debug().Str("line", line).Msg("External icon URL left untouched")
		result.External++
		return line
	}
	iconURL, iconPath := match[1], match[2]

	squareDest, ok := destinationFor(r.squareDir, iconPath)
	if !ok {
		logger := config.GetLogger()
		logger.Warn().Str("url", iconURL).Msg("Icon path escapes the destination root, leaving untouched")
		result.External++
		return line
	}
	rectDest, ok := destinationFor(r.rectDir, iconPath)
	if !ok {
		result.External++
		return line
	}

	result.Mappings = append(result.Mappings,
		models.IconMapping{SourceURL: iconURL, DestPath: squareDest},
		models.IconMapping{SourceURL: strings.Replace(iconURL, "/img/", "/img2/", 1), DestPath: rectDest},
	)
	result.Replaced++

	return strings.ReplaceAll(line, iconURL, r.mirrorBase+iconPath)
}

// destinationFor resolves the local destination for an icon path under root,
// rejecting paths that climb out of the root directory.
func destinationFor(root, iconPath string) (string, bool) {
	dest := filepath.Join(root, filepath.FromSlash(iconPath))
	if dest == root || !strings.HasPrefix(dest, root+string(filepath.Separator)) {
		return "", false
	}
	return dest, true
}

// filenameFromURL derives the output file name from the basename of the
// source URL's path.
func filenameFromURL(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

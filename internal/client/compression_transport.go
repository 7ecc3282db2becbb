package client

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// acceptedEncodings is advertised on outgoing requests when the caller did
// not set its own Accept-Encoding.
const acceptedEncodings = "gzip, br, zstd"

// compressionTransport decompresses gzip, brotli and zstd response bodies so
// callers always read plain bytes.
type compressionTransport struct {
	next http.RoundTripper
}

func newCompressionTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &compressionTransport{next: next}
}

// RoundTrip executes a single HTTP transaction, advertising the supported
// encodings and transparently decompressing the response.
func (t *compressionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Work on a copy, transports must not mutate the caller's request
	req = req.Clone(req.Context())
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", acceptedEncodings)
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// Nothing to decompress for HEAD, 204 and 304 responses
	if resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}

	body, err := newDecodedBody(outerEncoding(resp.Header.Get("Content-Encoding")), resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	if body == nil {
		// Identity or unknown encoding, hand the body through untouched
		return resp, nil
	}

	resp.Body = body

	// The decompressed stream no longer matches the original headers
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1

	return resp, nil
}

// newDecodedBody wraps body in a decoder for the given encoding, or returns
// nil when no decoding applies.
func newDecodedBody(encoding string, body io.ReadCloser) (io.ReadCloser, error) {
	var reader io.ReadCloser
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(body)
		if err != nil {
			return nil, err
		}
		reader = gz
	case "br":
		reader = io.NopCloser(brotli.NewReader(body))
	case "zstd":
		zr, err := zstd.NewReader(body)
		if err != nil {
			return nil, err
		}
		reader = zr.IOReadCloser()
	default:
		return nil, nil
	}

	return &decodedBody{reader: reader, original: body}, nil
}

// decodedBody closes both the decompressor and the underlying network body.
type decodedBody struct {
	reader   io.ReadCloser
	original io.ReadCloser
}

func (d *decodedBody) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

func (d *decodedBody) Close() error {
	readerErr := d.reader.Close()
	bodyErr := d.original.Close()

	if readerErr != nil {
		return readerErr
	}
	return bodyErr
}

// outerEncoding extracts the outermost (last applied) encoding from a
// Content-Encoding header, normalized to lowercase. Multiple encodings
// arrive as a comma-separated list and must be undone in reverse order.
func outerEncoding(header string) string {
	parts := strings.Split(header, ",")
	last := strings.TrimSpace(parts[len(parts)-1])
	return strings.ToLower(last)
}

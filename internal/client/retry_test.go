package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/failsafe-go/failsafe-go/failsafehttp"
)

// flakyTransport fails the first `failures` attempts with failErr and then
// serves a canned 200 response, counting every attempt.
type flakyTransport struct {
	failures int32
	failErr  error
	status   int
	attempts atomic.Int32
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	attempt := f.attempts.Add(1)
	if attempt <= f.failures {
		return nil, f.failErr
	}

	status := f.status
	if status == 0 {
		status = http.StatusOK
	}

	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func dialError() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func TestRetry_DialErrorRetriedOnce(t *testing.T) {
	flaky := &flakyTransport{failures: 1, failErr: dialError()}
	httpClient := &http.Client{
		Transport: failsafehttp.NewRoundTripper(flaky, newRetryPolicy()),
	}

	resp, err := httpClient.Get("http://epg.one/img/a.png")
	if err != nil {
		t.Fatalf("Get() error = %v, want success after one retry", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if got := flaky.attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestRetry_DialErrorsExhaustAfterTwoAttempts(t *testing.T) {
	flaky := &flakyTransport{failures: 3, failErr: dialError()}
	httpClient := &http.Client{
		Transport: failsafehttp.NewRoundTripper(flaky, newRetryPolicy()),
	}

	resp, err := httpClient.Get("http://epg.one/img/a.png")
	if err == nil {
		resp.Body.Close()
		t.Fatal("Get() succeeded, want error when every attempt fails to connect")
	}
	if got := flaky.attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2 (one retry)", got)
	}
}

func TestRetry_NonDialErrorNotRetried(t *testing.T) {
	readErr := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}
	flaky := &flakyTransport{failures: 1, failErr: readErr}
	httpClient := &http.Client{
		Transport: failsafehttp.NewRoundTripper(flaky, newRetryPolicy()),
	}

	resp, err := httpClient.Get("http://epg.one/img/a.png")
	if err == nil {
		resp.Body.Close()
		t.Fatal("Get() succeeded, want read error to surface")
	}
	if got := flaky.attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (no retry)", got)
	}
}

func TestRetry_HTTPErrorStatusNotRetried(t *testing.T) {
	flaky := &flakyTransport{status: http.StatusInternalServerError}
	httpClient := &http.Client{
		Transport: failsafehttp.NewRoundTripper(flaky, newRetryPolicy()),
	}

	resp, err := httpClient.Get("http://epg.one/img/a.png")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
	if got := flaky.attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (status codes are not retried)", got)
	}
}

func TestIsDialError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"dial op error", dialError(), true},
		{"read op error", &net.OpError{Op: "read", Net: "tcp", Err: errors.New("reset")}, false},
		{"wrapped dial error", fmt.Errorf("request failed: %w", dialError()), true},
		{"dial error inside url.Error", &url.Error{Op: "Get", URL: "http://epg.one", Err: dialError()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDialError(tt.err); got != tt.expected {
				t.Errorf("isDialError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

package client

import (
	"errors"
	"net"
	"net/http"

	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// newRetryPolicy builds the connection retry policy: a request that never
// reached the remote host is retried once, anything that got an HTTP
// exchange going is not.
func newRetryPolicy() retrypolicy.RetryPolicy[*http.Response] {
	return retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(_ *http.Response, err error) bool {
			return isDialError(err)
		}).
		WithMaxRetries(1).
		Build()
}

// isDialError reports whether err comes from establishing the TCP connection
// rather than from the HTTP exchange itself.
func isDialError(err error) bool {
	if err == nil {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}

	return false
}

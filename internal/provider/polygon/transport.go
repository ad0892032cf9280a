package polygon

import (
	"fmt"
	"net/http"
	"time"
)

// baseTransportConfig returns the shared HTTP transport configuration used by Polygon clients.
func baseTransportConfig() *http.Transport {
	return &http.Transport{
		ResponseHeaderTimeout: 2 * time.Minute,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          4,
		MaxIdleConnsPerHost:   4,
	}
}

// TransportError is a failed call to one provider endpoint: network failure,
// non-200 status after retries, or an undecodable body.
type TransportError struct {
	Endpoint   string
	URL        string // never carries the credential
	StatusCode int    // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Endpoint, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Endpoint, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// retryable reports whether a status code is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

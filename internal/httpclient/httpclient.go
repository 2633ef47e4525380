// Package httpclient builds the outbound http.Client used by the API
// transport, with optional circuit breaker protection and bounded response
// reading.
package httpclient

import (
	"net/http"
	"time"
)

// New returns an http.Client configured for outbound requests.
func New(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: Transport(),
	}
}

// Transport returns an http.Transport clone suitable for outbound calls.
// Cloning keeps the default proxy and TLS behavior while giving each client
// an isolated connection pool.
func Transport() *http.Transport {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return &http.Transport{}
	}
	return base.Clone()
}

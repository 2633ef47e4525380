package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	agonerrors "github.com/doAIs/AgonX/internal/errors"
	"github.com/doAIs/AgonX/internal/logging"
)

// breakerTransport gates every request through a circuit breaker so a dead
// backend fails fast instead of burning the full timeout per call.
type breakerTransport struct {
	next    http.RoundTripper
	breaker *agonerrors.CircuitBreaker
}

// NewWithCircuitBreaker returns a client whose transport is guarded by a
// breaker with default thresholds.
func NewWithCircuitBreaker(timeout time.Duration, logger logging.Logger, name string) *http.Client {
	return NewWithCircuitBreakerConfig(timeout, logger, name, agonerrors.DefaultCircuitBreakerConfig())
}

// NewWithCircuitBreakerConfig is NewWithCircuitBreaker with explicit
// breaker thresholds.
func NewWithCircuitBreakerConfig(timeout time.Duration, logger logging.Logger, name string, config agonerrors.CircuitBreakerConfig) *http.Client {
	client := New(timeout)
	client.Transport = WrapTransportWithCircuitBreaker(client.Transport, name, config, logger)
	return client
}

// WrapTransportWithCircuitBreaker decorates base so request outcomes feed
// the breaker: 5xx and 429 responses count as failures, a context
// cancellation does not (the caller gave up, the backend did not fail).
func WrapTransportWithCircuitBreaker(base http.RoundTripper, name string, config agonerrors.CircuitBreakerConfig, logger logging.Logger) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if name == "" {
		name = "http"
	}
	return &breakerTransport{
		next:    base,
		breaker: agonerrors.NewCircuitBreaker(name, config, logger),
	}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.breaker.Allow(); err != nil {
		return nil, err
	}
	resp, err := t.next.RoundTrip(req)
	switch {
	case errors.Is(err, context.Canceled):
		t.breaker.Mark(nil)
	case err != nil:
		t.breaker.Mark(err)
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		t.breaker.Mark(fmt.Errorf("http status %d", resp.StatusCode))
	default:
		t.breaker.Mark(nil)
	}
	return resp, err
}

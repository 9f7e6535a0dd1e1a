package throttle

import (
	"net/http"
)

// Transport is an http.RoundTripper that waits for per-host clearance before each request
type Transport struct {
	Base    http.RoundTripper
	Limiter *Limiter
}

// NewTransport wraps base (http.DefaultTransport when nil) with limiter
func NewTransport(base http.RoundTripper, limiter *Limiter) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base, Limiter: limiter}
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Limiter != nil {
		if err := t.Limiter.Wait(req.Context(), req.URL.String()); err != nil {
			return nil, err
		}
	}
	return t.Base.RoundTrip(req)
}

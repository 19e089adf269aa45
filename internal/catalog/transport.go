package catalog

import (
	"net/http"

	"golang.org/x/time/rate"
)

// rateLimitedTransport delays requests so the remote sees at most the
// limiter's rate.
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func newRateLimitedTransport(base http.RoundTripper, perSecond float64, burst int) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if perSecond <= 0 {
		return base
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimitedTransport{
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

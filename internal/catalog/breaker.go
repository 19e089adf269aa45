package catalog

import (
	"context"
	"errors"
	"io"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mrlokans/offlinemirror/internal/logging"
	"github.com/mrlokans/offlinemirror/internal/metrics"
)

// BreakerClient guards an API with a circuit breaker. Not-found and forbidden
// answers and caller cancellations count as successes: the server responded or the
// caller gave up.
type BreakerClient struct {
	api  API
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

type BreakerConfig struct {
	Name        string
	MaxRequests uint32        // concurrent probes allowed while half-open
	Interval    time.Duration // closed-state counter reset period
	Timeout     time.Duration // open-state duration before probing
	MinRequests uint32
	FailureRate float64
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:        "catalog-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		MinRequests: 10,
		FailureRate: 0.6,
	}
}

func NewBreakerClient(api API, cfg BreakerConfig) *BreakerClient {
	name := cfg.Name
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRate
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Catalog circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerClient{api: api, cb: cb, name: name}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// State exposes the breaker state for the status endpoint.
func (b *BreakerClient) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
	case err != nil && !errors.Is(err, ErrNotFound):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	}
	return result, err
}

func call[T any](b *BreakerClient, fn func() (T, error)) (T, error) {
	result, err := b.execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func (b *BreakerClient) BaseURL() string {
	return b.api.BaseURL()
}

func (b *BreakerClient) GetMe(ctx context.Context) (*User, error) {
	return call(b, func() (*User, error) { return b.api.GetMe(ctx) })
}

func (b *BreakerClient) GetLibrary(ctx context.Context, id string) (*Library, error) {
	return call(b, func() (*Library, error) { return b.api.GetLibrary(ctx, id) })
}

func (b *BreakerClient) GetSeries(ctx context.Context, id string) (*Series, error) {
	return call(b, func() (*Series, error) { return b.api.GetSeries(ctx, id) })
}

func (b *BreakerClient) GetBook(ctx context.Context, id string) (*Book, error) {
	return call(b, func() (*Book, error) { return b.api.GetBook(ctx, id) })
}

func (b *BreakerClient) GetBookThumbnail(ctx context.Context, id string) (*Thumbnail, error) {
	return call(b, func() (*Thumbnail, error) { return b.api.GetBookThumbnail(ctx, id) })
}

// DownloadBook guards opening the body only. Errors while streaming do not
// count against the breaker.
func (b *BreakerClient) DownloadBook(ctx context.Context, id string) (io.ReadCloser, int64, error) {
	type opened struct {
		body   io.ReadCloser
		length int64
	}
	res, err := call(b, func() (opened, error) {
		body, length, err := b.api.DownloadBook(ctx, id)
		return opened{body: body, length: length}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return res.body, res.length, nil
}

func (b *BreakerClient) UpdateReadProgress(ctx context.Context, bookID string, update ReadProgressUpdate) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.api.UpdateReadProgress(ctx, bookID, update)
	})
	return err
}

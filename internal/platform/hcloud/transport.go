package hcloud

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/metrics"

	"golang.org/x/time/rate"
)

// transport rate limits API requests, bounds each attempt with its own
// timeout and retries attempts that timed out.
type transport struct {
	base           http.RoundTripper
	limiter        *rate.Limiter
	attemptTimeout time.Duration
	attempts       int
	metrics        *metrics.Recorder
}

func newTransport(base http.RoundTripper, t *config.Timeouts, m *metrics.Recorder) *transport {
	limit := rate.Inf
	burst := 1
	if t.APIRateLimit > 0 {
		limit = rate.Limit(t.APIRateLimit)
		burst = max(int(t.APIRateLimit), 1)
	}
	return &transport{
		base:           base,
		limiter:        rate.NewLimiter(limit, burst),
		attemptTimeout: t.APICall,
		attempts:       max(t.APIAttempts, 1),
		metrics:        m,
	}
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	for attempt := 1; ; attempt++ {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}

		resp, err := t.roundTripOnce(req, attempt)
		if err == nil {
			return resp, nil
		}
		if attempt >= t.attempts || req.Context().Err() != nil || !isTimeout(err) {
			return nil, err
		}
		// A consumed body can only be replayed through GetBody.
		if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
			return nil, err
		}
	}
}

func (t *transport) roundTripOnce(req *http.Request, attempt int) (*http.Response, error) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if t.attemptTimeout > 0 {
		ctx, cancel = context.WithTimeout(req.Context(), t.attemptTimeout)
	} else {
		ctx, cancel = context.WithCancel(req.Context())
	}

	r := req.Clone(ctx)
	if attempt > 1 && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			cancel()
			return nil, err
		}
		r.Body = body
	}

	started := time.Now()
	resp, err := t.base.RoundTrip(r)
	code := 0
	if resp != nil {
		code = resp.StatusCode
	}
	t.metrics.ObserveAPIRequest(req.Method, code, time.Since(started))

	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases the attempt context once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const maxResponseBody = 1 << 20

// RequestObserver is told about every outbound attempt.
type RequestObserver interface {
	ObserveProviderRequest(provider, operation, outcome string, elapsed time.Duration)
}

type TransportConfig struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Transport performs provider HTTP calls with a fixed timeout and a bounded
// number of retries with growing backoff.
type Transport struct {
	provider string
	cfg      TransportConfig
	client   *http.Client
	observer RequestObserver
}

type Response struct {
	StatusCode int
	Body       []byte
}

func NewTransport(provider string, cfg TransportConfig, observer RequestObserver) *Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff * 8
	}

	return &Transport{
		provider: provider,
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		observer: observer,
	}
}

// Do sends the request built by newRequest, rebuilding it for every attempt.
// Network errors and 5xx responses are retried; 4xx responses are returned
// as ErrProviderRejected without retry. Exhausted retries yield
// ErrProviderUnavailable.
func (t *Transport) Do(ctx context.Context, operation string, newRequest func(ctx context.Context) (*http.Request, error)) (*Response, error) {
	var result *Response

	attempt := func() error {
		req, err := newRequest(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}

		start := time.Now()
		resp, err := t.client.Do(req)
		if err != nil {
			t.observe(operation, "error", start)
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			t.observe(operation, "error", start)
			return err
		}
		t.observe(operation, strconv.Itoa(resp.StatusCode), start)

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("%w: status=%d body=%s", ErrProviderRejected, resp.StatusCode, truncate(string(body), 200)))
		}

		result = &Response{StatusCode: resp.StatusCode, Body: body}
		return nil
	}

	if err := backoff.Retry(attempt, t.policy(ctx)); err != nil {
		if errors.Is(err, ErrProviderRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrProviderUnavailable, t.provider, operation, err)
	}
	return result, nil
}

func (t *Transport) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = t.cfg.InitialBackoff
	exp.MaxInterval = t.cfg.MaxBackoff
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(t.cfg.MaxRetries)), ctx)
}

func (t *Transport) observe(operation, outcome string, start time.Time) {
	if t.observer == nil {
		return
	}
	t.observer.ObserveProviderRequest(t.provider, operation, outcome, time.Since(start))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package llm

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
)

// RetryConfig controls how often and how patiently stream creation is
// retried.
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseBackoff: time.Second, MaxBackoff: 30 * time.Second}
}

// RetryProvider retries a Provider on rate limits, 5xx responses and
// network failures. Once text has reached the caller the stream is never
// restarted, since the reply is already on screen.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

func WrapWithRetry(p Provider, config RetryConfig) *RetryProvider {
	config.MaxAttempts = max(config.MaxAttempts, 1)
	return &RetryProvider{inner: p, config: config, sleep: sleepContext}
}

func (r *RetryProvider) Name() string {
	return r.inner.Name()
}

// Stream relays the inner provider's events, announcing each retry with
// an EventRetry before waiting.
func (r *RetryProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		return r.run(ctx, req, events)
	}), nil
}

func (r *RetryProvider) run(ctx context.Context, req Request, events chan<- Event) error {
	for attempt := 1; ; attempt++ {
		delivered, err := r.attempt(ctx, req, events)
		if err == nil || delivered || !isRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == r.config.MaxAttempts {
			return err
		}

		wait := r.calculateBackoff(attempt, err)
		retry := Event{
			Type:             EventRetry,
			RetryAttempt:     attempt,
			RetryMaxAttempts: r.config.MaxAttempts,
			RetryWaitSecs:    wait.Seconds(),
		}
		if err := send(ctx, events, retry); err != nil {
			return err
		}
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// attempt opens one inner stream and forwards it. delivered reports
// whether any text was forwarded before it failed.
func (r *RetryProvider) attempt(ctx context.Context, req Request, events chan<- Event) (delivered bool, err error) {
	stream, err := r.inner.Stream(ctx, req)
	if err != nil {
		return false, err
	}
	defer stream.Close()

	for {
		ev, err := stream.Recv()
		switch {
		case errors.Is(err, io.EOF):
			return delivered, nil
		case err != nil:
			return delivered, err
		case ev.Type == EventError && ev.Err != nil:
			return delivered, ev.Err
		}
		if err := send(ctx, events, ev); err != nil {
			return delivered, err
		}
		delivered = delivered || ev.Type == EventTextDelta
	}
}

// transientMessages mark network errors that usually go away on their own.
var transientMessages = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"deadline exceeded",
	"temporary failure",
	"no such host",
}

func isRetryable(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, ErrTokenLimitExceeded),
		errors.Is(err, ErrInvalidModel):
		return false
	}

	var rle *RateLimitError
	if errors.As(err, &rle) {
		return !rle.IsLongWait()
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return strings.Contains(strings.ToLower(apiErr.Message), "overloaded")
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// calculateBackoff honours a server's Retry-After, otherwise doubles
// BaseBackoff per attempt with +/-25% jitter. The result never exceeds
// MaxBackoff.
func (r *RetryProvider) calculateBackoff(attempt int, err error) time.Duration {
	var rle *RateLimitError
	if errors.As(err, &rle) && rle.RetryAfter > 0 {
		return min(rle.RetryAfter, r.config.MaxBackoff)
	}

	backoff := r.config.BaseBackoff
	for i := 1; i < attempt && backoff < r.config.MaxBackoff; i++ {
		backoff *= 2
	}
	backoff = min(backoff, r.config.MaxBackoff)
	jitter := (rand.Float64() - 0.5) * 0.5 * float64(backoff)
	return min(backoff+time.Duration(jitter), r.config.MaxBackoff)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

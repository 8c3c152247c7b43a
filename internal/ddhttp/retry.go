package ddhttp

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

// RetryableStatuses are the statuses retried by the default policy.
var RetryableStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// maxBackoffExponent keeps 2^attempt seconds well inside time.Duration.
const maxBackoffExponent = 16

// RetryPolicy parameterises WithRetry. Zero fields fall back to the defaults.
type RetryPolicy struct {
	Retryable func(status int) bool
	Backoff   func(attempt int) time.Duration
	Sleep     func(ctx context.Context, d time.Duration) error
	// OnRetry, when set, is called before each wait.
	OnRetry func(req Request, attempt, status int, err error, wait time.Duration)
}

// DefaultRetryPolicy retries RetryableStatuses and timeouts with
// 2^attempt seconds plus up to one second of random jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Retryable: RetryOn(RetryableStatuses...),
		Backoff:   ExponentialBackoff(RandomJitter),
		Sleep:     SleepContext,
	}
}

// RetryOn returns a predicate matching exactly the given statuses.
func RetryOn(statuses ...int) func(int) bool {
	set := make(map[int]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return func(status int) bool {
		_, ok := set[status]
		return ok
	}
}

// ExponentialBackoff waits 2^attempt seconds plus jitter(). A nil jitter
// gives a deterministic schedule. From maxBackoffExponent on, the wait is a
// flat 2^maxBackoffExponent seconds with no jitter, so the schedule never
// decreases however large the retry budget.
func ExponentialBackoff(jitter func() time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt >= maxBackoffExponent {
			return time.Duration(1<<maxBackoffExponent) * time.Second
		}
		d := time.Duration(1<<max(attempt, 0)) * time.Second
		if jitter != nil {
			d += jitter()
		}
		return d
	}
}

// RandomJitter returns a random sub-second offset.
func RandomJitter() time.Duration {
	return time.Duration(rand.Int64N(int64(time.Second)))
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsTimeout reports whether err is a connect/read timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.Retryable == nil {
		p.Retryable = def.Retryable
	}
	if p.Backoff == nil {
		p.Backoff = def.Backoff
	}
	if p.Sleep == nil {
		p.Sleep = def.Sleep
	}
	return p
}

func (p RetryPolicy) shouldRetry(resp *Response, err error) bool {
	if err != nil {
		return IsTimeout(err)
	}
	return resp != nil && p.Retryable(resp.StatusCode)
}

// WithRetry decorates a single-attempt function. The request is retried up
// to req.Retries times while the outcome is retryable; the last outcome is
// returned as-is once the budget is spent. Cancelling ctx stops retrying.
func WithRetry(attempt AttemptFunc, policy RetryPolicy) AttemptFunc {
	policy = policy.withDefaults()
	return func(ctx context.Context, req Request) (*Response, error) {
		retries := max(req.Retries, 0)
		for n := 0; ; n++ {
			resp, err := attempt(ctx, req)
			if n >= retries || ctx.Err() != nil || !policy.shouldRetry(resp, err) {
				return resp, err
			}

			wait := policy.Backoff(n)
			if policy.OnRetry != nil {
				status := 0
				if resp != nil {
					status = resp.StatusCode
				}
				policy.OnRetry(req, n, status, err, wait)
			}
			if serr := policy.Sleep(ctx, wait); serr != nil {
				if err == nil {
					err = serr
				}
				return resp, err
			}
		}
	}
}

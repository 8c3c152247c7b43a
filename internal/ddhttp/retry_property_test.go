package ddhttp

import (
	"context"
	"net/http"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// For any retry budget and any persistently returned status, a retryable
// status is attempted exactly retries+1 times and anything else exactly once.
func TestPropertyRetryAttemptCount(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		retries := rapid.IntRange(0, 6).Draw(rt, "retries")
		status := rapid.SampledFrom([]int{
			http.StatusOK, http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound,
			http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusNotImplemented,
		}).Draw(rt, "status")

		calls := 0
		attempt := func(ctx context.Context, req Request) (*Response, error) {
			calls++
			return &Response{StatusCode: status}, nil
		}
		policy := RetryPolicy{
			Backoff: ExponentialBackoff(nil),
			Sleep:   func(context.Context, time.Duration) error { return nil },
		}

		resp, err := WithRetry(attempt, policy)(context.Background(), Request{Retries: retries})
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != status {
			rt.Errorf("status = %d, want %d", resp.StatusCode, status)
		}

		want := 1
		if RetryOn(RetryableStatuses...)(status) {
			want = retries + 1
		}
		if calls != want {
			rt.Errorf("calls = %d, want %d (status %d, retries %d)", calls, want, status, retries)
		}
	})
}

// For any sub-second jitter and any retry budget, including budgets past the
// exponent cap, the backoff schedule never decreases.
func TestPropertyBackoffIsMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		attempts := rapid.IntRange(1, maxBackoffExponent+8).Draw(rt, "attempts")
		jitters := rapid.SliceOfN(rapid.Int64Range(0, int64(time.Second)-1), attempts, attempts).Draw(rt, "jitters")
		i := 0
		backoff := ExponentialBackoff(func() time.Duration {
			d := time.Duration(jitters[i])
			i++
			return d
		})

		prev := time.Duration(0)
		for attempt := 0; attempt < attempts; attempt++ {
			d := backoff(attempt)
			if d < prev {
				rt.Fatalf("backoff(%d) = %v < backoff(%d) = %v", attempt, d, attempt-1, prev)
			}
			if d < time.Duration(1<<min(attempt, maxBackoffExponent))*time.Second {
				rt.Fatalf("backoff(%d) = %v below its base", attempt, d)
			}
			prev = d
		}
	})
}

func TestExponentialBackoff_FlatPastCap(t *testing.T) {
	backoff := ExponentialBackoff(func() time.Duration { return time.Second - 1 })
	limit := time.Duration(1<<maxBackoffExponent) * time.Second
	for _, attempt := range []int{maxBackoffExponent, maxBackoffExponent + 1, 100} {
		if got := backoff(attempt); got != limit {
			t.Errorf("backoff(%d) = %v, want %v", attempt, got, limit)
		}
	}
	if got := backoff(maxBackoffExponent - 1); got >= limit {
		t.Errorf("backoff(%d) = %v, want below %v", maxBackoffExponent-1, got, limit)
	}
}

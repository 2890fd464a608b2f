package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastBackoff(retries int) Backoff {
	return Backoff{
		MaxRetries: retries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastBackoff(3).Retry(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestRetryRecoversAfterTransientFailures(t *testing.T) {
	calls := 0
	err := fastBackoff(3).Retry(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestRetryExhaustsAndReturnsLastError(t *testing.T) {
	final := errors.New("permanent failure")
	calls := 0

	err := fastBackoff(2).Retry(context.Background(), func(context.Context) error {
		calls++
		return final
	})

	if !errors.Is(err, final) {
		t.Errorf("err = %v, want the last attempt's error", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want MaxRetries+1 = 3", calls)
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := fastBackoff(5).Retry(ctx, func(context.Context) error {
		calls++
		return errors.New("should not matter")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("fn called %d times on a dead context, want 0", calls)
	}
}

func TestDelayForNeverExceedsMaxDelay(t *testing.T) {
	b := Backoff{
		MaxRetries: 5,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   2 * time.Second,
	}

	for attempt := 1; attempt <= b.MaxRetries; attempt++ {
		for i := 0; i < 200; i++ {
			d := b.delayFor(attempt)
			if d > b.MaxDelay {
				t.Fatalf("attempt %d: delay %v exceeds MaxDelay %v", attempt, d, b.MaxDelay)
			}
			if d <= 0 {
				t.Fatalf("attempt %d: non-positive delay %v", attempt, d)
			}
		}
	}
}

func TestRetryCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	b := Backoff{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}

	done := make(chan error, 1)
	go func() {
		done <- b.Retry(ctx, func(context.Context) error {
			return errors.New("always fails")
		})
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Retry did not observe cancellation while waiting")
	}
}

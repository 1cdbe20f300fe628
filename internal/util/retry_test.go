package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryErrWithContext(t *testing.T) {
	t.Run("succeeds first try", func(t *testing.T) {
		calls := 0
		err := RetryErrWithContext(context.Background(), 3, func(ctx context.Context) error {
			calls++
			return nil
		})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		err := RetryErrWithContext(context.Background(), 3, func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("returns last error after exhaustion", func(t *testing.T) {
		wantErr := errors.New("still broken")
		err := RetryErrWithContext(context.Background(), 2, func(ctx context.Context) error {
			return wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Errorf("error = %v, want %v", err, wantErr)
		}
	})

	t.Run("stops on canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := RetryErrWithContext(ctx, 5, func(ctx context.Context) error {
			calls++
			return errors.New("transient")
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if calls != 0 {
			t.Errorf("calls = %d, want 0", calls)
		}
	})
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("delays double between attempts", func(t *testing.T) {
		var stamps []time.Time
		_, err := RetryWithBackoff(context.Background(), 3, 10*time.Millisecond, func(ctx context.Context) (int, error) {
			stamps = append(stamps, time.Now())
			return 0, errors.New("transient")
		})
		if err == nil {
			t.Fatal("expected error after exhaustion")
		}
		if len(stamps) != 3 {
			t.Fatalf("attempts = %d, want 3", len(stamps))
		}
		first := stamps[1].Sub(stamps[0])
		second := stamps[2].Sub(stamps[1])
		if first < 10*time.Millisecond {
			t.Errorf("first delay = %v, want >= 10ms", first)
		}
		if second < 20*time.Millisecond {
			t.Errorf("second delay = %v, want >= 20ms", second)
		}
	})

	t.Run("no sleep after final failure", func(t *testing.T) {
		start := time.Now()
		_, _ = RetryWithBackoff(context.Background(), 1, time.Second, func(ctx context.Context) (int, error) {
			return 0, errors.New("transient")
		})
		if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
			t.Errorf("single attempt took %v, should not sleep", elapsed)
		}
	})

	t.Run("returns value on success", func(t *testing.T) {
		got, err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func(ctx context.Context) (string, error) {
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "ok" {
			t.Errorf("got %q, want %q", got, "ok")
		}
	})
}

func TestSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Sleep(ctx, 5*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Sleep did not return promptly on cancel: %v", elapsed)
	}
}

package do_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mhuusko5/do"
	"github.com/mhuusko5/do/backoff"
)

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	s := newTestScheduler(t)

	var attempts int64
	succeeded := make(chan struct{})

	err := s.Retry(s.Default(), do.RetryConfig{
		MaxAttempts: 5,
		Backoff:     backoff.NewConstant(time.Millisecond),
	}, func(_ context.Context) error {
		if atomic.AddInt64(&attempts, 1) < 3 {
			return errors.New("not yet")
		}
		close(succeeded)
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}

	select {
	case <-succeeded:
	case <-time.After(2 * time.Second):
		t.Fatal("work never succeeded")
	}
	if got := atomic.LoadInt64(&attempts); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	s := newTestScheduler(t)

	var attempts int64
	exhausted := make(chan error, 1)

	err := s.Retry(s.Default(), do.RetryConfig{
		MaxAttempts: 3,
		Backoff:     backoff.NewConstant(time.Millisecond),
		OnExhausted: func(_ context.Context, err error) {
			exhausted <- err
		},
	}, func(_ context.Context) error {
		atomic.AddInt64(&attempts, 1)
		return errors.New("always fails")
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}

	select {
	case lastErr := <-exhausted:
		if lastErr == nil || lastErr.Error() != "always fails" {
			t.Fatalf("expected last error, got %v", lastErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnExhausted never called")
	}
	if got := atomic.LoadInt64(&attempts); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestRetry_NoRetryOnSuccess(t *testing.T) {
	s := newTestScheduler(t)

	var attempts int64
	ran := make(chan struct{})

	err := s.Retry(s.Default(), do.RetryConfig{MaxAttempts: 5}, func(_ context.Context) error {
		atomic.AddInt64(&attempts, 1)
		close(ran)
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}

	<-ran
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt64(&attempts); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
}

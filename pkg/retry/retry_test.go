package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUntilStopsWhenDone(t *testing.T) {
	calls := 0
	attempts, err := Policy{Attempts: 4, Delay: time.Millisecond}.Until(context.Background(), func(context.Context) (bool, error) {
		calls++
		return calls == 2, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 || calls != 2 {
		t.Fatalf("expected 2 attempts, got %d/%d", attempts, calls)
	}
}

func TestUntilExhausts(t *testing.T) {
	attempts, err := Policy{Attempts: 4}.Until(context.Background(), func(context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", attempts)
	}
}

func TestUntilReturnsCheckError(t *testing.T) {
	boom := errors.New("redis down")
	attempts, err := Policy{Attempts: 3}.Until(context.Background(), func(context.Context) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected check error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("non-retryable error should stop immediately, got %d attempts", attempts)
	}
}

func TestOnceAndZeroPolicyRunSingleAttempt(t *testing.T) {
	for _, p := range []Policy{Once, {}} {
		attempts, err := p.Until(context.Background(), func(context.Context) (bool, error) { return false, nil })
		if !errors.Is(err, ErrExhausted) || attempts != 1 {
			t.Fatalf("expected single exhausted attempt, got %d (%v)", attempts, err)
		}
	}
}

func TestUntilHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Policy{Attempts: 3, Delay: time.Second}.Until(ctx, func(context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

package telegram

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_FirstRequestImmediate(t *testing.T) {
	rl := NewRateLimiter(10.0, 1)

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected immediate response within burst, got %v", elapsed)
	}
}

func TestRateLimiter_ContextCanceled(t *testing.T) {
	rl := NewRateLimiter(0.1, 1) // 1 request per 10 seconds

	// use up the burst
	_ = rl.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Error("expected error due to context timeout, got nil")
	}
}

func TestRateLimiter_FloodWaitBlocks(t *testing.T) {
	rl := NewRateLimiter(10.0, 1)
	rl.SetFloodWait(1)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := rl.Wait(ctx)
	elapsed := time.Since(start)

	if err != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded while flood wait active, got %v", err)
	}
	if elapsed < 150*time.Millisecond {
		t.Errorf("expected to block until context timeout, returned after %v", elapsed)
	}
}

func TestRateLimiter_Throttles(t *testing.T) {
	rl := NewRateLimiter(10.0, 1) // 100ms between requests after burst

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("3 requests at 10rps finished in %v, expected >= ~200ms", elapsed)
	}
}

func TestRateLimiter_ShorterFloodWaitDoesNotTrimLonger(t *testing.T) {
	rl := NewRateLimiter(10.0, 1)
	rl.SetFloodWait(2)
	rl.SetFloodWait(0)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("expected the longer cooldown to stay in effect, got %v", err)
	}
}

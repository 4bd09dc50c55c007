package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/finml/internal/infra/resilience"

	"github.com/sony/gobreaker"
)

func TestRetryWithBackoff(t *testing.T) {
	transient := errors.New("connection reset")
	rejected := errors.New("400 bad request")

	tests := []struct {
		name      string
		cfg       resilience.Config
		failFirst int   // calls that fail before fn succeeds; -1 fails forever
		failWith  error // error returned by failing calls
		wantCalls int
		wantErr   error
	}{
		{
			name:      "first call succeeds",
			cfg:       resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond},
			wantCalls: 1,
		},
		{
			name:      "recovers within budget",
			cfg:       resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond},
			failFirst: 2,
			failWith:  transient,
			wantCalls: 3,
		},
		{
			name:      "exhausts retries",
			cfg:       resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond},
			failFirst: -1,
			failWith:  transient,
			wantCalls: 3,
			wantErr:   transient,
		},
		{
			name:      "permanent error stops at once",
			cfg:       resilience.Config{MaxRetries: 5, InitialBackoff: time.Millisecond},
			failFirst: -1,
			failWith:  resilience.Permanent(rejected),
			wantCalls: 1,
			wantErr:   rejected,
		},
		{
			name:      "zero backoff",
			cfg:       resilience.Config{MaxRetries: 2},
			failFirst: -1,
			failWith:  transient,
			wantCalls: 3,
			wantErr:   transient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := resilience.RetryWithBackoff(context.Background(), tt.cfg, func() error {
				calls++
				if tt.failFirst < 0 || calls <= tt.failFirst {
					return tt.failWith
				}
				return nil
			})

			if tt.wantErr == nil && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var perm *resilience.PermanentError
			if errors.As(err, &perm) {
				t.Error("permanent wrapper should not leak to the caller")
			}
			if calls != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls)
			}
		})
	}
}

func TestRetryWithBackoff_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := resilience.RetryWithBackoff(ctx, resilience.Config{MaxRetries: 5, InitialBackoff: time.Second}, func() error {
		calls++
		return errors.New("unreachable")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no calls, got %d", calls)
	}
}

func TestRetryWithBackoff_CancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := resilience.RetryWithBackoff(ctx, resilience.Config{MaxRetries: 3, InitialBackoff: time.Minute}, func() error {
		return errors.New("down")
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("expected backoff wait to be interrupted")
	}
}

func TestCircuitBreaker(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want gobreaker.State
	}{
		{name: "client errors keep it closed", err: resilience.Permanent(errors.New("422")), want: gobreaker.StateClosed},
		{name: "transport errors trip it", err: errors.New("connection refused"), want: gobreaker.StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := resilience.NewCircuitBreaker("test", nil)
			for i := 0; i < 10; i++ {
				_, _ = cb.Execute(func() (any, error) { return nil, tt.err })
			}
			if cb.State() != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, cb.State())
			}
		})
	}
}

func TestBulkhead(t *testing.T) {
	bh := resilience.NewBulkhead(2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := bh.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}

	full, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := bh.Do(full, func() error {
		t.Error("fn must not run without a slot")
		return nil
	}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while full, got %v", err)
	}

	bh.Release()
	ran := false
	if err := bh.Do(ctx, func() error { ran = true; return nil }); err != nil || !ran {
		t.Fatalf("expected fn to run after release, err=%v", err)
	}

	// Do released its slot, so one more caller fits.
	if err := bh.Acquire(ctx); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
}

func TestNewBulkhead_NonPositive(t *testing.T) {
	bh := resilience.NewBulkhead(0)
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected one slot, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := bh.Acquire(ctx); err == nil {
		t.Fatal("expected a single slot")
	}
}

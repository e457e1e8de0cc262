package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yumozi/llm-gm/internal/resilience"
)

func fastConfig(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		Name:           "test",
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
	}
}

func TestExecuteSucceedsFirstTry(t *testing.T) {
	r := resilience.NewRetrier(fastConfig(3))
	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	r := resilience.NewRetrier(fastConfig(3))
	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	r := resilience.NewRetrier(fastConfig(2))
	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})
	if !errors.Is(err, resilience.ErrRetriesExhausted) {
		t.Fatalf("err = %v, want ErrRetriesExhausted", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestExecuteStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := resilience.NewRetrier(fastConfig(5))
	calls := 0
	err := r.Execute(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("boom")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry after cancel)", calls)
	}
}

func TestExecuteWithResult(t *testing.T) {
	r := resilience.NewRetrier(fastConfig(3))
	calls := 0
	got, err := resilience.ExecuteWithResult(context.Background(), r, func(ctx context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if got != 42 {
		t.Errorf("result = %d, want 42", got)
	}
}

func TestExecuteWithResultZeroOnFailure(t *testing.T) {
	r := resilience.NewRetrier(fastConfig(1))
	got, err := resilience.ExecuteWithResult(context.Background(), r, func(ctx context.Context) (string, error) {
		return "partial", errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got != "" {
		t.Errorf("result = %q, want zero value", got)
	}
}

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{
			Retryable:     errors.Is(err, errTemp),
			RecordFailure: true,
		}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errTemp := errors.New("temporary")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errTemp
		}, classifier)
		if !errors.Is(err, errTemp) {
			t.Fatalf("expected temporary error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
}

func TestDefaultConfigDoesNotRetry(t *testing.T) {
	exec := NewExecutor(Config{BreakerEnabled: false})

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "dictionary.fetch", func(context.Context) error {
		attempts++
		return errTemp
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if !errors.Is(err, errTemp) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt by default, got %d", attempts)
	}
}

func TestStatesAndStateChangeHook(t *testing.T) {
	var changes []string
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		BreakerEnabled:          true,
		BreakerMinRequests:      1,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
		OnStateChange: func(operation, state string) {
			changes = append(changes, operation+":"+state)
		},
	})

	_ = exec.Execute(context.Background(), "dictionary.fetch", func(context.Context) error {
		return errors.New("boom")
	}, nil)

	status := exec.States()["dictionary.fetch"]
	if status.State != gobreaker.StateOpen.String() || status.ConsecutiveFailures != 0 {
		t.Fatalf("expected open breaker with counts reset on trip, got %+v", status)
	}
	if len(changes) != 1 || changes[0] != "dictionary.fetch:open" {
		t.Fatalf("unexpected state changes %v", changes)
	}
}

func TestOperationPolicyOverridesDefaults(t *testing.T) {
	exec := NewExecutor(Config{
		BreakerEnabled: false,
		Operations: map[string]Policy{
			"nats.publish": {MaxAttempts: 3, InitialBackoff: time.Millisecond},
		},
	})

	retryable := func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	errTemp := errors.New("temporary")

	publishAttempts := 0
	_ = exec.Execute(context.Background(), "nats.publish", func(context.Context) error {
		publishAttempts++
		return errTemp
	}, retryable)
	if publishAttempts != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", publishAttempts)
	}

	fetchAttempts := 0
	_ = exec.Execute(context.Background(), "dictionary.fetch", func(context.Context) error {
		fetchAttempts++
		return errTemp
	}, retryable)
	if fetchAttempts != 1 {
		t.Fatalf("expected 1 fetch attempt, got %d", fetchAttempts)
	}
}

func TestPolicyDefaultsFillZeroFields(t *testing.T) {
	cfg := Config{
		RetryInitialBackoff: 10 * time.Millisecond,
		Operations:          map[string]Policy{"op": {MaxAttempts: 2}},
	}.normalize()

	p := cfg.policyFor("op")
	if p.MaxAttempts != 2 || p.InitialBackoff != 10*time.Millisecond || p.MaxBackoff != 400*time.Millisecond || p.Multiplier != 2 {
		t.Fatalf("unexpected policy %+v", p)
	}
	if got := cfg.policyFor("other"); got.MaxAttempts != 1 {
		t.Fatalf("expected default single attempt, got %+v", got)
	}
}

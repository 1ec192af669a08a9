package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestFallbackGroup_PrimarySuccess(t *testing.T) {
	fg := NewFallbackGroup("groq", "groq", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("openai", "openai")

	var called string
	err := fg.Execute(func(v string) error {
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "groq" {
		t.Fatalf("called = %q, want groq", called)
	}
}

func TestFallbackGroup_PrimaryFailFallbackSuccess(t *testing.T) {
	fg := NewFallbackGroup("groq", "groq", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("openai", "openai")

	var called string
	err := fg.Execute(func(v string) error {
		if v == "groq" {
			return errProviderDown
		}
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "openai" {
		t.Fatalf("called = %q, want openai", called)
	}
}

func TestFallbackGroup_AllFail(t *testing.T) {
	fg := NewFallbackGroup("groq", "groq", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("openai", "openai")

	err := fg.Execute(func(v string) error {
		return errProviderDown
	})
	if err == nil {
		t.Fatal("expected error when every provider fails")
	}
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_CircuitBreakerSkipsOpenProvider(t *testing.T) {
	fg := NewFallbackGroup("groq", "groq", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
		},
	})
	fg.AddFallback("openai", "openai")

	// Fail the primary enough to open its breaker.
	for i := 0; i < 2; i++ {
		_ = fg.Execute(func(v string) error {
			if v == "groq" {
				return errProviderDown
			}
			return nil
		})
	}

	// The primary's breaker is open now; calls go straight to the fallback.
	var called string
	err := fg.Execute(func(v string) error {
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "openai" {
		t.Fatalf("called = %q, want openai (groq circuit should be open)", called)
	}
}

func TestExecuteWithResult_Success(t *testing.T) {
	fg := NewFallbackGroup("llama-3.3-70b-versatile", "groq", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("openai", "gpt-4o-mini")

	result, err := ExecuteWithResult(fg, func(model string) (string, error) {
		return "completion from " + model, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "completion from llama-3.3-70b-versatile" {
		t.Fatalf("result = %q, want the primary's completion", result)
	}
}

func TestExecuteWithResult_Failover(t *testing.T) {
	fg := NewFallbackGroup("llama-3.3-70b-versatile", "groq", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("openai", "gpt-4o-mini")

	result, err := ExecuteWithResult(fg, func(model string) (string, error) {
		if model == "llama-3.3-70b-versatile" {
			return "", errProviderDown
		}
		return "completion from " + model, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "completion from gpt-4o-mini" {
		t.Fatalf("result = %q, want the fallback's completion", result)
	}
}

func TestExecuteWithResult_AllFail(t *testing.T) {
	fg := NewFallbackGroup("llama-3.3-70b-versatile", "groq", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	_, err := ExecuteWithResult(fg, func(model string) (string, error) {
		return "", errProviderDown
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

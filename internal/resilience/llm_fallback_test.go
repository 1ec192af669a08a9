package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/pcurran/diarist/pkg/provider/llm"
	llmmock "github.com/pcurran/diarist/pkg/provider/llm/mock"
	"github.com/pcurran/diarist/pkg/types"
)

func TestLLMFallbackComplete(t *testing.T) {
	t.Parallel()

	req := llm.CompletionRequest{
		Messages: []types.Message{{Role: "user", Content: "hello"}},
	}

	t.Run("primary healthy", func(t *testing.T) {
		t.Parallel()
		primary := &llmmock.Provider{
			CompleteResponse: &llm.CompletionResponse{Content: "from primary"},
		}
		secondary := &llmmock.Provider{
			CompleteResponse: &llm.CompletionResponse{Content: "from secondary"},
		}
		f := NewLLMFallback(primary, "groq", FallbackConfig{})
		f.AddFallback("ollama", secondary)

		resp, err := f.Complete(context.Background(), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Content != "from primary" {
			t.Fatalf("want primary response, got %q", resp.Content)
		}
		if len(secondary.CompleteCalls) != 0 {
			t.Fatal("fallback must not be called while the primary is healthy")
		}
	})

	t.Run("primary failure falls through", func(t *testing.T) {
		t.Parallel()
		primary := &llmmock.Provider{CompleteErr: errors.New("rate limited")}
		secondary := &llmmock.Provider{
			CompleteResponse: &llm.CompletionResponse{Content: "from secondary"},
		}
		f := NewLLMFallback(primary, "groq", FallbackConfig{})
		f.AddFallback("ollama", secondary)

		resp, err := f.Complete(context.Background(), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Content != "from secondary" {
			t.Fatalf("want fallback response, got %q", resp.Content)
		}
	})

	t.Run("all providers failing", func(t *testing.T) {
		t.Parallel()
		primary := &llmmock.Provider{CompleteErr: errors.New("down")}
		secondary := &llmmock.Provider{CompleteErr: errors.New("also down")}
		f := NewLLMFallback(primary, "groq", FallbackConfig{})
		f.AddFallback("ollama", secondary)

		if _, err := f.Complete(context.Background(), req); !errors.Is(err, ErrAllFailed) {
			t.Fatalf("want ErrAllFailed, got %v", err)
		}
	})

	t.Run("open primary circuit skips straight to fallback", func(t *testing.T) {
		t.Parallel()
		primary := &llmmock.Provider{CompleteErr: errors.New("down")}
		secondary := &llmmock.Provider{
			CompleteResponse: &llm.CompletionResponse{Content: "from secondary"},
		}
		f := NewLLMFallback(primary, "groq", FallbackConfig{
			CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2},
		})
		f.AddFallback("ollama", secondary)

		// Trip the primary's breaker.
		for range 3 {
			if _, err := f.Complete(context.Background(), req); err != nil {
				t.Fatalf("fallback should have answered: %v", err)
			}
		}

		calls := len(primary.CompleteCalls)
		if _, err := f.Complete(context.Background(), req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(primary.CompleteCalls) != calls {
			t.Fatal("open breaker must skip the primary entirely")
		}
	})
}

func TestLLMFallbackCountTokens(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{CountTokensErr: errors.New("no tokenizer")}
	secondary := &llmmock.Provider{TokenCount: 42}
	f := NewLLMFallback(primary, "groq", FallbackConfig{})
	f.AddFallback("ollama", secondary)

	n, err := f.CountTokens([]types.Message{{Role: "user", Content: "count me"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 42 {
		t.Fatalf("want 42 tokens, got %d", n)
	}
}

func TestLLMFallbackCapabilities(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{
		ModelCapabilities: types.ModelCapabilities{SupportsToolCalling: true},
	}
	f := NewLLMFallback(primary, "groq", FallbackConfig{})

	if !f.Capabilities().SupportsToolCalling {
		t.Fatal("capabilities must come from the primary")
	}
}

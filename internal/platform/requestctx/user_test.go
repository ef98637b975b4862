package requestctx

import (
	"context"
	"testing"
)

func TestUsernameFromContextRoundTrip(t *testing.T) {
	ctx := WithUsername(context.Background(), "stockroom")
	got := UsernameFromContext(ctx)
	if got != "stockroom" {
		t.Fatalf("UsernameFromContext = %q, want %q", got, "stockroom")
	}
}

func TestUsernameFromContextEmpty(t *testing.T) {
	got := UsernameFromContext(context.Background())
	if got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestUsernameFromContextNil(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract.
	got := UsernameFromContext(nil)
	if got != "" {
		t.Fatalf("expected empty string for nil context, got %q", got)
	}
}

func TestWithUsernameNilContext(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract.
	ctx := WithUsername(nil, "night-shift")
	if ctx == nil {
		t.Fatalf("expected non-nil context")
	}
	if got := UsernameFromContext(ctx); got != "night-shift" {
		t.Fatalf("UsernameFromContext = %q, want %q", got, "night-shift")
	}
}

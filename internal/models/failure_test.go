package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestFailure_Error(t *testing.T) {
	plain := NewFailure(FailureProtocol, "HTTP 503")
	if got := plain.Error(); got != "protocol: HTTP 503" {
		t.Errorf("Error() = %q, want %q", got, "protocol: HTTP 503")
	}

	wrapped := WrapFailure(FailureNetwork, "connection failed", errors.New("refused"))
	if got := wrapped.Error(); got != "network: connection failed: refused" {
		t.Errorf("Error() = %q, want %q", got, "network: connection failed: refused")
	}
}

func TestFailure_Unwrap(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	wrapped := fmt.Errorf("fetch feed: %w", WrapFailure(FailureNetwork, "connection failed", inner))

	if !errors.Is(wrapped, inner) {
		t.Error("errors.Is should reach the innermost error through the failure")
	}
	var f *Failure
	if !errors.As(wrapped, &f) {
		t.Fatal("errors.As should find the failure in the chain")
	}
	if f.Kind != FailureNetwork {
		t.Errorf("Kind = %q, want %q", f.Kind, FailureNetwork)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"direct failure", NewFailure(FailureRender, "boom"), FailureRender},
		{"wrapped failure", fmt.Errorf("outer: %w", NewFailure(FailureExtract, "x")), FailureExtract},
		{"unclassified defaults to network", errors.New("mystery"), FailureNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetailOf(t *testing.T) {
	if got := DetailOf(Failuref(FailureProtocol, "HTTP %d", 429)); got != "HTTP 429" {
		t.Errorf("DetailOf() = %q, want %q", got, "HTTP 429")
	}
	if got := DetailOf(errors.New("raw error")); got != "raw error" {
		t.Errorf("DetailOf() = %q, want %q", got, "raw error")
	}
	if got := DetailOf(nil); got != "" {
		t.Errorf("DetailOf(nil) = %q, want empty", got)
	}
}

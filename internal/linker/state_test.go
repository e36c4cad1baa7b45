package linker

import (
	"errors"
	"testing"

	"github.com/aikosys/patronlink/internal/shared"
)

func TestCompositeState(t *testing.T) {
	t.Run("Encode", func(t *testing.T) {
		state := CompositeState{Correlation: "token123", DiscordCode: "code456"}
		if got := state.Encode(); got != "token123 code456" {
			t.Errorf("expected 'token123 code456', got %q", got)
		}
	})

	t.Run("Parse", func(t *testing.T) {
		tests := []struct {
			name        string
			raw         string
			correlation string
			code        string
			wantErr     bool
		}{
			{"valid", "token123 code456", "token123", "code456", false},
			{"no delimiter", "token123code456", "", "", true},
			{"empty", "", "", "", true},
			{"empty sides", " ", "", "", false},
			{"splits on first space only", "token a b", "token", "a b", false},
			{"leading space", " code", "", "code", false},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				state, err := ParseCompositeState(tc.raw)
				if tc.wantErr {
					if err == nil {
						t.Fatal("expected error, got nil")
					}
					if !errors.Is(err, shared.ErrMalformedState) {
						t.Errorf("expected ErrMalformedState, got %v", err)
					}
					return
				}
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if state.Correlation != tc.correlation {
					t.Errorf("expected correlation %q, got %q", tc.correlation, state.Correlation)
				}
				if state.DiscordCode != tc.code {
					t.Errorf("expected code %q, got %q", tc.code, state.DiscordCode)
				}
			})
		}
	})

	t.Run("Round Trip", func(t *testing.T) {
		original := CompositeState{Correlation: "abc-def-123", DiscordCode: "XyZ.901"}
		parsed, err := ParseCompositeState(original.Encode())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if parsed != original {
			t.Errorf("round trip mismatch: %+v != %+v", parsed, original)
		}
	})
}

package application

import (
	"context"
	"errors"
	"testing"
)

func TestSessionRegistry(t *testing.T) {
	t.Parallel()

	t.Run("issues distinct tokens resolving to their principals", func(t *testing.T) {
		t.Parallel()
		registry := NewSessionRegistry()

		alice := Principal{UserID: 1, StudentID: "1001", Name: "Alice"}
		bob := Principal{UserID: 2, StudentID: "1002", Name: "Bob", IsAdmin: true}

		aliceToken := registry.Issue(alice)
		bobToken := registry.Issue(bob)
		if aliceToken == "" || aliceToken == bobToken {
			t.Fatalf("expected distinct non-empty tokens, got %q and %q", aliceToken, bobToken)
		}

		resolved, err := registry.Resolve(aliceToken)
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if resolved != alice {
			t.Fatalf("expected %+v, got %+v", alice, resolved)
		}

		resolved, err = registry.ValidateSession(context.Background(), bobToken)
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if !resolved.IsAdmin {
			t.Fatalf("expected admin principal, got %+v", resolved)
		}
	})

	t.Run("rejects unknown tokens", func(t *testing.T) {
		t.Parallel()
		registry := NewSessionRegistry()

		if _, err := registry.Resolve("no-such-token"); !errors.Is(err, ErrAuthenticationRequired) {
			t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
		}
	})

	t.Run("each login gets its own session", func(t *testing.T) {
		t.Parallel()
		registry := NewSessionRegistry()
		alice := Principal{UserID: 1, StudentID: "1001", Name: "Alice"}

		first := registry.Issue(alice)
		second := registry.Issue(alice)
		if first == second {
			t.Fatal("expected a fresh token per login")
		}
		for _, token := range []string{first, second} {
			if _, err := registry.Resolve(token); err != nil {
				t.Fatalf("expected both sessions valid, got %v", err)
			}
		}
	})
}

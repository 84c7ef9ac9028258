package clock

import (
	"testing"
	"time"
)

func TestClock_Now(t *testing.T) {
	real := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	virtual := time.Date(2024, time.June, 10, 18, 0, 0, 0, time.UTC)

	t.Run("follows the real clock by default", func(t *testing.T) {
		c := NewWithReal(func() time.Time { return real })

		if got := c.Now(); !got.Equal(real) {
			t.Fatalf("expected real time %v, got %v", real, got)
		}
	})

	t.Run("returns the virtual instant in test mode", func(t *testing.T) {
		c := NewWithReal(func() time.Time { return real })
		c.SetTestMode(true)
		c.SetVirtual(virtual)

		if got := c.Now(); !got.Equal(virtual) {
			t.Fatalf("expected virtual time %v, got %v", virtual, got)
		}
		if got := c.Now(); !got.Equal(virtual) {
			t.Fatalf("expected virtual time to stay pinned, got %v", got)
		}
	})

	t.Run("ignores the virtual instant while test mode is disabled", func(t *testing.T) {
		c := NewWithReal(func() time.Time { return real })
		c.SetVirtual(virtual)

		if got := c.Now(); !got.Equal(real) {
			t.Fatalf("expected real time %v, got %v", real, got)
		}
	})

	t.Run("falls back to the real clock when no virtual instant is set", func(t *testing.T) {
		c := NewWithReal(func() time.Time { return real })
		c.SetTestMode(true)

		if got := c.Now(); !got.Equal(real) {
			t.Fatalf("expected real time %v, got %v", real, got)
		}
	})

	t.Run("Real bypasses the override", func(t *testing.T) {
		c := NewWithReal(func() time.Time { return real })
		c.SetTestMode(true)
		c.SetVirtual(virtual)

		if got := c.Real(); !got.Equal(real) {
			t.Fatalf("expected real time %v, got %v", real, got)
		}
	})
}

func TestClock_State(t *testing.T) {
	virtual := time.Date(2024, time.June, 10, 18, 0, 0, 0, time.UTC)

	c := New()
	enabled, stored := c.State()
	if enabled || !stored.IsZero() {
		t.Fatalf("expected pristine state, got enabled=%v virtual=%v", enabled, stored)
	}

	c.SetTestMode(true)
	c.SetVirtual(virtual)

	enabled, stored = c.State()
	if !enabled {
		t.Fatal("expected test mode to be enabled")
	}
	if !stored.Equal(virtual) {
		t.Fatalf("expected stored virtual %v, got %v", virtual, stored)
	}
}

package timeutil

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	got := c.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("RealClock.Now() = %v, expected between %v and %v", got, before, after)
	}
}

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}

	c.Advance(90 * time.Second)
	want := start.Add(90 * time.Second)
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("after Advance, Now() = %v, want %v", got, want)
	}

	if got := c.Since(start); got != 90*time.Second {
		t.Errorf("Since(start) = %v, want 90s", got)
	}
}

func TestMockTickerFires(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)
	ticker := c.NewTicker(time.Minute)
	defer ticker.Stop()

	select {
	case <-ticker.C():
		t.Fatal("ticker fired before Advance")
	default:
	}

	c.Advance(time.Minute)

	select {
	case tick := <-ticker.C():
		if !tick.Equal(start.Add(time.Minute)) {
			t.Errorf("tick time = %v, want %v", tick, start.Add(time.Minute))
		}
	default:
		t.Fatal("expected a tick after Advance")
	}
}

func TestMockTickerStopped(t *testing.T) {
	c := NewMockClock(time.Now())
	ticker := c.NewTicker(time.Second)
	ticker.Stop()

	c.Advance(5 * time.Second)

	select {
	case <-ticker.C():
		t.Fatal("stopped ticker should not fire")
	default:
	}
}

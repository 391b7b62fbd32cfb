package syncer

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !r.Allow(now) {
			t.Fatalf("Expected request %d to be allowed", i+1)
		}
		r.Record(now)
	}
	if r.Allow(now) {
		t.Error("Expected 4th request inside the window to be denied")
	}
}

func TestRateLimiterSlidesWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewRateLimiter(2, time.Minute)

	r.Record(now)
	r.Record(now.Add(30 * time.Second))

	if r.Allow(now.Add(45 * time.Second)) {
		t.Error("Expected denial while both requests are in the window")
	}
	// first request falls out after 60s
	if !r.Allow(now.Add(61 * time.Second)) {
		t.Error("Expected allowance after the oldest request expired")
	}
}

func TestRateLimiterResetTime(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewRateLimiter(2, time.Minute)

	if got := r.ResetTime(now); !got.Equal(now) {
		t.Errorf("Expected unsaturated reset time to be now, got %v", got)
	}

	r.Record(now)
	r.Record(now.Add(10 * time.Second))

	expected := now.Add(time.Minute)
	if got := r.ResetTime(now.Add(20 * time.Second)); !got.Equal(expected) {
		t.Errorf("Expected reset at %v, got %v", expected, got)
	}
}

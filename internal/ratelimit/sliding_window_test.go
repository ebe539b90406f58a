package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterSlidesWindow(t *testing.T) {
	l := NewLimiter(2, time.Minute)
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	if res := l.Allow("10.0.0.1", start); !res.Allowed || res.Remaining != 1 {
		t.Fatalf("first request: %+v", res)
	}
	if res := l.Allow("10.0.0.1", start.Add(10*time.Second)); !res.Allowed || res.Remaining != 0 {
		t.Fatalf("second request: %+v", res)
	}
	res := l.Allow("10.0.0.1", start.Add(20*time.Second))
	if res.Allowed {
		t.Fatalf("third request allowed: %+v", res)
	}
	if !res.ResetAt.Equal(start.Add(time.Minute)) {
		t.Fatalf("reset at %s", res.ResetAt)
	}
	if res := l.Allow("10.0.0.2", start.Add(20*time.Second)); !res.Allowed {
		t.Fatalf("other key throttled: %+v", res)
	}
	if res := l.Allow("10.0.0.1", start.Add(61*time.Second)); !res.Allowed {
		t.Fatalf("request after window throttled: %+v", res)
	}
}

func TestLimiterDropsIdleKeys(t *testing.T) {
	l := NewLimiter(5, time.Second)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l.Allow("a", now)
	l.Allow("b", now)
	if l.Keys() != 2 {
		t.Fatalf("keys = %d", l.Keys())
	}
	l.Allow("a", now.Add(2*time.Second))
	if l.Keys() != 2 {
		t.Fatalf("keys = %d, want a refreshed and b kept until touched", l.Keys())
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !l.Allow("x", time.Now()).Allowed {
			t.Fatalf("disabled limiter throttled request %d", i)
		}
	}
}

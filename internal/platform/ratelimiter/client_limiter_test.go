package ratelimiter

import (
	"testing"
	"time"
)

func TestAllowWithinBurst(t *testing.T) {
	l := New(1, 3, time.Minute)
	now := time.Now()
	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1", now) {
			t.Fatalf("request %d within burst must be allowed", i)
		}
	}
	if l.Allow("10.0.0.1", now) {
		t.Fatal("request beyond burst must be rejected")
	}
}

func TestAllowIsPerKey(t *testing.T) {
	l := New(1, 1, time.Minute)
	now := time.Now()
	if !l.Allow("a", now) {
		t.Fatal("first request for key a must pass")
	}
	if !l.Allow("b", now) {
		t.Fatal("key b has its own bucket")
	}
	if l.Allow("a", now) {
		t.Fatal("key a burst is spent")
	}
}

func TestNilAndBlankKeyAlwaysAllow(t *testing.T) {
	var l *ClientLimiter
	if !l.Allow("any", time.Now()) {
		t.Fatal("nil limiter must allow")
	}
	if !New(1, 1, time.Minute).Allow("  ", time.Now()) {
		t.Fatal("blank key must allow")
	}
}

func TestInvalidArgsDisableLimiting(t *testing.T) {
	if New(0, 5, time.Minute) != nil {
		t.Fatal("zero rps must produce nil limiter")
	}
	if New(5, 0, time.Minute) != nil {
		t.Fatal("zero burst must produce nil limiter")
	}
}

func TestIdleBucketsSwept(t *testing.T) {
	l := New(1, 1, 10*time.Millisecond)
	base := time.Now()
	l.Allow("old", base)
	l.Allow("old2", base)

	// Far enough in the future that both buckets are idle.
	l.Allow("new", base.Add(50*time.Millisecond))

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.buckets["old"]; ok {
		t.Fatal("idle bucket must be swept")
	}
	if _, ok := l.buckets["new"]; !ok {
		t.Fatal("active bucket must survive the sweep")
	}
}

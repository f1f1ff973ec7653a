package httpmiddleware

import (
	"testing"
	"time"
)

func TestAllowExhaustsAndRefills(t *testing.T) {
	l := NewSimpleTokenBucket(2, 60)
	now := time.Now()

	if !l.allow("1.2.3.4", now) {
		t.Fatal("first request denied")
	}
	if !l.allow("1.2.3.4", now) {
		t.Fatal("second request denied")
	}
	if l.allow("1.2.3.4", now) {
		t.Fatal("third request allowed with empty bucket")
	}

	// 60/min refills one token per second.
	if !l.allow("1.2.3.4", now.Add(time.Second)) {
		t.Fatal("refilled token not granted")
	}
}

func TestAllowIsolatesKeys(t *testing.T) {
	l := NewSimpleTokenBucket(1, 60)
	now := time.Now()

	if !l.allow("1.1.1.1", now) {
		t.Fatal("first key denied")
	}
	if !l.allow("2.2.2.2", now) {
		t.Fatal("second key should have its own bucket")
	}
}

func TestSweepDropsIdleBuckets(t *testing.T) {
	l := NewSimpleTokenBucket(1, 60)
	now := time.Now()

	l.allow("old", now.Add(-time.Hour))
	l.sweepAt = now.Add(-time.Minute)
	l.allow("fresh", now)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.state["old"]; ok {
		t.Error("idle bucket not swept")
	}
	if _, ok := l.state["fresh"]; !ok {
		t.Error("fresh bucket swept")
	}
}

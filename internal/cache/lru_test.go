package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRUCache_TTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](3, time.Minute).WithClock(clock.now)

	c.Set("k", "v")
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("Get() = %q, %v; want v, true", v, ok)
	}

	clock.advance(61 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire after TTL")
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0 after expired read", c.Size())
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[string](3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Get("key1") // key2 becomes least recently used
	c.Set("key4", "value4")

	if _, found := c.Get("key2"); found {
		t.Error("expected key2 to be evicted")
	}
	for _, k := range []string{"key1", "key3", "key4"} {
		if _, found := c.Get(k); !found {
			t.Errorf("expected %s to be present", k)
		}
	}
	if c.Size() != 3 {
		t.Errorf("Size() = %d, want 3", c.Size())
	}
}

func TestLRUCache_UpdateKeepsExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute).WithClock(clock.now)
	inc := func(old int, _ bool) int { return old + 1 }

	if got := c.Update("ip", inc); got != 1 {
		t.Fatalf("Update() = %d, want 1", got)
	}
	clock.advance(40 * time.Second)
	if got := c.Update("ip", inc); got != 2 {
		t.Fatalf("Update() = %d, want 2", got)
	}
	clock.advance(30 * time.Second)
	if got := c.Update("ip", inc); got != 1 {
		t.Errorf("Update() after original expiry = %d, want 1", got)
	}
}

func TestManager_CleanAll(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	a := NewLRUCache[int](10, time.Minute).WithClock(clock.now)
	b := NewLRUCache[int](10, time.Hour).WithClock(clock.now)
	a.Set("x", 1)
	a.Set("y", 2)
	b.Set("z", 3)

	m := NewManager(a)
	m.Register(b)
	clock.advance(2 * time.Minute)

	if n := m.CleanAll(); n != 2 {
		t.Errorf("CleanAll() = %d, want 2", n)
	}
	if b.Size() != 1 {
		t.Errorf("long-lived cache lost entries: size %d", b.Size())
	}
}

func TestManager_RunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewManager().Run(ctx, time.Millisecond) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

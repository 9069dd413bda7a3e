package cache

import (
	"testing"
	"time"

	"github.com/use-agent/agentlens/models"
)

func target(url, mode string) models.Target {
	t, _ := models.NewTarget(url, mode)
	return t
}

func TestKey_DistinguishesURLAndMode(t *testing.T) {
	a := Key(target("https://example.com/", "full"))
	b := Key(target("https://example.com/", "stealth"))
	c := Key(target("https://example.org/", "full"))

	if a == b {
		t.Error("same URL with different modes must not share a key")
	}
	if a == c {
		t.Error("different URLs must not share a key")
	}
	if a != Key(target("https://example.com/", "full")) {
		t.Error("key is not deterministic")
	}
}

func TestCache_GetSet(t *testing.T) {
	c := New(4, time.Minute)
	key := Key(target("https://example.com/", "full"))

	if _, ok := c.Get(key); ok {
		t.Fatal("empty cache reported a hit")
	}

	want := &models.Report{Target: target("https://example.com/", "full")}
	c.Set(key, want)

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != want {
		t.Error("cache returned a different report")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New(4, 10*time.Millisecond)
	key := Key(target("https://example.com/", "full"))
	c.Set(key, &models.Report{})

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Error("expired entry served as fresh")
	}
}

func TestCache_CapacityEviction(t *testing.T) {
	c := New(2, time.Minute)
	c.Set("a", &models.Report{})
	c.Set("b", &models.Report{})
	c.Set("c", &models.Report{})

	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.store) > 2 {
		t.Errorf("store holds %d entries, capacity is 2", len(c.store))
	}
}

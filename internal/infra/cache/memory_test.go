package cache

import (
	"testing"
	"time"
)

func TestMemoryCooldownReserve(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCooldown()
	c.now = func() time.Time { return now }

	ok, err := c.Reserve("user:42:top", 5*time.Second)
	if err != nil || !ok {
		t.Fatalf("first reserve: ok=%v err=%v", ok, err)
	}

	ok, _ = c.Reserve("user:42:top", 5*time.Second)
	if ok {
		t.Fatal("second reserve inside window must be denied")
	}

	ok, _ = c.Reserve("user:42:nhentai", 5*time.Second)
	if !ok {
		t.Fatal("different command must not share the cooldown")
	}

	now = now.Add(6 * time.Second)
	ok, _ = c.Reserve("user:42:top", 5*time.Second)
	if !ok {
		t.Fatal("reserve after window must be allowed")
	}
}

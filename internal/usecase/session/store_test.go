package session

import (
	"sync/atomic"
	"testing"
	"time"
)

type flow struct {
	Step string
}

func TestStorePutGetDelete(t *testing.T) {
	s := NewStore[flow](time.Minute, nil)
	s.Put("42", flow{Step: "waiting_message"})

	got, ok := s.Get("42")
	if !ok || got.Step != "waiting_message" {
		t.Fatalf("unexpected session: %+v ok=%v", got, ok)
	}

	s.Delete("42")
	if _, ok := s.Get("42"); ok {
		t.Fatal("session must be gone after Delete")
	}
}

func TestStoreExpiryNotifiesOnce(t *testing.T) {
	var fired atomic.Int32
	s := NewStore[flow](20*time.Millisecond, func(key string, _ flow) {
		fired.Add(1)
	})
	s.Put("42", flow{Step: "waiting_message"})

	time.Sleep(120 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Fatalf("expected exactly one expiry callback, got %d", n)
	}
	if s.Len() != 0 {
		t.Fatal("expired session must be removed")
	}
}

func TestStoreOverwriteDiscardsOldTimer(t *testing.T) {
	var fired atomic.Int32
	s := NewStore[flow](30*time.Millisecond, func(key string, _ flow) {
		fired.Add(1)
	})
	s.Put("42", flow{Step: "first"})
	s.Put("42", flow{Step: "second"}) // last writer wins

	got, _ := s.Get("42")
	if got.Step != "second" {
		t.Fatalf("expected overwrite, got %+v", got)
	}

	time.Sleep(120 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Fatalf("old timer must not double-fire: got %d callbacks", n)
	}
}

func TestStoreDeleteSuppressesEviction(t *testing.T) {
	var fired atomic.Int32
	s := NewStore[flow](20*time.Millisecond, func(key string, _ flow) {
		fired.Add(1)
	})
	s.Put("42", flow{Step: "waiting"})
	s.Delete("42")

	time.Sleep(80 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Fatalf("eviction callback must not run after Delete, got %d", n)
	}
}

func TestStoreUpdateSurvivesFiredTimer(t *testing.T) {
	// An Update that lands just as the old timer fires must still reset the
	// TTL: the stale timer may only evict the entry it was armed for.
	var fired atomic.Int32
	s := NewStore[flow](5*time.Millisecond, func(key string, _ flow) {
		fired.Add(1)
	})

	for i := 0; i < 20; i++ {
		s.Put("42", flow{Step: "waiting"})
		time.Sleep(5 * time.Millisecond)
		if !s.Update("42", func(v flow) flow { v.Step = "refreshed"; return v }) {
			continue // the timer won the race outright, try again
		}
		time.Sleep(time.Millisecond)
		got, ok := s.Get("42")
		if !ok {
			t.Fatalf("iteration %d: session evicted right after a successful Update", i)
		}
		if got.Step != "refreshed" {
			t.Fatalf("iteration %d: session = %+v", i, got)
		}
		s.Delete("42")
	}
}

func TestStoreTouchExtends(t *testing.T) {
	var fired atomic.Int32
	s := NewStore[flow](60*time.Millisecond, func(key string, _ flow) {
		fired.Add(1)
	})
	s.Put("42", flow{Step: "waiting"})

	for i := 0; i < 3; i++ {
		time.Sleep(30 * time.Millisecond)
		if !s.Touch("42") {
			t.Fatal("touch must find the live session")
		}
	}
	if n := fired.Load(); n != 0 {
		t.Fatalf("session must not expire while active, got %d callbacks", n)
	}
}

package store

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/chorus/internal/models"
)

func equivalence() *models.Equivalence {
	return &models.Equivalence{
		Links:     map[models.Service]string{models.ServiceSpotify: "https://open.spotify.com/track/a"},
		Source:    models.SourceRemote,
		FetchedAt: time.Now(),
	}
}

func TestCache(t *testing.T) {
	t.Run("Get Returns Nil When Absent", func(t *testing.T) {
		c := NewCache(10 * time.Minute)
		if c.Get("https://open.spotify.com/track/a") != nil {
			t.Error("expected nil for absent entry")
		}
	})

	t.Run("Put Then Get", func(t *testing.T) {
		c := NewCache(10 * time.Minute)
		eq := equivalence()
		c.Put("url", eq)

		if got := c.Get("url"); got != eq {
			t.Errorf("expected cached equivalence, got %v", got)
		}
	})

	t.Run("Fresh Just Inside TTL", func(t *testing.T) {
		c := NewCache(10 * time.Minute)
		created := time.Now()
		c.now = func() time.Time { return created }
		c.Put("url", equivalence())

		c.now = func() time.Time { return created.Add(10*time.Minute - time.Second) }
		if c.Get("url") == nil {
			t.Error("entry just inside TTL should be served")
		}
	})

	t.Run("Stale Entry Evicted On Read", func(t *testing.T) {
		c := NewCache(10 * time.Minute)
		created := time.Now()
		c.now = func() time.Time { return created }
		c.Put("url", equivalence())

		c.now = func() time.Time { return created.Add(10*time.Minute + time.Second) }
		if c.Get("url") != nil {
			t.Error("stale entry should read as absent")
		}
		if c.Len() != 0 {
			t.Errorf("stale entry should be evicted, have %d entries", c.Len())
		}
	})

	t.Run("Put Overwrites", func(t *testing.T) {
		c := NewCache(10 * time.Minute)
		c.Put("url", equivalence())

		second := equivalence()
		c.Put("url", second)

		if got := c.Get("url"); got != second {
			t.Error("expected overwritten entry")
		}
		if c.Len() != 1 {
			t.Errorf("expected a single entry, have %d", c.Len())
		}
	})

	t.Run("Clears Wholesale Past Threshold", func(t *testing.T) {
		c := NewCache(10 * time.Minute)
		for i := 0; i <= maxEntries; i++ {
			c.Put(fmt.Sprintf("url-%d", i), equivalence())
		}
		if c.Len() != maxEntries+1 {
			t.Fatalf("expected %d entries before clear, have %d", maxEntries+1, c.Len())
		}

		c.Put("one-more", equivalence())
		if c.Len() != 1 {
			t.Errorf("expected wholesale clear before insert, have %d entries", c.Len())
		}
		if c.Get("one-more") == nil {
			t.Error("the triggering entry should survive the clear")
		}
	})
}

func TestSeen(t *testing.T) {
	t.Run("Unseen Event Is Processable", func(t *testing.T) {
		s := NewSeen()
		if !s.ShouldProcess("Ev001") {
			t.Error("new event should be processable")
		}
	})

	t.Run("Marked Event Is Not Reprocessed", func(t *testing.T) {
		s := NewSeen()
		s.MarkProcessed("Ev001")

		if s.ShouldProcess("Ev001") {
			t.Error("marked event should not be processable")
		}
		if !s.ShouldProcess("Ev002") {
			t.Error("other events stay processable")
		}
	})

	t.Run("Concurrent Duplicates Claim Once", func(t *testing.T) {
		s := NewSeen()

		var wg sync.WaitGroup
		var claimed atomic.Int32
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if s.CheckAndMark("Ev001") {
					claimed.Add(1)
				}
			}()
		}
		wg.Wait()

		if got := claimed.Load(); got != 1 {
			t.Errorf("expected exactly one claim, got %d", got)
		}
		if s.ShouldProcess("Ev001") {
			t.Error("claimed event should read as handled")
		}
	})

	t.Run("Clears Wholesale Past Threshold", func(t *testing.T) {
		s := NewSeen()
		for i := 0; i <= maxEntries; i++ {
			s.MarkProcessed(fmt.Sprintf("Ev%d", i))
		}

		s.MarkProcessed("EvLast")
		if s.Len() != 1 {
			t.Errorf("expected wholesale clear, have %d entries", s.Len())
		}
		if s.ShouldProcess("EvLast") {
			t.Error("the triggering mark should survive the clear")
		}
	})
}

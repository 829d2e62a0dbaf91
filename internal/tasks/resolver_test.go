package tasks

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/chorus/internal/formatter"
	"github.com/desertthunder/chorus/internal/models"
	"github.com/desertthunder/chorus/internal/services"
	"github.com/desertthunder/chorus/internal/shared"
	"github.com/desertthunder/chorus/internal/store"
	tu "github.com/desertthunder/chorus/internal/testing"
)

func spotifyCandidate() models.Candidate {
	return models.Candidate{
		URL:     "https://open.spotify.com/track/4JjqJhEW00zcGiMIsunf0X",
		Service: models.ServiceSpotify,
	}
}

func fullEquivalence() *models.Equivalence {
	return &models.Equivalence{
		Links: map[models.Service]string{
			models.ServiceSpotify:      "https://open.spotify.com/track/4JjqJhEW00zcGiMIsunf0X",
			models.ServiceAppleMusic:   "https://music.apple.com/us/album/x/1?i=2",
			models.ServiceYouTubeMusic: "https://music.youtube.com/watch?v=abc",
		},
		Source:    models.SourceRemote,
		FetchedAt: time.Now(),
	}
}

func TestEngineResolve(t *testing.T) {
	t.Run("Remote Success Wins", func(t *testing.T) {
		blocked := make(chan struct{})
		defer close(blocked)

		engine := NewEngine(EngineOpts{
			Lookup: &tu.MockEquivalencer{Result: fullEquivalence()},
			Probe:  &tu.MockProber{Block: blocked}, // keeps the fallback branch busy
		})

		reply, source := engine.Resolve(context.Background(), spotifyCandidate())
		if source != models.ReplyRemote {
			t.Fatalf("expected remote reply, got %s", source)
		}

		lines := strings.Split(reply, "\n")
		if len(lines) != 3 {
			t.Errorf("expected three lines, got %d: %q", len(lines), reply)
		}
	})

	t.Run("Cached Result Skips The Fetch", func(t *testing.T) {
		lookup := &tu.MockEquivalencer{Result: fullEquivalence()}
		cache := store.NewCache(10 * time.Minute)
		cache.Put(spotifyCandidate().URL, fullEquivalence())

		blocked := make(chan struct{})
		defer close(blocked)

		engine := NewEngine(EngineOpts{
			Lookup: lookup,
			Probe:  &tu.MockProber{Block: blocked},
			Cache:  cache,
		})

		reply, source := engine.Resolve(context.Background(), spotifyCandidate())
		if source != models.ReplyRemote {
			t.Fatalf("expected cached remote reply, got %s (%q)", source, reply)
		}
		if lookup.Calls() != 0 {
			t.Errorf("fresh cache entry must not trigger a fetch, got %d calls", lookup.Calls())
		}
	})

	t.Run("Cached Entry Beats An Instant Fallback", func(t *testing.T) {
		// Apple Music has no metadata endpoint, so its fallback branch
		// completes immediately; the cached reply must still be served.
		cand := models.Candidate{
			URL:     "https://music.apple.com/us/album/x/1?i=2",
			Service: models.ServiceAppleMusic,
		}

		lookup := &tu.MockEquivalencer{Result: fullEquivalence()}
		cache := store.NewCache(10 * time.Minute)
		cache.Put(cand.URL, fullEquivalence())

		engine := NewEngine(EngineOpts{
			Lookup: lookup,
			Probe:  &tu.MockProber{Err: shared.ErrRemote},
			Cache:  cache,
		})

		for i := 0; i < 50; i++ {
			reply, source := engine.Resolve(context.Background(), cand)
			if source != models.ReplyRemote {
				t.Fatalf("iteration %d: cached entry lost to the fallback: %s (%q)", i, source, reply)
			}
		}
		if lookup.Calls() != 0 {
			t.Errorf("cached entries must not trigger fetches, got %d", lookup.Calls())
		}
	})

	t.Run("Expired Entry Fetches Exactly Once", func(t *testing.T) {
		lookup := &tu.MockEquivalencer{Result: fullEquivalence()}
		cache := store.NewCache(time.Nanosecond)
		cache.Put(spotifyCandidate().URL, fullEquivalence())
		time.Sleep(time.Millisecond)

		blocked := make(chan struct{})
		defer close(blocked)

		engine := NewEngine(EngineOpts{
			Lookup: lookup,
			Probe:  &tu.MockProber{Block: blocked},
			Cache:  cache,
		})

		_, source := engine.Resolve(context.Background(), spotifyCandidate())
		if source != models.ReplyRemote {
			t.Fatalf("expected remote reply, got %s", source)
		}
		if lookup.Calls() != 1 {
			t.Errorf("expected exactly one fetch, got %d", lookup.Calls())
		}
	})

	t.Run("Remote Failure Falls Back To Search Links", func(t *testing.T) {
		engine := NewEngine(EngineOpts{
			Lookup: &tu.MockEquivalencer{Err: shared.ErrRemote},
			Probe:  &tu.MockProber{Info: &services.TrackInfo{Title: "Some Song (Live)", Author: "Someone"}},
		})

		reply, source := engine.Resolve(context.Background(), spotifyCandidate())
		if source != models.ReplyFallback {
			t.Fatalf("expected fallback reply, got %s", source)
		}

		if strings.Contains(reply, "open.spotify.com/search") {
			t.Errorf("fallback must never suggest the source service: %q", reply)
		}
		if !strings.Contains(reply, "music.apple.com") || !strings.Contains(reply, "music.youtube.com") {
			t.Errorf("expected search links for the two other services: %q", reply)
		}
		if strings.Contains(reply, "Live") {
			t.Errorf("expected refined query without annotations: %q", reply)
		}
	})

	t.Run("Empty Remote Mapping Falls Back", func(t *testing.T) {
		engine := NewEngine(EngineOpts{
			Lookup: &tu.MockEquivalencer{Err: shared.ErrEmptyResult},
			Probe:  &tu.MockProber{Err: shared.ErrRemote},
		})

		reply, source := engine.Resolve(context.Background(), spotifyCandidate())
		if source != models.ReplyFallback {
			t.Fatalf("expected fallback reply, got %s", source)
		}
		if reply == formatter.ApologyText {
			t.Error("fallback should still build search links from the raw URL")
		}
	})

	t.Run("Slow Remote Loses To Fallback", func(t *testing.T) {
		blocked := make(chan struct{})
		defer close(blocked)

		engine := NewEngine(EngineOpts{
			Lookup:       &tu.MockEquivalencer{Result: fullEquivalence(), Block: blocked},
			Probe:        &tu.MockProber{Err: shared.ErrRemote},
			FetchTimeout: 100 * time.Millisecond,
		})

		started := time.Now()
		reply, source := engine.Resolve(context.Background(), spotifyCandidate())
		if source != models.ReplyFallback {
			t.Fatalf("expected fallback reply, got %s (%q)", source, reply)
		}
		if elapsed := time.Since(started); elapsed > engine.Deadline() {
			t.Errorf("resolution overran the deadline: %v", elapsed)
		}
	})

	t.Run("Both Branches Hung Yields The Apology", func(t *testing.T) {
		blocked := make(chan struct{})
		defer close(blocked)

		engine := NewEngine(EngineOpts{
			Lookup:       &tu.MockEquivalencer{Block: blocked},
			Probe:        &tu.MockProber{Block: blocked},
			FetchTimeout: 100 * time.Millisecond,
			ProbeTimeout: 10 * time.Second, // probe outlives the global deadline
		})

		reply, source := engine.Resolve(context.Background(), spotifyCandidate())
		if source != models.ReplyApology {
			t.Fatalf("expected the apology, got %s", source)
		}
		if reply != formatter.ApologyText {
			t.Errorf("expected the canned apology, got %q", reply)
		}
	})

	t.Run("Race Loser Still Populates The Cache", func(t *testing.T) {
		release := make(chan struct{})
		lookup := &tu.MockEquivalencer{Result: fullEquivalence(), Block: release}
		cache := store.NewCache(10 * time.Minute)

		engine := NewEngine(EngineOpts{
			Lookup:       lookup,
			Probe:        &tu.MockProber{Err: shared.ErrRemote},
			Cache:        cache,
			FetchTimeout: 2 * time.Second,
		})

		cand := spotifyCandidate()
		_, source := engine.Resolve(context.Background(), cand)
		if source != models.ReplyFallback {
			t.Fatalf("expected the fallback to win, got %s", source)
		}

		// Let the losing fetch finish and write through.
		close(release)
		deadline := time.After(time.Second)
		for cache.Get(cand.URL) == nil {
			select {
			case <-deadline:
				t.Fatal("losing fetch never populated the cache")
			case <-time.After(10 * time.Millisecond):
			}
		}
	})

	t.Run("Deadline Is Capped", func(t *testing.T) {
		engine := NewEngine(EngineOpts{
			Lookup:       &tu.MockEquivalencer{},
			FetchTimeout: 10 * time.Second,
		})
		if engine.Deadline() != 4*time.Second {
			t.Errorf("expected 4s ceiling, got %v", engine.Deadline())
		}
	})
}

func TestBuildFallback(t *testing.T) {
	t.Run("Merges Title And Author", func(t *testing.T) {
		engine := NewEngine(EngineOpts{
			Probe: &tu.MockProber{Info: &services.TrackInfo{Title: "My Song", Author: "My Band"}},
		})

		text := engine.BuildFallback(context.Background(), spotifyCandidate())
		if !strings.Contains(text, "My+Song+My+Band") && !strings.Contains(text, "My%20Song%20My%20Band") {
			t.Errorf("expected merged query in search links: %q", text)
		}
	})

	t.Run("Probe Miss Uses Raw URL", func(t *testing.T) {
		engine := NewEngine(EngineOpts{
			Probe: &tu.MockProber{Err: shared.ErrRemote},
		})

		cand := spotifyCandidate()
		text := engine.BuildFallback(context.Background(), cand)
		if !strings.Contains(text, "music.youtube.com/search?q=https") {
			t.Errorf("expected raw URL query, got %q", text)
		}
	})

	t.Run("No Prober Configured", func(t *testing.T) {
		engine := NewEngine(EngineOpts{})

		text := engine.BuildFallback(context.Background(), spotifyCandidate())
		if text == "" {
			t.Error("fallback must never be empty")
		}
	})
}

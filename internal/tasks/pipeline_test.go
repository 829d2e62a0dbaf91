package tasks

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/chorus/internal/formatter"
	"github.com/desertthunder/chorus/internal/models"
	"github.com/desertthunder/chorus/internal/shared"
	"github.com/desertthunder/chorus/internal/store"
	tu "github.com/desertthunder/chorus/internal/testing"
)

func quickEngine() *Engine {
	return NewEngine(EngineOpts{
		Lookup: &tu.MockEquivalencer{Result: fullEquivalence()},
		// A blocked probe keeps the fallback branch from racing ahead of
		// the instant remote result.
		Probe: &tu.MockProber{Block: make(chan struct{})},
	})
}

func linkEvent(eventID string) models.MessageEvent {
	return models.MessageEvent{
		EventID:  eventID,
		Channel:  "C123",
		User:     "U42",
		Text:     "check this out https://open.spotify.com/track/4JjqJhEW00zcGiMIsunf0X",
		ThreadTS: "1700000000.000100",
	}
}

func TestPipelineHandleEvent(t *testing.T) {
	t.Run("Posts One Threaded Reply", func(t *testing.T) {
		messenger := &tu.MockMessenger{}
		pipeline := NewPipeline(PipelineOpts{Engine: quickEngine(), Messenger: messenger})

		pipeline.HandleEvent(context.Background(), linkEvent("Ev001"))

		sent := messenger.Sent()
		if len(sent) != 1 {
			t.Fatalf("expected one message, got %d", len(sent))
		}
		if sent[0].Method != "post" || sent[0].TS != "1700000000.000100" {
			t.Errorf("expected threaded post, got %+v", sent[0])
		}
		if !strings.Contains(sent[0].Text, "open.spotify.com") {
			t.Errorf("reply missing links: %q", sent[0].Text)
		}
	})

	t.Run("No URL Means No Reply And No Dedup Mark", func(t *testing.T) {
		messenger := &tu.MockMessenger{}
		seen := store.NewSeen()
		pipeline := NewPipeline(PipelineOpts{Engine: quickEngine(), Seen: seen, Messenger: messenger})

		event := linkEvent("Ev002")
		event.Text = "nothing to see here"
		pipeline.HandleEvent(context.Background(), event)

		if len(messenger.Sent()) != 0 {
			t.Error("expected no reply for an event without a link")
		}
		if seen.Len() != 0 {
			t.Error("an event without a link must not consume a dedup slot")
		}
	})

	t.Run("Duplicate Event Is Processed Once", func(t *testing.T) {
		messenger := &tu.MockMessenger{}
		pipeline := NewPipeline(PipelineOpts{Engine: quickEngine(), Messenger: messenger})

		pipeline.HandleEvent(context.Background(), linkEvent("Ev003"))
		pipeline.HandleEvent(context.Background(), linkEvent("Ev003"))

		if got := len(messenger.Sent()); got != 1 {
			t.Errorf("expected one reply for duplicate events, got %d", got)
		}
	})

	t.Run("Edit Gaining A URL Is Still Eligible", func(t *testing.T) {
		messenger := &tu.MockMessenger{}
		pipeline := NewPipeline(PipelineOpts{Engine: quickEngine(), Messenger: messenger})

		bare := linkEvent("Ev004")
		bare.Text = "wait for it"
		pipeline.HandleEvent(context.Background(), bare)
		pipeline.HandleEvent(context.Background(), linkEvent("Ev004"))

		if got := len(messenger.Sent()); got != 1 {
			t.Errorf("expected the edited event to be processed, got %d replies", got)
		}
	})

	t.Run("Placeholder Is Posted Then Edited", func(t *testing.T) {
		messenger := &tu.MockMessenger{}
		pipeline := NewPipeline(PipelineOpts{Engine: quickEngine(), Messenger: messenger, Placeholder: true})

		pipeline.HandleEvent(context.Background(), linkEvent("Ev005"))

		sent := messenger.Sent()
		if len(sent) != 2 {
			t.Fatalf("expected placeholder then edit, got %d messages", len(sent))
		}
		if sent[0].Method != "post" || sent[0].Text != formatter.PlaceholderText {
			t.Errorf("expected placeholder first, got %+v", sent[0])
		}
		if sent[1].Method != "update" {
			t.Errorf("expected an edit second, got %+v", sent[1])
		}
	})

	t.Run("Failed Edit Posts Fresh", func(t *testing.T) {
		messenger := &tu.MockMessenger{UpdateErr: shared.ErrDelivery}
		pipeline := NewPipeline(PipelineOpts{Engine: quickEngine(), Messenger: messenger, Placeholder: true})

		pipeline.HandleEvent(context.Background(), linkEvent("Ev006"))

		sent := messenger.Sent()
		if len(sent) != 2 {
			t.Fatalf("expected placeholder then fresh post, got %d messages", len(sent))
		}
		if sent[1].Method != "post" {
			t.Errorf("expected a fresh post after the failed edit, got %+v", sent[1])
		}
	})

	t.Run("Delivery Failure Degrades To Ephemeral", func(t *testing.T) {
		messenger := &tu.MockMessenger{PostErr: shared.ErrNotInvited}
		pipeline := NewPipeline(PipelineOpts{Engine: quickEngine(), Messenger: messenger})

		pipeline.HandleEvent(context.Background(), linkEvent("Ev007"))

		sent := messenger.Sent()
		if len(sent) != 1 || sent[0].Method != "ephemeral" {
			t.Errorf("expected a single ephemeral notice, got %+v", sent)
		}
	})

	t.Run("Records History Row", func(t *testing.T) {
		messenger := &tu.MockMessenger{}
		recorder := &tu.MockRecorder{}
		pipeline := NewPipeline(PipelineOpts{Engine: quickEngine(), Messenger: messenger, History: recorder})

		pipeline.HandleEvent(context.Background(), linkEvent("Ev008"))

		rows := recorder.Recorded()
		if len(rows) != 1 {
			t.Fatalf("expected one history row, got %d", len(rows))
		}

		row := rows[0]
		if row.EventID != "Ev008" || row.Service != models.ServiceSpotify {
			t.Errorf("unexpected history row %+v", row)
		}
		if row.ReplySource != models.ReplyRemote {
			t.Errorf("expected remote reply source, got %s", row.ReplySource)
		}
		if row.ID == "" || row.CreatedAt.IsZero() {
			t.Errorf("expected populated id and timestamp, got %+v", row)
		}
	})

	t.Run("History Failure Does Not Break Delivery", func(t *testing.T) {
		messenger := &tu.MockMessenger{}
		recorder := &tu.MockRecorder{Err: shared.ErrInvalidConfig}
		pipeline := NewPipeline(PipelineOpts{Engine: quickEngine(), Messenger: messenger, History: recorder})

		pipeline.HandleEvent(context.Background(), linkEvent("Ev009"))

		if len(messenger.Sent()) != 1 {
			t.Error("reply should be delivered regardless of history errors")
		}
	})

	t.Run("Reply Arrives Inside The Budget", func(t *testing.T) {
		messenger := &tu.MockMessenger{}
		blocked := make(chan struct{})
		defer close(blocked)

		engine := NewEngine(EngineOpts{
			Lookup:       &tu.MockEquivalencer{Block: blocked},
			Probe:        &tu.MockProber{Block: blocked},
			FetchTimeout: 50 * time.Millisecond,
			ProbeTimeout: 10 * time.Second,
		})
		pipeline := NewPipeline(PipelineOpts{Engine: engine, Messenger: messenger})

		started := time.Now()
		pipeline.HandleEvent(context.Background(), linkEvent("Ev010"))

		if elapsed := time.Since(started); elapsed > time.Second {
			t.Errorf("handling took too long: %v", elapsed)
		}
		sent := messenger.Sent()
		if len(sent) != 1 || sent[0].Text != formatter.ApologyText {
			t.Errorf("expected the canned apology, got %+v", sent)
		}
	})
}

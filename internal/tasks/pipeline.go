package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chorus/internal/formatter"
	"github.com/desertthunder/chorus/internal/links"
	"github.com/desertthunder/chorus/internal/models"
	"github.com/desertthunder/chorus/internal/services"
	"github.com/desertthunder/chorus/internal/shared"
	"github.com/desertthunder/chorus/internal/store"
)

// Recorder persists resolution history rows. Failures never affect replies.
type Recorder interface {
	Record(ctx context.Context, res models.Resolution) error
}

// Pipeline carries one inbound event through recognition, deduplication,
// resolution, and delivery. No error escapes [Pipeline.HandleEvent].
type Pipeline struct {
	engine      *Engine
	seen        *store.Seen
	messenger   services.Messenger
	history     Recorder
	logger      *log.Logger
	placeholder bool
}

// PipelineOpts contains configuration options for creating a Pipeline.
type PipelineOpts struct {
	Engine      *Engine
	Seen        *store.Seen
	Messenger   services.Messenger
	History     Recorder
	Logger      *log.Logger
	Placeholder bool
}

// NewPipeline creates a Pipeline with the provided dependencies.
func NewPipeline(opts PipelineOpts) *Pipeline {
	if opts.Seen == nil {
		opts.Seen = store.NewSeen()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Pipeline{
		engine:      opts.Engine,
		seen:        opts.Seen,
		messenger:   opts.Messenger,
		history:     opts.History,
		logger:      opts.Logger,
		placeholder: opts.Placeholder,
	}
}

// HandleEvent processes one inbound message event end to end.
//
// Events without a recognizable URL are dropped silently and never consume
// a dedup slot, so an edit that later adds a URL remains eligible. Delivery
// failures degrade to an ephemeral notice and are otherwise logged, never
// retried.
func (p *Pipeline) HandleEvent(ctx context.Context, event models.MessageEvent) {
	logger := shared.WithLogger(p.logger, "trace", shared.GenerateID(), "event", event.EventID)

	cand, ok := links.Extract(event.Text, event.Attachments)
	if !ok {
		logger.Debug("no supported link in event")
		return
	}

	if !p.seen.CheckAndMark(event.EventID) {
		logger.Debug("event already handled", "url", cand.URL)
		return
	}

	logger.Info("resolving link", "service", cand.Service, "url", cand.URL)

	// Phase one of the placeholder flow: post now, keep the handle, edit
	// with the final text once the race settles.
	var handle *services.MessageHandle
	if p.placeholder {
		h, err := p.messenger.PostThread(ctx, event.Channel, event.ThreadTS, formatter.PlaceholderText)
		if err != nil {
			logger.Warn("placeholder post failed", "err", err)
		} else {
			handle = h
		}
	}

	started := time.Now()
	reply, source := p.engine.Resolve(ctx, cand)
	latency := time.Since(started)

	p.deliver(ctx, logger, event, handle, reply)

	if p.history != nil {
		res := models.Resolution{
			ID:          shared.GenerateID(),
			EventID:     event.EventID,
			Channel:     event.Channel,
			InputURL:    cand.URL,
			Service:     cand.Service,
			ReplySource: source,
			LatencyMS:   latency.Milliseconds(),
			CreatedAt:   time.Now(),
		}
		if err := p.history.Record(ctx, res); err != nil {
			logger.Warn("failed to record resolution", "err", err)
		}
	}

	logger.Info("event handled", "source", source, "latency", latency)
}

// deliver edits the placeholder when one exists, otherwise posts a threaded
// reply, degrading to an ephemeral notice when the bot is shut out of the
// channel.
func (p *Pipeline) deliver(ctx context.Context, logger *log.Logger, event models.MessageEvent, handle *services.MessageHandle, text string) {
	if handle != nil {
		err := p.messenger.Update(ctx, handle, text)
		if err == nil {
			return
		}
		logger.Warn("placeholder edit failed, posting fresh", "err", err)
	}

	_, err := p.messenger.PostThread(ctx, event.Channel, event.ThreadTS, text)
	if err == nil {
		return
	}

	logger.Error("reply delivery failed", "err", err)

	if event.User != "" {
		notice := "I found links for that track but couldn't post here. Invite me to the channel and try again."
		if err := p.messenger.PostEphemeral(ctx, event.Channel, event.User, notice); err != nil {
			logger.Error("ephemeral notice failed, dropping event", "err", err)
		}
	}
}

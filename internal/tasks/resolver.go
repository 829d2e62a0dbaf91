// package tasks implements the link resolution engine.
//
// The core abstraction is Engine, which serves fresh cache entries directly
// and otherwise races the remote fetch against the locally built fallback
// under one hard deadline, and Pipeline, which carries an inbound event
// through recognition, deduplication, resolution, and delivery.
package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chorus/internal/formatter"
	"github.com/desertthunder/chorus/internal/models"
	"github.com/desertthunder/chorus/internal/services"
	"github.com/desertthunder/chorus/internal/shared"
	"github.com/desertthunder/chorus/internal/store"
)

// deadlineMargin is added to the fetch timeout so a fetch that finishes
// near its own budget can still win the race.
const deadlineMargin = 500 * time.Millisecond

// deadlineCeiling caps the global resolution deadline regardless of the
// configured fetch timeout, keeping replies inside the outer response budget.
const deadlineCeiling = 4 * time.Second

// Engine races the equivalence lookup against the fallback build.
type Engine struct {
	lookup       services.Equivalencer
	probe        services.Prober
	cache        *store.Cache
	fetchTimeout time.Duration
	probeTimeout time.Duration
	logger       *log.Logger
}

// EngineOpts contains configuration options for creating an Engine.
type EngineOpts struct {
	Lookup       services.Equivalencer
	Probe        services.Prober
	Cache        *store.Cache
	FetchTimeout time.Duration
	ProbeTimeout time.Duration
	Logger       *log.Logger
}

// NewEngine creates an Engine with the provided dependencies.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Cache == nil {
		opts.Cache = store.NewCache(10 * time.Minute)
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 2500 * time.Millisecond
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 800 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Engine{
		lookup:       opts.Lookup,
		probe:        opts.Probe,
		cache:        opts.Cache,
		fetchTimeout: opts.FetchTimeout,
		probeTimeout: opts.ProbeTimeout,
		logger:       opts.Logger,
	}
}

// Deadline returns the global resolution budget: the fetch timeout plus a
// small margin, capped at the ceiling.
func (e *Engine) Deadline() time.Duration {
	d := e.fetchTimeout + deadlineMargin
	if d > deadlineCeiling {
		d = deadlineCeiling
	}
	return d
}

// branchResult is what each race branch reports back.
type branchResult struct {
	text string
	err  error
}

// Resolve returns the reply text for a candidate, always within [Engine.Deadline].
//
// A fresh cache entry is served synchronously before any goroutine starts,
// so a cached reply can never lose to an instant fallback. On a cache miss
// two branches run concurrently: the fetch-then-cache path formatted as an
// equivalence reply, and the fallback build. The first branch to produce a
// valid non-empty result wins. A branch that fails, or completes with an
// empty mapping, keeps the race open for the other; when both have failed
// or the deadline fires, the canned apology is returned.
func (e *Engine) Resolve(ctx context.Context, cand models.Candidate) (string, models.ReplySource) {
	if cached := e.cache.Get(cand.URL); cached != nil {
		if text, err := formatter.FormatEquivalence(cached); err == nil {
			return text, models.ReplyRemote
		}
	}

	timer := time.NewTimer(e.Deadline())
	defer timer.Stop()

	remoteCh := make(chan branchResult, 1)
	fallbackCh := make(chan branchResult, 1)

	go func() { remoteCh <- e.remoteBranch(cand) }()
	go func() { fallbackCh <- branchResult{text: e.BuildFallback(ctx, cand)} }()

	var remoteDone, fallbackDone bool
	for {
		select {
		case res := <-remoteCh:
			remoteDone = true
			if res.err == nil && res.text != "" {
				return res.text, models.ReplyRemote
			}
			e.logger.Debug("lookup branch failed", "url", cand.URL, "err", res.err)
			if fallbackDone {
				return formatter.ApologyText, models.ReplyApology
			}
			remoteCh = nil
		case res := <-fallbackCh:
			fallbackDone = true
			if res.text != "" {
				return res.text, models.ReplyFallback
			}
			if remoteDone {
				return formatter.ApologyText, models.ReplyApology
			}
			fallbackCh = nil
		case <-timer.C:
			e.logger.Warn("resolution deadline elapsed", "url", cand.URL)
			return formatter.ApologyText, models.ReplyApology
		case <-ctx.Done():
			return formatter.ApologyText, models.ReplyApology
		}
	}
}

// remoteBranch issues one fetch, caches the result, and formats the
// equivalence reply.
//
// The fetch runs under its own timeout detached from the race deadline, so
// a fetch that loses the race, or finishes after the deadline, still
// populates the cache for the next request. Its result is simply no longer
// read for reply purposes.
func (e *Engine) remoteBranch(cand models.Candidate) branchResult {
	fetchCtx, cancel := context.WithTimeout(context.Background(), e.fetchTimeout)
	defer cancel()

	eq, err := e.lookup.Lookup(fetchCtx, cand.URL)
	if err != nil {
		return branchResult{err: err}
	}

	e.cache.Put(cand.URL, eq)

	text, err := formatter.FormatEquivalence(eq)
	return branchResult{text: text, err: err}
}

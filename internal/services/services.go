// package services defines clients for the HTTP APIs the bot talks to
//
// song.link (equivalence lookup), oEmbed endpoints (metadata probe), Slack Web API (delivery)
package services

import (
	"context"

	"github.com/desertthunder/chorus/internal/models"
)

// Equivalencer performs the remote equivalence lookup for a normalized URL.
type Equivalencer interface {
	// Lookup issues one request against the equivalence API. It fails on
	// non-2xx status, malformed payload, timeout, or an empty link mapping;
	// it never retries.
	Lookup(ctx context.Context, url string) (*models.Equivalence, error)
}

// TrackInfo is the optional metadata a probe can recover for a URL.
type TrackInfo struct {
	Title  string `json:"title"`
	Author string `json:"author_name"`
}

// Prober fetches cheap display metadata for a source URL on the fallback path.
type Prober interface {
	// Probe returns title/author metadata for the URL. Both fields may be
	// empty; an error means the fallback should use the raw URL instead.
	Probe(ctx context.Context, cand models.Candidate) (*TrackInfo, error)
}

// MessageHandle identifies a posted message so it can be edited later.
type MessageHandle struct {
	Channel string
	TS      string
}

// Messenger delivers replies through the messaging platform.
type Messenger interface {
	// PostThread posts text as a threaded reply under anchorTS.
	PostThread(ctx context.Context, channel, anchorTS, text string) (*MessageHandle, error)

	// Update edits a previously posted message in place.
	Update(ctx context.Context, handle *MessageHandle, text string) error

	// PostEphemeral posts a sender-only-visible notice, the degraded path
	// when a normal post is rejected.
	PostEphemeral(ctx context.Context, channel, user, text string) error
}

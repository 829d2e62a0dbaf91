package models

import "time"

// Service identifies a supported streaming service.
type Service string

const (
	ServiceSpotify      Service = "spotify"
	ServiceAppleMusic   Service = "appleMusic"
	ServiceYouTubeMusic Service = "youtubeMusic"
	ServiceUnknown      Service = ""
)

// Services lists every supported service in display order.
var Services = []Service{ServiceSpotify, ServiceAppleMusic, ServiceYouTubeMusic}

// DisplayName returns the human-readable service name used in replies.
func (s Service) DisplayName() string {
	switch s {
	case ServiceSpotify:
		return "Spotify"
	case ServiceAppleMusic:
		return "Apple Music"
	case ServiceYouTubeMusic:
		return "YouTube Music"
	default:
		return "Unknown"
	}
}

// Hosts returns the hostnames recognized for the service.
//
// Matching is exact or dot-suffix, case-insensitive.
func (s Service) Hosts() []string {
	switch s {
	case ServiceSpotify:
		return []string{"open.spotify.com", "spotify.link"}
	case ServiceAppleMusic:
		return []string{"music.apple.com", "geo.music.apple.com"}
	case ServiceYouTubeMusic:
		return []string{"music.youtube.com", "youtube.com", "youtu.be"}
	default:
		return nil
	}
}

// Candidate represents a user-submitted link recognized as belonging to a supported service.
type Candidate struct {
	Raw        string  // Original text span before cleanup
	URL        string  // Normalized absolute URL, used as cache key and lookup argument
	Service    Service // Owning service
	DetectedAt time.Time
}

// EquivalenceSource tags where an [Equivalence] came from.
type EquivalenceSource string

const (
	SourceRemote   EquivalenceSource = "remote"
	SourceFallback EquivalenceSource = "fallback-search"
)

// Equivalence is the set of equivalent URLs for a candidate across supported services.
//
// The mapping is partial. Replaced, never mutated, after creation.
type Equivalence struct {
	Links     map[Service]string
	Source    EquivalenceSource
	FetchedAt time.Time
}

// Usable reports whether the equivalence carries at least one link.
func (e *Equivalence) Usable() bool {
	if e == nil {
		return false
	}
	for _, u := range e.Links {
		if u != "" {
			return true
		}
	}
	return false
}

// Attachment is the slice of a Slack message attachment the recognizer scans for links.
type Attachment struct {
	OriginalURL string `json:"original_url"`
	FromURL     string `json:"from_url"`
	URL         string `json:"url"`
}

// MessageEvent is the slice of an inbound Slack message event the engine consumes.
type MessageEvent struct {
	EventID     string       // Outer envelope event_id, the dedup key
	Channel     string       // Channel the message was posted in
	User        string       // Sender, used for ephemeral error notices
	Text        string       // Message text (for edits, the revised text)
	ThreadTS    string       // Timestamp anchoring the reply thread
	Attachments []Attachment // Unfurled attachments, scanned when text has no link
}

// ReplySource tags which path produced the delivered reply.
type ReplySource string

const (
	ReplyRemote   ReplySource = "remote"
	ReplyFallback ReplySource = "fallback"
	ReplyApology  ReplySource = "apology"
)

// Resolution is a persisted record of one handled inbound event.
type Resolution struct {
	ID          string
	EventID     string
	Channel     string
	InputURL    string
	Service     Service
	ReplySource ReplySource
	LatencyMS   int64
	CreatedAt   time.Time
}

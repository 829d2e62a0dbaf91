// package links recognizes and normalizes streaming-service URLs in inbound message text.
//
// Recognition matches hostnames against the fixed allow-list in
// [models.Service]. Normalization never fails: when a URL cannot be parsed
// the cleaned input is passed through unchanged.
package links

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/desertthunder/chorus/internal/models"
)

// urlPattern matches a URL-shaped substring in free text.
//
// Slack link markup (<https://example.com|display>) is handled by cutting at
// the pipe and angle bracket after the match.
var urlPattern = regexp.MustCompile(`https?://[^\s<>]+`)

// trailingPunct covers punctuation a user typically types right after a pasted link.
const trailingPunct = ".,;:!?)]}>'\""

// Extract scans message text, then attachments, for the first URL belonging
// to a supported service and returns it as a [models.Candidate].
//
// Attachments are consulted only when the text itself carries no supported
// link; each attachment's original, canonical, and display link fields are
// checked in order.
func Extract(text string, attachments []models.Attachment) (models.Candidate, bool) {
	for _, raw := range urlPattern.FindAllString(text, -1) {
		if cand, ok := candidateFrom(raw); ok {
			return cand, true
		}
	}

	for _, att := range attachments {
		for _, raw := range []string{att.OriginalURL, att.URL, att.FromURL} {
			if raw == "" {
				continue
			}
			if cand, ok := candidateFrom(raw); ok {
				return cand, true
			}
		}
	}

	return models.Candidate{}, false
}

// candidateFrom cleans a raw span, identifies its service, and normalizes it.
func candidateFrom(raw string) (models.Candidate, bool) {
	cleaned := clean(raw)
	svc := Recognize(cleaned)
	if svc == models.ServiceUnknown {
		return models.Candidate{}, false
	}

	return models.Candidate{
		Raw:        raw,
		URL:        Normalize(cleaned),
		Service:    svc,
		DetectedAt: time.Now(),
	}, true
}

// Recognize returns the service owning the URL's hostname, or [models.ServiceUnknown].
func Recognize(rawURL string) models.Service {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return models.ServiceUnknown
	}

	host := strings.ToLower(u.Hostname())
	for _, svc := range models.Services {
		for _, allowed := range svc.Hosts() {
			if host == allowed || strings.HasSuffix(host, "."+allowed) {
				return svc
			}
		}
	}

	return models.ServiceUnknown
}

// Normalize canonicalizes a URL for use as a cache key and lookup argument.
//
// HTML-escaped ampersands are decoded, non-breaking spaces dropped, and the
// result round-tripped through [url.Parse]. Normalization is idempotent and
// never fails: unparseable input degrades to the cleaned string unchanged.
func Normalize(rawURL string) string {
	cleaned := clean(rawURL)

	u, err := url.Parse(cleaned)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return cleaned
	}

	return u.String()
}

// clean strips transport wrapping and loose punctuation around a URL span.
func clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "<>")

	// Slack hyperlink markup carries display text after a pipe.
	if idx := strings.IndexByte(s, '|'); idx >= 0 {
		s = s[:idx]
	}

	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimRight(s, trailingPunct)

	return s
}

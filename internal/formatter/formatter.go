// package formatter renders resolution results as reply text (equivalence lines, search suggestions, apologies)
package formatter

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/chorus/internal/models"
	"github.com/desertthunder/chorus/internal/shared"
)

const (
	// PlaceholderText is the provisional message posted before the resolution finishes.
	PlaceholderText = "Looking up links on the other services..."

	// ApologyText is the minimal canned reply when every path failed or the deadline elapsed.
	ApologyText = "Sorry, I couldn't find that one on the other services."

	// fallbackIntro opens the search-suggestion reply.
	fallbackIntro = "I couldn't look that one up, but try searching for it:"
)

// FormatEquivalence renders an equivalence as one line per service, in display order.
//
// Fails when the mapping carries no links, which keeps an empty remote
// result from winning the race.
func FormatEquivalence(eq *models.Equivalence) (string, error) {
	if !eq.Usable() {
		return "", shared.ErrEmptyResult
	}

	var lines []string
	for _, svc := range models.Services {
		if link, ok := eq.Links[svc]; ok && link != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", svc.DisplayName(), link))
		}
	}

	return strings.Join(lines, "\n"), nil
}

// SearchURL builds the public search URL for a query on the given service.
func SearchURL(svc models.Service, query string) string {
	switch svc {
	case models.ServiceSpotify:
		return "https://open.spotify.com/search/" + url.PathEscape(query)
	case models.ServiceAppleMusic:
		return "https://music.apple.com/us/search?term=" + url.QueryEscape(query)
	case models.ServiceYouTubeMusic:
		return "https://music.youtube.com/search?q=" + url.QueryEscape(query)
	default:
		return ""
	}
}

// FormatFallback renders search suggestions for every service except the
// one the candidate already belongs to.
func FormatFallback(cand models.Candidate, query string) string {
	if strings.TrimSpace(query) == "" {
		query = cand.URL
	}

	lines := []string{fallbackIntro}
	for _, svc := range models.Services {
		if svc == cand.Service {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", svc.DisplayName(), SearchURL(svc, query)))
	}

	return strings.Join(lines, "\n")
}

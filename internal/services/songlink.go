// song.link (Odesli) implementation of [Equivalencer]
//
// API shape documented at https://odesli.co/docs — only the linksByPlatform
// mapping is consumed, and only the three supported platform keys.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/chorus/internal/models"
	"github.com/desertthunder/chorus/internal/shared"
)

const songLinkBaseURL = "https://api.song.link/v1-alpha.1"

// platformLink is one entry of the linksByPlatform mapping.
type platformLink struct {
	URL string `json:"url"`
}

// linksResponse is the subset of the song.link response body the bot reads.
type linksResponse struct {
	LinksByPlatform map[string]platformLink `json:"linksByPlatform"`
}

// SongLinkService implements [Equivalencer] against the song.link API.
type SongLinkService struct {
	baseURL    string
	country    string
	httpClient *http.Client
}

// NewSongLinkService creates a song.link client with the given country hint.
//
// baseURL defaults to the public API; client defaults to [http.DefaultClient].
func NewSongLinkService(baseURL, country string, client *http.Client) *SongLinkService {
	if baseURL == "" {
		baseURL = songLinkBaseURL
	}
	if country == "" {
		country = "US"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &SongLinkService{
		baseURL:    baseURL,
		country:    country,
		httpClient: client,
	}
}

// Lookup issues one GET against the links endpoint and extracts the three supported platform entries.
//
// A response that parses but yields zero usable links is an error
// ([shared.ErrEmptyResult]) so callers fall through to the fallback path.
func (s *SongLinkService) Lookup(ctx context.Context, target string) (*models.Equivalence, error) {
	query := url.Values{}
	query.Set("url", target)
	query.Set("userCountry", s.country)

	endpoint := fmt.Sprintf("%s/links?%s", s.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrRemote, resp.StatusCode)
	}

	var body linksResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRemote, err)
	}

	eq := &models.Equivalence{
		Links:     make(map[models.Service]string),
		Source:    models.SourceRemote,
		FetchedAt: time.Now(),
	}

	for _, svc := range models.Services {
		if entry, ok := body.LinksByPlatform[string(svc)]; ok && entry.URL != "" {
			eq.Links[svc] = entry.URL
		}
	}

	if !eq.Usable() {
		return nil, shared.ErrEmptyResult
	}

	return eq, nil
}

// oEmbed implementation of [Prober]
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/chorus/internal/models"
	"github.com/desertthunder/chorus/internal/shared"
)

// oEmbed endpoints per service. Apple Music publishes no oEmbed endpoint,
// so its candidates skip the probe and fall back to the raw URL query.
var oembedEndpoints = map[models.Service]string{
	models.ServiceSpotify:      "https://open.spotify.com/oembed",
	models.ServiceYouTubeMusic: "https://www.youtube.com/oembed",
}

// OEmbedService implements [Prober] against the public oEmbed endpoints of the supported services.
type OEmbedService struct {
	endpoints  map[models.Service]string
	httpClient *http.Client
}

// NewOEmbedService creates an oEmbed probe client.
//
// endpoints defaults to the public per-service endpoints; client defaults to [http.DefaultClient].
func NewOEmbedService(endpoints map[models.Service]string, client *http.Client) *OEmbedService {
	if endpoints == nil {
		endpoints = oembedEndpoints
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &OEmbedService{
		endpoints:  endpoints,
		httpClient: client,
	}
}

// Probe fetches title/author metadata for the candidate's URL.
func (o *OEmbedService) Probe(ctx context.Context, cand models.Candidate) (*TrackInfo, error) {
	endpoint, ok := o.endpoints[cand.Service]
	if !ok {
		return nil, fmt.Errorf("no metadata endpoint for %s", cand.Service.DisplayName())
	}

	query := url.Values{}
	query.Set("url", cand.URL)
	query.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrRemote, resp.StatusCode)
	}

	var info TrackInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRemote, err)
	}

	return &info, nil
}

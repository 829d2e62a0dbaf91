// Slack Web API implementation of [Messenger]
//
// Method reference: https://api.slack.com/methods — chat.postMessage,
// chat.update, chat.postEphemeral.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/chorus/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const slackBaseURL = "https://slack.com/api"

// slackTimeout bounds every Web API request. Delivery runs detached from
// the inbound request context, so without this a hung post would leak its
// goroutine indefinitely.
const slackTimeout = 10 * time.Second

// SlackService implements [Messenger] against the Slack Web API.
//
// Outbound posts share a [rate.Limiter] tuned to Slack's per-channel message
// tier (roughly one message per second with a small burst).
type SlackService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSlackService creates a Slack client authenticated with the given bot token.
//
// The token rides on every request via an [oauth2.StaticTokenSource] client.
// baseURL defaults to the public API.
func NewSlackService(botToken, baseURL string) (*SlackService, error) {
	if botToken == "" {
		return nil, shared.ErrMissingToken
	}
	if baseURL == "" {
		baseURL = slackBaseURL
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: botToken})
	client := oauth2.NewClient(context.Background(), source)
	client.Timeout = slackTimeout

	return &SlackService{
		baseURL:    baseURL,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(1), 3),
	}, nil
}

// apiResponse is the envelope every Slack Web API method returns.
type apiResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// call posts a JSON payload to a Web API method and decodes the envelope.
func (s *SlackService) call(ctx context.Context, method string, payload any) (*apiResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDelivery, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDelivery, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDelivery, err)
	}

	if !envelope.OK {
		if envelope.Error == "not_in_channel" || envelope.Error == "channel_not_found" {
			return nil, fmt.Errorf("%w: %s", shared.ErrNotInvited, envelope.Error)
		}
		return nil, fmt.Errorf("%w: %s", shared.ErrDelivery, envelope.Error)
	}

	return &envelope, nil
}

// PostThread posts text as a threaded reply under anchorTS and returns a handle for later edits.
func (s *SlackService) PostThread(ctx context.Context, channel, anchorTS, text string) (*MessageHandle, error) {
	payload := map[string]string{
		"channel":   channel,
		"thread_ts": anchorTS,
		"text":      text,
	}

	envelope, err := s.call(ctx, "chat.postMessage", payload)
	if err != nil {
		return nil, err
	}

	return &MessageHandle{Channel: envelope.Channel, TS: envelope.TS}, nil
}

// Update edits a previously posted message in place.
func (s *SlackService) Update(ctx context.Context, handle *MessageHandle, text string) error {
	if handle == nil || handle.TS == "" {
		return fmt.Errorf("%w: no message handle", shared.ErrDelivery)
	}

	payload := map[string]string{
		"channel": handle.Channel,
		"ts":      handle.TS,
		"text":    text,
	}

	_, err := s.call(ctx, "chat.update", payload)
	return err
}

// PostEphemeral posts a sender-only-visible notice in the channel.
func (s *SlackService) PostEphemeral(ctx context.Context, channel, user, text string) error {
	payload := map[string]string{
		"channel": channel,
		"user":    user,
		"text":    text,
	}

	_, err := s.call(ctx, "chat.postEphemeral", payload)
	return err
}

package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chorus/internal/models"
	"github.com/desertthunder/chorus/internal/shared"
)

// EventProcessor handles one inbound message event. Implemented by tasks.Pipeline.
type EventProcessor interface {
	HandleEvent(ctx context.Context, event models.MessageEvent)
}

// eventEnvelope is the outer Slack Events API payload.
type eventEnvelope struct {
	Type      string       `json:"type"`
	Challenge string       `json:"challenge"`
	EventID   string       `json:"event_id"`
	Event     messageEvent `json:"event"`
}

// messageEvent is the inner event object for message events.
//
// For message_changed events the revised message rides in the nested
// message field.
type messageEvent struct {
	Type        string              `json:"type"`
	Subtype     string              `json:"subtype"`
	BotID       string              `json:"bot_id"`
	Channel     string              `json:"channel"`
	User        string              `json:"user"`
	Text        string              `json:"text"`
	TS          string              `json:"ts"`
	ThreadTS    string              `json:"thread_ts"`
	Attachments []models.Attachment `json:"attachments"`
	Message     *nestedMessage      `json:"message"`
}

type nestedMessage struct {
	Text        string              `json:"text"`
	User        string              `json:"user"`
	TS          string              `json:"ts"`
	ThreadTS    string              `json:"thread_ts"`
	BotID       string              `json:"bot_id"`
	Attachments []models.Attachment `json:"attachments"`
}

// ignoredSubtypes marks synthetic message subtypes the bot never replies to.
var ignoredSubtypes = map[string]bool{
	"bot_message":     true,
	"message_deleted": true,
	"channel_join":    true,
	"channel_leave":   true,
}

// EventsHandler receives Slack Events API callbacks, acks them immediately,
// and dispatches message events to the pipeline asynchronously.
type EventsHandler struct {
	processor      EventProcessor
	channelAllowed func(string) bool
	logger         *log.Logger
}

// NewEventsHandler creates the webhook handler.
//
// channelAllowed filters events by channel; nil allows every channel.
func NewEventsHandler(processor EventProcessor, channelAllowed func(string) bool, logger *log.Logger) *EventsHandler {
	if channelAllowed == nil {
		channelAllowed = func(string) bool { return true }
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &EventsHandler{
		processor:      processor,
		channelAllowed: channelAllowed,
		logger:         logger,
	}
}

// Routes returns the path patterns this handler serves.
func (h *EventsHandler) Routes() []string {
	return []string{"/slack/events"}
}

// ServeHTTP parses the envelope, answers URL-verification challenges, and
// hands message events to the pipeline. The 200 ack goes out before the
// resolution work runs so the platform never retries a slow lookup.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var envelope eventEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	if envelope.Type == "url_verification" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"challenge": envelope.Challenge})
		return
	}

	event, ok := h.accept(envelope)
	w.WriteHeader(http.StatusOK)
	if !ok {
		return
	}

	go h.processor.HandleEvent(context.Background(), event)
}

// accept filters the envelope down to a processable [models.MessageEvent].
func (h *EventsHandler) accept(envelope eventEnvelope) (models.MessageEvent, bool) {
	ev := envelope.Event
	if envelope.Type != "event_callback" || ev.Type != "message" {
		return models.MessageEvent{}, false
	}
	if ev.BotID != "" || ignoredSubtypes[ev.Subtype] {
		return models.MessageEvent{}, false
	}
	if !h.channelAllowed(ev.Channel) {
		h.logger.Debug("channel not allow-listed", "channel", ev.Channel)
		return models.MessageEvent{}, false
	}

	event := models.MessageEvent{
		EventID:     envelope.EventID,
		Channel:     ev.Channel,
		User:        ev.User,
		Text:        ev.Text,
		ThreadTS:    ev.ThreadTS,
		Attachments: ev.Attachments,
	}
	if event.ThreadTS == "" {
		event.ThreadTS = ev.TS
	}

	// Edited messages carry the revised text in the nested message.
	if ev.Subtype == "message_changed" && ev.Message != nil {
		if ev.Message.BotID != "" {
			return models.MessageEvent{}, false
		}
		event.Text = ev.Message.Text
		event.User = ev.Message.User
		event.Attachments = ev.Message.Attachments
		if ev.Message.ThreadTS != "" {
			event.ThreadTS = ev.Message.ThreadTS
		} else if ev.Message.TS != "" {
			event.ThreadTS = ev.Message.TS
		}
	}

	return event, true
}

// HealthHandler answers liveness probes.
type HealthHandler struct{}

// Routes returns the path patterns this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"/healthz"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"sync"

	"github.com/desertthunder/chorus/internal/models"
	"github.com/desertthunder/chorus/internal/services"
)

// MockEquivalencer is a test double for [services.Equivalencer].
//
// Result/Err are returned once the optional Block channel fires; Calls
// counts lookups.
type MockEquivalencer struct {
	mu     sync.Mutex
	Result *models.Equivalence
	Err    error
	Block  <-chan struct{} // when set, Lookup waits for Block or ctx
	calls  int
}

func (m *MockEquivalencer) Lookup(ctx context.Context, url string) (*models.Equivalence, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// Calls returns how many lookups were issued.
func (m *MockEquivalencer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockProber is a test double for [services.Prober].
type MockProber struct {
	Info  *services.TrackInfo
	Err   error
	Block <-chan struct{}
}

func (m *MockProber) Probe(ctx context.Context, cand models.Candidate) (*services.TrackInfo, error) {
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Info, nil
}

// PostedMessage records one delivery made through [MockMessenger].
type PostedMessage struct {
	Method  string // "post", "update", or "ephemeral"
	Channel string
	TS      string
	Text    string
}

// MockMessenger is a test double for [services.Messenger] that records every delivery.
type MockMessenger struct {
	mu        sync.Mutex
	PostErr   error
	UpdateErr error
	EphErr    error
	Messages  []PostedMessage
}

func (m *MockMessenger) PostThread(ctx context.Context, channel, anchorTS, text string) (*services.MessageHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PostErr != nil {
		return nil, m.PostErr
	}
	m.Messages = append(m.Messages, PostedMessage{Method: "post", Channel: channel, TS: anchorTS, Text: text})
	return &services.MessageHandle{Channel: channel, TS: "1700000000.000100"}, nil
}

func (m *MockMessenger) Update(ctx context.Context, handle *services.MessageHandle, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if handle == nil {
		return errors.New("nil handle")
	}
	m.Messages = append(m.Messages, PostedMessage{Method: "update", Channel: handle.Channel, TS: handle.TS, Text: text})
	return nil
}

func (m *MockMessenger) PostEphemeral(ctx context.Context, channel, user, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.EphErr != nil {
		return m.EphErr
	}
	m.Messages = append(m.Messages, PostedMessage{Method: "ephemeral", Channel: channel, Text: text})
	return nil
}

// Sent returns a copy of the recorded deliveries.
func (m *MockMessenger) Sent() []PostedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PostedMessage, len(m.Messages))
	copy(out, m.Messages)
	return out
}

// MockRecorder is a test double for tasks.Recorder.
type MockRecorder struct {
	mu      sync.Mutex
	Err     error
	Records []models.Resolution
}

func (m *MockRecorder) Record(ctx context.Context, res models.Resolution) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Records = append(m.Records, res)
	return nil
}

// Recorded returns a copy of the recorded rows.
func (m *MockRecorder) Recorded() []models.Resolution {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Resolution, len(m.Records))
	copy(out, m.Records)
	return out
}

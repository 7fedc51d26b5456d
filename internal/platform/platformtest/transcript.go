// Package platformtest provides an in-memory chat transcript for tests.
package platformtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robalyx/retract/internal/platform"
)

// Operation names recorded in Calls.
const (
	OpFetch   = "fetch"
	OpEdit    = "edit"
	OpDelete  = "delete"
	OpSend    = "send"
	OpChannel = "channel"
)

// Call is one recorded transcript operation.
type Call struct {
	Op        string
	ChannelID string
	MessageID string
	Content   string
}

// Transcript is an in-memory platform.Transcript.
type Transcript struct {
	mu       sync.Mutex
	messages map[string]*platform.Message // keyed by message ID
	channels map[string]*platform.Channel
	calls    []Call
	failures map[string]error
	delay    time.Duration
	nextID   int
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{
		messages: make(map[string]*platform.Message),
		channels: make(map[string]*platform.Channel),
		failures: make(map[string]error),
	}
}

// AddMessage stores a message and registers its channel.
func (t *Transcript) AddMessage(msg platform.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stored := msg
	t.messages[msg.ID] = &stored

	if _, ok := t.channels[msg.ChannelID]; !ok {
		t.channels[msg.ChannelID] = &platform.Channel{ID: msg.ChannelID, Name: "channel-" + msg.ChannelID}
	}
}

// Fail makes every call of op return err. Pass nil to clear.
func (t *Transcript) Fail(op string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err == nil {
		delete(t.failures, op)
		return
	}

	t.failures[op] = err
}

// SetDelay makes every call wait for d or until its context is done.
func (t *Transcript) SetDelay(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delay = d
}

// Message returns a copy of the stored message.
func (t *Transcript) Message(id string) (platform.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg, ok := t.messages[id]
	if !ok {
		return platform.Message{}, false
	}

	return *msg, true
}

// Calls returns the recorded operations.
func (t *Transcript) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]Call(nil), t.calls...)
}

// CallsOf returns the recorded operations of one kind.
func (t *Transcript) CallsOf(op string) []Call {
	var result []Call

	for _, call := range t.Calls() {
		if call.Op == op {
			result = append(result, call)
		}
	}

	return result
}

func (t *Transcript) begin(ctx context.Context, call Call) error {
	t.mu.Lock()
	t.calls = append(t.calls, call)
	delay := t.delay
	failure := t.failures[call.Op]
	t.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return failure
}

// FetchMessage implements platform.Transcript.
func (t *Transcript) FetchMessage(ctx context.Context, channelID, messageID string) (*platform.Message, error) {
	if err := t.begin(ctx, Call{Op: OpFetch, ChannelID: channelID, MessageID: messageID}); err != nil {
		return nil, err
	}

	msg, ok := t.Message(messageID)
	if !ok || msg.ChannelID != channelID {
		return nil, platform.ErrNotFound
	}

	return &msg, nil
}

// EditMessage implements platform.Transcript.
func (t *Transcript) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	if err := t.begin(ctx, Call{Op: OpEdit, ChannelID: channelID, MessageID: messageID, Content: content}); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	msg, ok := t.messages[messageID]
	if !ok || msg.ChannelID != channelID {
		return platform.ErrNotFound
	}

	msg.Content = content

	return nil
}

// DeleteMessage implements platform.Transcript.
func (t *Transcript) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := t.begin(ctx, Call{Op: OpDelete, ChannelID: channelID, MessageID: messageID}); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	msg, ok := t.messages[messageID]
	if !ok || msg.ChannelID != channelID {
		return platform.ErrNotFound
	}

	delete(t.messages, messageID)

	return nil
}

// SendMessage implements platform.Transcript.
func (t *Transcript) SendMessage(ctx context.Context, channelID, content string) (*platform.Message, error) {
	if err := t.begin(ctx, Call{Op: OpSend, ChannelID: channelID, Content: content}); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	msg := &platform.Message{
		ID:        fmt.Sprintf("sent-%d", t.nextID),
		ChannelID: channelID,
		AuthorID:  "bot",
		Content:   content,
		CreatedAt: time.Now(),
	}
	t.messages[msg.ID] = msg

	result := *msg

	return &result, nil
}

// FetchChannel implements platform.Transcript.
func (t *Transcript) FetchChannel(ctx context.Context, channelID string) (*platform.Channel, error) {
	if err := t.begin(ctx, Call{Op: OpChannel, ChannelID: channelID}); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	channel, ok := t.channels[channelID]
	if !ok {
		return nil, platform.ErrNotFound
	}

	result := *channel

	return &result, nil
}

var _ platform.Transcript = (*Transcript)(nil)

// Package inbox keeps a local copy of one conversation and refreshes it by polling.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spigell/skillmatch/internal/market"
)

// Thread is display state for one application's conversation.
// Locally appended messages are provisional: the next Replace overwrites them.
type Thread struct {
	applicationID string

	mu       sync.RWMutex
	messages []*market.Message
	pending  map[*market.Message]struct{}
	now      func() time.Time
}

func NewThread(applicationID string) *Thread {
	return &Thread{
		applicationID: applicationID,
		pending:       make(map[*market.Message]struct{}),
		now:           time.Now,
	}
}

func (t *Thread) ApplicationID() string { return t.applicationID }

// Append adds a provisional message at the end of the thread.
func (t *Thread) Append(senderID, content string) *market.Message {
	msg := &market.Message{
		ApplicationID: t.applicationID,
		SenderID:      senderID,
		Content:       content,
		CreatedAt:     t.now().UTC(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
	t.pending[msg] = struct{}{}
	return msg
}

// Discard removes a provisional message whose send failed.
func (t *Thread) Discard(msg *market.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[msg]; !ok {
		return
	}
	delete(t.pending, msg)

	kept := t.messages[:0]
	for _, m := range t.messages {
		if m != msg {
			kept = append(kept, m)
		}
	}
	t.messages = kept
}

// Replace sets the thread to the server log. Last write wins.
func (t *Thread) Replace(messages []*market.Message) {
	copied := make([]*market.Message, 0, len(messages))
	for _, m := range messages {
		if m != nil {
			copied = append(copied, m)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = copied
	t.pending = make(map[*market.Message]struct{})
}

// Messages returns a snapshot of the thread.
func (t *Thread) Messages() []*market.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*market.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Thread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Pending counts provisional messages not yet confirmed by a fetch.
func (t *Thread) Pending() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.pending)
}

func (t *Thread) IsPending(msg *market.Message) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.pending[msg]
	return ok
}

// Sender is the write side of a conversation.
type Sender interface {
	SendMessage(ctx context.Context, applicationID, senderID, content string) (*market.Message, error)
}

// Send appends content optimistically and sends it. A failed send is rolled back.
func Send(ctx context.Context, thread *Thread, sender Sender, senderID, content string) (*market.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("message content is required")
	}

	local := thread.Append(senderID, content)

	sent, err := sender.SendMessage(ctx, thread.ApplicationID(), senderID, content)
	if err != nil {
		thread.Discard(local)
		return nil, fmt.Errorf("send message: %w", err)
	}

	return sent, nil
}

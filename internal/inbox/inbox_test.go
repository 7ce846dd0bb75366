package inbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/skillmatch/internal/market"
)

type fakeConversation struct {
	mu       sync.Mutex
	messages []*market.Message
	fetchErr error
	sendErr  error
	fetches  int
}

func (f *fakeConversation) FetchMessages(context.Context, string) ([]*market.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]*market.Message, len(f.messages))
	copy(out, f.messages)
	return out, nil
}

func (f *fakeConversation) SendMessage(_ context.Context, applicationID, senderID, content string) (*market.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	msg := &market.Message{
		ID:            "m" + string(rune('0'+len(f.messages)+1)),
		ApplicationID: applicationID,
		SenderID:      senderID,
		Content:       content,
	}
	f.messages = append(f.messages, msg)
	return msg, nil
}

func (f *fakeConversation) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func TestThreadOptimisticAppendIsOverwritten(t *testing.T) {
	thread := NewThread("a1")
	local := thread.Append("u1", "hello")

	if thread.Len() != 1 || thread.Pending() != 1 || !thread.IsPending(local) {
		t.Fatalf("expected one provisional message")
	}

	server := []*market.Message{
		{ID: "m1", ApplicationID: "a1", SenderID: "e1", Content: "hi"},
		{ID: "m2", ApplicationID: "a1", SenderID: "u1", Content: "hello"},
	}
	thread.Replace(server)

	got := thread.Messages()
	if len(got) != 2 || got[0].ID != "m1" || got[1].ID != "m2" {
		t.Fatalf("expected server log, got %+v", got)
	}
	if thread.Pending() != 0 || thread.IsPending(local) {
		t.Fatal("provisional state must be cleared by a fetch")
	}
}

func TestThreadReplaceLastWriteWins(t *testing.T) {
	thread := NewThread("a1")
	thread.Replace([]*market.Message{{ID: "m1"}, {ID: "m2"}})
	thread.Replace([]*market.Message{{ID: "m1"}, nil})

	if got := thread.Messages(); len(got) != 1 || got[0].ID != "m1" {
		t.Fatalf("expected last replace to win, got %+v", got)
	}
}

func TestSendRollsBackOnFailure(t *testing.T) {
	conv := &fakeConversation{sendErr: errors.New("offline")}
	thread := NewThread("a1")
	thread.Replace([]*market.Message{{ID: "m1", Content: "earlier"}})

	if _, err := Send(context.Background(), thread, conv, "u1", "hello"); err == nil {
		t.Fatal("expected send error")
	}
	if got := thread.Messages(); len(got) != 1 || got[0].ID != "m1" {
		t.Fatalf("expected rollback, got %+v", got)
	}
}

func TestSendKeepsProvisionalUntilPoll(t *testing.T) {
	conv := &fakeConversation{}
	thread := NewThread("a1")

	sent, err := Send(context.Background(), thread, conv, "u1", "  hello ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent.Content != "hello" {
		t.Fatalf("unexpected message %+v", sent)
	}
	if thread.Pending() != 1 {
		t.Fatalf("expected provisional message, got %d", thread.Pending())
	}

	poller := NewPoller(conv, thread, time.Second, nil, nil)
	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if thread.Pending() != 0 || thread.Len() != 1 || thread.Messages()[0].ID != sent.ID {
		t.Fatalf("expected confirmed message, got %+v", thread.Messages())
	}

	if _, err := Send(context.Background(), thread, conv, "u1", "   "); err == nil {
		t.Fatal("expected error for blank content")
	}
}

func TestPollFailureKeepsState(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	conv := &fakeConversation{messages: []*market.Message{{ID: "m1"}}}
	thread := NewThread("a1")
	poller := NewPoller(conv, thread, 0, zap.New(core), nil)

	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	conv.fetchErr = errors.New("timeout")
	if err := poller.Poll(context.Background()); err == nil {
		t.Fatal("expected poll error")
	}
	if got := thread.Messages(); len(got) != 1 || got[0].ID != "m1" {
		t.Fatalf("expected previous state, got %+v", got)
	}

	entries := logs.All()
	if len(entries) != 1 || entries[0].ContextMap()["application_id"] != "a1" {
		t.Fatalf("expected one tagged warning, got %+v", entries)
	}
}

func TestPollReportsOnlyNewMessages(t *testing.T) {
	var batches [][]*market.Message
	conv := &fakeConversation{messages: []*market.Message{{ID: "m1"}, {ID: "m2"}}}
	poller := NewPoller(conv, NewThread("a1"), time.Second, nil, func(fresh []*market.Message) {
		batches = append(batches, fresh)
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := poller.Poll(ctx); err != nil {
			t.Fatalf("poll: %v", err)
		}
	}
	conv.messages = append(conv.messages, &market.Message{ID: "m3"})
	if err := poller.Poll(ctx); err != nil {
		t.Fatalf("poll: %v", err)
	}

	if len(batches) != 2 || len(batches[0]) != 2 || len(batches[1]) != 1 || batches[1][0].ID != "m3" {
		t.Fatalf("unexpected batches %+v", batches)
	}
}

func TestPollerStartPollsImmediately(t *testing.T) {
	conv := &fakeConversation{messages: []*market.Message{{ID: "m1"}}}
	thread := NewThread("a1")
	poller := NewPoller(conv, thread, time.Hour, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := poller.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer poller.Stop()

	if conv.fetchCount() != 1 || thread.Len() != 1 {
		t.Fatalf("expected an immediate poll, got %d fetches", conv.fetchCount())
	}
}

package paginator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harun/pagebot/pkg/waiter"
	"github.com/stretchr/testify/require"
)

const (
	botID    = "bot"
	authorID = "author"
	channel  = "chan-1"
)

var errTransport = errors.New("transport failure")

// fakeTransport records every call and delivers reactions through a waiter
type fakeTransport struct {
	mu sync.Mutex

	perms   Permissions
	private bool

	sent      []Payload
	edits     []Payload
	added     []Symbol
	removed   []Symbol
	clears    int
	released  []Message
	deletes   int
	nextID    int
	failClear bool
	failEdit  bool

	reactions *waiter.Waiter[Reaction]
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		perms:     AllPermissions(),
		reactions: waiter.New[Reaction](),
	}
}

func (f *fakeTransport) SendMessage(_ context.Context, channelID string, payload Payload) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, payload)
	return Message{ID: fmt.Sprintf("msg-%d", f.nextID), ChannelID: channelID}, nil
}

func (f *fakeTransport) EditMessage(_ context.Context, _ Message, payload Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEdit {
		return errTransport
	}
	f.edits = append(f.edits, payload)
	return nil
}

func (f *fakeTransport) DeleteMessage(ctx context.Context, _ Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return nil
}

func (f *fakeTransport) AddReaction(_ context.Context, _ Message, symbol Symbol) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, symbol)
	return nil
}

func (f *fakeTransport) RemoveReaction(_ context.Context, _ Message, symbol Symbol, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, symbol)
	if f.failClear {
		return errTransport
	}
	return nil
}

func (f *fakeTransport) ClearReactions(ctx context.Context, _ Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	if f.failClear {
		return errTransport
	}
	return nil
}

func (f *fakeTransport) Permissions(context.Context, string, string) (Permissions, error) {
	return f.perms, nil
}

func (f *fakeTransport) IsPrivate(context.Context, string) (bool, error) {
	return f.private, nil
}

func (f *fakeTransport) WaitForReaction(ctx context.Context, check func(Reaction) bool, timeout time.Duration) (Reaction, error) {
	return f.reactions.Wait(ctx, check, timeout)
}

func (f *fakeTransport) Release(msg Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, msg)
}

func (f *fakeTransport) SelfID() string {
	return botID
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeTransport) editCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edits)
}

func (f *fakeTransport) lastEdit() Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edits[len(f.edits)-1]
}

func (f *fakeTransport) addedSymbols() []Symbol {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Symbol(nil), f.added...)
}

// react publishes a reaction once the session is waiting for one
func (f *fakeTransport) react(t *testing.T, messageID, userID string, symbol Symbol) int {
	t.Helper()
	require.Eventually(t, func() bool { return f.reactions.Pending() > 0 }, time.Second, time.Millisecond)
	return f.reactions.Publish(Reaction{
		MessageID: messageID,
		ChannelID: channel,
		UserID:    userID,
		Symbol:    symbol,
	})
}

func testSeed() Seed {
	return Seed{ChannelID: channel, AuthorID: authorID, MessageID: "seed"}
}

func makeEntries(n int) []string {
	entries := make([]string, n)
	for i := range entries {
		entries[i] = fmt.Sprintf("entry %d", i+1)
	}
	return entries
}

// runAsync starts Run and returns a channel with its result
func runAsync(s *Session) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- s.Run(context.Background())
	}()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end")
		return nil
	}
}

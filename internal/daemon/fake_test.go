package daemon

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/harun/pagebot/internal/config"
	"github.com/harun/pagebot/internal/logger"
	"github.com/harun/pagebot/internal/telegram"
	"github.com/harun/pagebot/pkg/channels"
	"github.com/harun/pagebot/pkg/paginator"
	"github.com/harun/pagebot/pkg/waiter"
	"github.com/stretchr/testify/require"
)

const testCatalog = `characters:
  - name: Eternal Oblivion
    level: 480
    vocation: Elite Knight
    world: Secura
  - name: Aurora
    level: 320
    vocation: Elder Druid
    world: Antica
  - name: Bubble
    level: 210
    vocation: Royal Paladin
    world: Secura
`

// newTestDaemon builds a daemon with no platform channels enabled
func newTestDaemon(t *testing.T, mutate func(cfg *config.Config)) *Daemon {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Channels.Telegram.Enabled = false
	cfg.Catalog.Watch = false
	if mutate != nil {
		mutate(cfg)
	}

	log, err := logger.New(logger.Config{Level: "debug", Console: false})
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	d, err := New(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if d.Status().Running {
			_ = d.Stop()
		} else {
			_ = d.queue.Close()
		}
	})
	return d
}

// fakeChannel records the dispatch function it was started with
type fakeChannel struct {
	name string

	mu       sync.Mutex
	dispatch channels.DispatchFunc
	started  bool
	stopped  bool
	startErr error
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Start(_ context.Context, dispatch channels.DispatchFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.dispatch = dispatch
	c.started = true
	return nil
}

func (c *fakeChannel) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	return nil
}

// menuChannel also publishes a command menu
type menuChannel struct {
	fakeChannel
	commands []telegram.CommandInfo
}

func (c *menuChannel) SetCommands(commands []telegram.CommandInfo) error {
	c.commands = commands
	return nil
}

// fakeTransport is an in-memory chat platform
type fakeTransport struct {
	mu        sync.Mutex
	perms     paginator.Permissions
	private   bool
	nextID    int
	sent      []paginator.Payload
	edits     []paginator.Payload
	deleted   []string
	reactions []paginator.Symbol
	cleared   int

	events *waiter.Waiter[paginator.Reaction]
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		perms:  paginator.AllPermissions(),
		events: waiter.New[paginator.Reaction](),
	}
}

func (f *fakeTransport) SendMessage(_ context.Context, channelID string, payload paginator.Payload) (paginator.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, payload)
	return paginator.Message{ID: strconv.Itoa(f.nextID), ChannelID: channelID}, nil
}

func (f *fakeTransport) EditMessage(_ context.Context, _ paginator.Message, payload paginator.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, payload)
	return nil
}

func (f *fakeTransport) DeleteMessage(_ context.Context, msg paginator.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, msg.ID)
	return nil
}

func (f *fakeTransport) AddReaction(_ context.Context, _ paginator.Message, symbol paginator.Symbol) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, symbol)
	return nil
}

func (f *fakeTransport) RemoveReaction(context.Context, paginator.Message, paginator.Symbol, string) error {
	return nil
}

func (f *fakeTransport) ClearReactions(context.Context, paginator.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return nil
}

func (f *fakeTransport) Permissions(context.Context, string, string) (paginator.Permissions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perms, nil
}

func (f *fakeTransport) IsPrivate(context.Context, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.private, nil
}

func (f *fakeTransport) WaitForReaction(ctx context.Context, check func(paginator.Reaction) bool, timeout time.Duration) (paginator.Reaction, error) {
	return f.events.Wait(ctx, check, timeout)
}

func (f *fakeTransport) SelfID() string { return "bot" }

// react delivers a reaction from userID on message id
func (f *fakeTransport) react(messageID, userID string, symbol paginator.Symbol) {
	f.events.Publish(paginator.Reaction{
		MessageID: messageID,
		ChannelID: "chan",
		UserID:    userID,
		Symbol:    symbol,
	})
}

func (f *fakeTransport) sentPayloads() []paginator.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]paginator.Payload(nil), f.sent...)
}

func (f *fakeTransport) addedReactions() []paginator.Symbol {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]paginator.Symbol(nil), f.reactions...)
}

func (f *fakeTransport) deletedMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

var invocationSeq int

// invocation builds a command from author "alice" in channel "chan"
func invocation(t *fakeTransport, command, args string) channels.Invocation {
	invocationSeq++
	return channels.Invocation{
		Platform:  "fake",
		ChannelID: "chan",
		AuthorID:  "alice",
		MessageID: fmt.Sprintf("m%d", invocationSeq),
		Command:   command,
		Args:      args,
		Transport: t,
	}
}

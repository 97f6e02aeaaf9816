package channels

import (
	"context"
	"testing"

	"github.com/harun/pagebot/pkg/paginator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testChannel struct {
	name       string
	startCalls int
	stopCalls  int
	dispatch   DispatchFunc
}

func (c *testChannel) Name() string {
	return c.name
}

func (c *testChannel) Start(_ context.Context, dispatch DispatchFunc) error {
	if dispatch == nil {
		return assert.AnError
	}
	c.startCalls++
	c.dispatch = dispatch
	return nil
}

func (c *testChannel) Stop(_ context.Context) error {
	c.stopCalls++
	return nil
}

// stubTransport satisfies paginator.Transport; registry tests never call it
type stubTransport struct {
	paginator.Transport
}

func TestRegistry_RegisterStartDispatchStop(t *testing.T) {
	var got []Invocation
	reg := NewRegistry(func(_ context.Context, inv Invocation) error {
		got = append(got, inv)
		return nil
	})

	ch := &testChannel{name: "telegram"}
	require.NoError(t, reg.Register(ch))
	assert.True(t, reg.IsRegistered("telegram"))
	assert.Equal(t, []string{"telegram"}, reg.Names())

	require.NoError(t, reg.StartAll(context.Background()))
	assert.Equal(t, 1, ch.startCalls)
	assert.True(t, reg.Started("telegram"))

	// Channels dispatch through the registry
	err := ch.dispatch(context.Background(), Invocation{
		Platform:  "telegram",
		ChannelID: "100",
		AuthorID:  "7",
		MessageID: "55",
		Command:   "list",
		Args:      "a, b",
		Transport: stubTransport{},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "list", got[0].Command)
	assert.Equal(t, paginator.Seed{ChannelID: "100", AuthorID: "7", MessageID: "55"}, got[0].Seed())

	// Starting twice is a no-op
	require.NoError(t, reg.Start(context.Background(), "telegram"))
	assert.Equal(t, 1, ch.startCalls)

	require.NoError(t, reg.StopAll(context.Background()))
	assert.Equal(t, 1, ch.stopCalls)
	assert.False(t, reg.Started("telegram"))
}

func TestRegistry_DispatchValidation(t *testing.T) {
	reg := NewRegistry(func(_ context.Context, inv Invocation) error {
		return nil
	})
	require.NoError(t, reg.Register(&testChannel{name: "discord"}))

	t.Run("unknown channel", func(t *testing.T) {
		err := reg.Dispatch(context.Background(), Invocation{Platform: "telegram", Transport: stubTransport{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not registered")
	})

	t.Run("missing platform", func(t *testing.T) {
		err := reg.Dispatch(context.Background(), Invocation{Transport: stubTransport{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "platform is required")
	})

	t.Run("missing transport", func(t *testing.T) {
		err := reg.Dispatch(context.Background(), Invocation{Platform: "discord"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "transport")
	})
}

func TestRegistry_RejectsDuplicateChannel(t *testing.T) {
	reg := NewRegistry(func(_ context.Context, inv Invocation) error {
		return nil
	})

	require.NoError(t, reg.Register(&testChannel{name: "discord"}))
	err := reg.Register(&testChannel{name: "discord"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	assert.Error(t, reg.Register(nil))
	assert.Error(t, reg.Register(&testChannel{name: " "}))

	ch, ok := reg.Get(" discord ")
	require.True(t, ok)
	assert.Equal(t, "discord", ch.Name())
	_, ok = reg.Get("telegram")
	assert.False(t, ok)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text, prefix string
		name, args   string
		ok           bool
	}{
		{text: "/list a, b, c", prefix: "/", name: "list", args: "a, b, c", ok: true},
		{text: "/characters@pagebot antica", prefix: "/", name: "characters", args: "antica", ok: true},
		{text: "  /HELP  ", prefix: "/", name: "help", args: "", ok: true},
		{text: "!chars   secura  ", prefix: "!", name: "chars", args: "secura", ok: true},
		{text: "hello", prefix: "/", ok: false},
		{text: "/", prefix: "/", ok: false},
		{text: "/list", prefix: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			name, args, ok := ParseCommand(tt.text, tt.prefix)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.args, args)
		})
	}
}

package paginator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmAsync(ft *fakeTransport, opts ConfirmOptions) (<-chan bool, <-chan error) {
	answers := make(chan bool, 1)
	errs := make(chan error, 1)
	go func() {
		ok, err := Confirm(context.Background(), ft, testSeed(), Message{ID: "prompt", ChannelID: channel}, opts)
		answers <- ok
		errs <- err
	}()
	return answers, errs
}

func TestConfirm(t *testing.T) {
	t.Run("yes", func(t *testing.T) {
		ft := newFakeTransport()
		answers, errs := confirmAsync(ft, ConfirmOptions{Timeout: time.Second})

		assert.Equal(t, 0, ft.react(t, "prompt", "someone-else", SymbolYes))
		assert.Equal(t, 1, ft.react(t, "prompt", authorID, SymbolYes))

		assert.True(t, <-answers)
		assert.NoError(t, <-errs)
		assert.Equal(t, []Symbol{SymbolYes, SymbolNo}, ft.addedSymbols())
		assert.Equal(t, 1, ft.clears)
	})

	t.Run("no with checkmarks and delete", func(t *testing.T) {
		ft := newFakeTransport()
		answers, errs := confirmAsync(ft, ConfirmOptions{Timeout: time.Second, UseCheckmark: true, DeleteAfter: true})

		assert.Equal(t, 0, ft.react(t, "prompt", authorID, SymbolNo))
		assert.Equal(t, 1, ft.react(t, "prompt", authorID, SymbolCross))

		assert.False(t, <-answers)
		assert.NoError(t, <-errs)
		assert.Equal(t, 1, ft.deletes)
		assert.Equal(t, 0, ft.clears)
	})

	t.Run("timeout", func(t *testing.T) {
		ft := newFakeTransport()
		ok, err := Confirm(context.Background(), ft, testSeed(), Message{ID: "prompt", ChannelID: channel}, ConfirmOptions{Timeout: 10 * time.Millisecond})
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrNoAnswer)
	})

	t.Run("private channel keeps reactions", func(t *testing.T) {
		ft := newFakeTransport()
		ft.private = true
		_, err := Confirm(context.Background(), ft, testSeed(), Message{ID: "prompt", ChannelID: channel}, ConfirmOptions{Timeout: 10 * time.Millisecond})
		assert.ErrorIs(t, err, ErrNoAnswer)
		assert.Equal(t, 0, ft.clears)
	})

	t.Run("canceled wait still removes the prompt", func(t *testing.T) {
		ft := newFakeTransport()
		ctx, cancel := context.WithCancel(context.Background())
		errs := make(chan error, 1)
		go func() {
			_, err := Confirm(ctx, ft, testSeed(), Message{ID: "prompt", ChannelID: channel}, ConfirmOptions{Timeout: time.Minute, DeleteAfter: true})
			errs <- err
		}()

		require.Eventually(t, func() bool { return ft.reactions.Pending() == 1 }, time.Second, time.Millisecond)
		cancel()

		assert.ErrorIs(t, <-errs, context.Canceled)
		ft.mu.Lock()
		defer ft.mu.Unlock()
		assert.Equal(t, 1, ft.deletes)
	})

	t.Run("requires add reactions", func(t *testing.T) {
		ft := newFakeTransport()
		ft.perms.AddReactions = false
		_, err := Confirm(context.Background(), ft, testSeed(), Message{ID: "prompt", ChannelID: channel}, ConfirmOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCannotPaginate)
		assert.Empty(t, ft.addedSymbols())
	})
}

package paginator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("computes page bounds", func(t *testing.T) {
		for _, tc := range []struct {
			n, perPage, pages int
			paginating        bool
		}{
			{n: 25, perPage: 10, pages: 3, paginating: true},
			{n: 20, perPage: 10, pages: 2, paginating: true},
			{n: 10, perPage: 10, pages: 1, paginating: false},
			{n: 3, perPage: 10, pages: 1, paginating: false},
			{n: 0, perPage: 10, pages: 0, paginating: false},
			{n: 7, perPage: 1, pages: 7, paginating: true},
		} {
			opts := DefaultOptions()
			opts.PerPage = tc.perPage
			s, err := New(ctx, newFakeTransport(), testSeed(), makeEntries(tc.n), opts)
			require.NoError(t, err)
			assert.Equal(t, tc.pages, s.MaximumPage(), "n=%d perPage=%d", tc.n, tc.perPage)
			assert.Equal(t, tc.paginating, s.Paginating())
			assert.Equal(t, 1, s.CurrentPage())
			assert.NotEmpty(t, s.ID())
		}
	})

	t.Run("rejects non positive page size", func(t *testing.T) {
		opts := DefaultOptions()
		opts.PerPage = 0
		_, err := New(ctx, newFakeTransport(), testSeed(), makeEntries(3), opts)
		assert.ErrorIs(t, err, ErrInvalidPerPage)
	})

	t.Run("missing capabilities", func(t *testing.T) {
		ft := newFakeTransport()
		ft.perms = Permissions{Embed: true}

		_, err := New(ctx, ft, testSeed(), makeEntries(30), DefaultOptions())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCannotPaginate)

		var capErr *CapabilityError
		require.True(t, errors.As(err, &capErr))
		assert.Equal(t, []string{"add reactions", "read message history"}, capErr.Missing)
		assert.Equal(t, 0, ft.sentCount(), "nothing is rendered before the check")
	})

	t.Run("default bindings", func(t *testing.T) {
		s, err := New(ctx, newFakeTransport(), testSeed(), makeEntries(30), DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, []Binding{
			{Symbol: SymbolPrevious, Op: OpPrevious},
			{Symbol: SymbolNext, Op: OpNext},
			{Symbol: SymbolStop, Op: OpStop},
		}, s.Bindings())
		assert.False(t, s.Filterable())
		assert.Equal(t, NoFilter, s.ActiveFilter())
	})
}

func TestPageLines(t *testing.T) {
	entries := makeEntries(25)

	t.Run("page sizes", func(t *testing.T) {
		assert.Len(t, PageLines(entries, 1, 10, true), 10)
		assert.Len(t, PageLines(entries, 2, 10, true), 10)
		assert.Len(t, PageLines(entries, 3, 10, true), 5)
		assert.Empty(t, PageLines(entries, 4, 10, true))
		assert.Empty(t, PageLines(entries, 0, 10, true))
	})

	t.Run("numbering uses absolute index", func(t *testing.T) {
		first := PageLines(entries, 1, 10, true)
		assert.Equal(t, "1. entry 1", first[0])

		last := PageLines(entries, 3, 10, true)
		assert.Equal(t, "25. entry 25", last[len(last)-1])
		assert.Equal(t, "21. entry 21", last[0])
	})

	t.Run("without numbering", func(t *testing.T) {
		lines := PageLines(entries, 2, 10, false)
		assert.Equal(t, "entry 11", lines[0])
	})
}

func TestFooterText(t *testing.T) {
	assert.Equal(t, "Page 3/3 (25 entries)", FooterText(3, 3, 25))
}

func TestShowPageRendersPayload(t *testing.T) {
	ft := newFakeTransport()
	opts := DefaultOptions()
	opts.Title = "Characters"
	opts.Description = "Online now"
	opts.Author = "Antica"
	opts.AuthorIcon = "https://example.com/icon.png"
	opts.Color = 0x1f8b4c

	s, err := New(context.Background(), ft, testSeed(), makeEntries(25), opts)
	require.NoError(t, err)
	require.NoError(t, s.showPage(context.Background(), 1, true))

	require.Equal(t, 1, ft.sentCount())
	p := ft.sent[0]
	assert.Equal(t, "Characters", p.Title)
	assert.Equal(t, "Page 1/3 (25 entries)", p.Footer)
	assert.True(t, strings.HasPrefix(p.Description, "Online now\n1. entry 1\n"))
	assert.Equal(t, 0x1f8b4c, p.Color)
	require.NotNil(t, p.Author)
	assert.Equal(t, "Antica", p.Author.Name)
	assert.Equal(t, "https://example.com/icon.png", p.Author.IconURL)

	msg, ok := s.Message()
	require.True(t, ok)
	assert.Equal(t, "msg-1", msg.ID)
	assert.Equal(t, []Symbol{SymbolPrevious, SymbolNext, SymbolStop}, ft.addedSymbols())
}

func TestNavigation(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	s, err := New(ctx, ft, testSeed(), makeEntries(25), DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, s.showPage(ctx, 1, true))

	t.Run("next and previous", func(t *testing.T) {
		require.NoError(t, s.Next(ctx))
		assert.Equal(t, 2, s.CurrentPage())
		assert.Equal(t, "Page 2/3 (25 entries)", ft.lastEdit().Footer)

		require.NoError(t, s.Previous(ctx))
		assert.Equal(t, 1, s.CurrentPage())
	})

	t.Run("out of range is a no-op", func(t *testing.T) {
		edits := ft.editCount()

		require.NoError(t, s.Previous(ctx))
		require.NoError(t, s.GoToPage(ctx, 0))
		require.NoError(t, s.GoToPage(ctx, 4))
		require.NoError(t, s.GoToPage(ctx, -3))

		assert.Equal(t, 1, s.CurrentPage())
		assert.Equal(t, edits, ft.editCount())
		assert.Equal(t, 1, ft.sentCount(), "re-renders edit instead of sending")
	})

	t.Run("last and first", func(t *testing.T) {
		require.NoError(t, s.Last(ctx))
		assert.Equal(t, 3, s.CurrentPage())
		assert.Contains(t, ft.lastEdit().Description, "25. entry 25")

		require.NoError(t, s.Next(ctx))
		assert.Equal(t, 3, s.CurrentPage())

		require.NoError(t, s.First(ctx))
		assert.Equal(t, 1, s.CurrentPage())
	})

	t.Run("show current page", func(t *testing.T) {
		edits := ft.editCount()
		require.NoError(t, s.ShowCurrentPage(ctx))
		assert.Equal(t, edits+1, ft.editCount())
	})
}

func TestStop(t *testing.T) {
	ctx := context.Background()

	t.Run("clears reactions and renders page one", func(t *testing.T) {
		ft := newFakeTransport()
		s, err := New(ctx, ft, testSeed(), makeEntries(25), DefaultOptions())
		require.NoError(t, err)
		require.NoError(t, s.showPage(ctx, 1, true))
		require.NoError(t, s.Last(ctx))

		require.NoError(t, s.Stop(ctx))
		assert.Equal(t, 1, ft.clears)
		assert.Equal(t, 1, s.CurrentPage())
		assert.Equal(t, "Page 1/3 (25 entries)", ft.lastEdit().Footer)
		assert.False(t, s.Paginating())
		assert.True(t, s.Stopped())
	})

	t.Run("stopped session rejects operations", func(t *testing.T) {
		ft := newFakeTransport()
		s, err := New(ctx, ft, testSeed(), makeEntries(25), DefaultOptions())
		require.NoError(t, err)
		require.NoError(t, s.showPage(ctx, 1, true))
		require.NoError(t, s.Stop(ctx))
		edits := ft.editCount()

		assert.ErrorIs(t, s.Next(ctx), ErrSessionStopped)
		assert.ErrorIs(t, s.Stop(ctx), ErrSessionStopped)
		assert.ErrorIs(t, s.ToggleFilter(ctx, 0), ErrSessionStopped)
		assert.ErrorIs(t, s.Run(ctx), ErrSessionStopped)
		assert.Equal(t, edits, ft.editCount())
	})

	t.Run("private channel keeps reactions", func(t *testing.T) {
		ft := newFakeTransport()
		ft.private = true
		s, err := New(ctx, ft, testSeed(), makeEntries(25), DefaultOptions())
		require.NoError(t, err)
		require.NoError(t, s.showPage(ctx, 1, true))

		require.NoError(t, s.Stop(ctx))
		assert.Equal(t, 0, ft.clears)
	})

	t.Run("clear failure is swallowed", func(t *testing.T) {
		ft := newFakeTransport()
		ft.failClear = true
		s, err := New(ctx, ft, testSeed(), makeEntries(25), DefaultOptions())
		require.NoError(t, err)
		require.NoError(t, s.showPage(ctx, 1, true))

		assert.NoError(t, s.Stop(ctx))
		assert.Equal(t, 1, ft.clears)
	})
}

func TestAttachTriggers(t *testing.T) {
	ctx := context.Background()

	t.Run("private channel skips stop", func(t *testing.T) {
		ft := newFakeTransport()
		ft.private = true
		s, err := New(ctx, ft, testSeed(), makeEntries(25), DefaultOptions())
		require.NoError(t, err)
		require.NoError(t, s.showPage(ctx, 1, true))
		assert.Equal(t, []Symbol{SymbolPrevious, SymbolNext}, ft.addedSymbols())
	})

	t.Run("jump controls", func(t *testing.T) {
		ft := newFakeTransport()
		opts := DefaultOptions()
		opts.JumpControls = true
		s, err := New(ctx, ft, testSeed(), makeEntries(25), opts)
		require.NoError(t, err)
		require.NoError(t, s.showPage(ctx, 1, true))
		assert.Equal(t, []Symbol{SymbolFirst, SymbolPrevious, SymbolNext, SymbolLast, SymbolStop}, ft.addedSymbols())
	})

	t.Run("jump controls hidden with two pages", func(t *testing.T) {
		ft := newFakeTransport()
		opts := DefaultOptions()
		opts.JumpControls = true
		s, err := New(ctx, ft, testSeed(), makeEntries(15), opts)
		require.NoError(t, err)
		require.NoError(t, s.showPage(ctx, 1, true))
		assert.Equal(t, []Symbol{SymbolPrevious, SymbolNext, SymbolStop}, ft.addedSymbols())

		// Still honored when someone reacts with them anyway
		require.NoError(t, s.apply(ctx, Binding{Symbol: SymbolLast, Op: OpLast}))
		assert.Equal(t, 2, s.CurrentPage())
	})
}

func TestStaticSessionSendsOnce(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	s, err := New(ctx, ft, testSeed(), makeEntries(3), DefaultOptions())
	require.NoError(t, err)

	require.NoError(t, s.showPage(ctx, 1, true))
	require.NoError(t, s.showPage(ctx, 1, false))
	require.NoError(t, s.ShowCurrentPage(ctx))

	assert.Equal(t, 1, ft.sentCount())
	assert.Equal(t, 0, ft.editCount())
	assert.Empty(t, ft.addedSymbols())
}

func TestOperationString(t *testing.T) {
	assert.Equal(t, "next", OpNext.String())
	assert.Equal(t, "filter", OpFilter.String())
	assert.Equal(t, "unknown", Operation(42).String())
}

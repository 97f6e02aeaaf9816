package paginator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harun/pagebot/internal/observability"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout is the idle window a session waits for the next reaction
const DefaultTimeout = 120 * time.Second

// Operation is a session transition a trigger symbol is bound to
type Operation int

const (
	OpPrevious Operation = iota
	OpNext
	OpFirst
	OpLast
	OpStop
	OpFilter
)

func (o Operation) String() string {
	switch o {
	case OpPrevious:
		return "previous"
	case OpNext:
		return "next"
	case OpFirst:
		return "first"
	case OpLast:
		return "last"
	case OpStop:
		return "stop"
	case OpFilter:
		return "filter"
	default:
		return "unknown"
	}
}

// Binding maps a trigger symbol to an operation. Category is only used by OpFilter.
type Binding struct {
	Symbol   Symbol
	Op       Operation
	Category int
}

// Options configures a pagination session
type Options struct {
	PerPage     int
	Numerate    bool
	Title       string
	Description string
	Author      string
	AuthorURL   string
	AuthorIcon  string
	Color       int
	Timeout     time.Duration

	// JumpControls adds first/last triggers next to previous/next
	JumpControls bool

	Logger *zerolog.Logger
}

// DefaultOptions returns the options used when a command does not override them
func DefaultOptions() Options {
	return Options{
		PerPage:  10,
		Numerate: true,
		Timeout:  DefaultTimeout,
	}
}

// Session is one live pagination exchange bound to a single message and author
type Session struct {
	id        string
	transport Transport
	seed      Seed
	opts      Options
	logger    zerolog.Logger

	perms   Permissions
	private bool

	entries     []string
	currentPage int
	maximumPage int
	paginating  bool
	stopped     bool
	message     *Message

	bindings []Binding
	filters  *filterSet
}

// New creates a session and verifies the bot can run the interactive protocol
// in the seed channel. It returns a *CapabilityError when it cannot.
func New(ctx context.Context, t Transport, seed Seed, entries []string, opts Options) (*Session, error) {
	if opts.PerPage <= 0 {
		return nil, ErrInvalidPerPage
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	perms, err := t.Permissions(ctx, seed.ChannelID, t.SelfID())
	if err != nil {
		return nil, fmt.Errorf("failed to read channel permissions: %w", err)
	}
	if err := checkCapabilities(seed.ChannelID, perms); err != nil {
		return nil, err
	}

	private, err := t.IsPrivate(ctx, seed.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve channel kind: %w", err)
	}

	id, _ := gonanoid.New()
	base := log.Logger
	if opts.Logger != nil {
		base = *opts.Logger
	}

	s := &Session{
		id:          id,
		transport:   t,
		seed:        seed,
		opts:        opts,
		logger:      base.With().Str("component", "paginator").Str("session_id", id).Logger(),
		perms:       perms,
		private:     private,
		entries:     entries,
		currentPage: 1,
		maximumPage: pageCount(len(entries), opts.PerPage),
		paginating:  len(entries) > opts.PerPage,
	}

	s.bindings = []Binding{
		{Symbol: SymbolPrevious, Op: OpPrevious},
		{Symbol: SymbolNext, Op: OpNext},
		{Symbol: SymbolStop, Op: OpStop},
	}
	if opts.JumpControls {
		s.bindings = []Binding{
			{Symbol: SymbolFirst, Op: OpFirst},
			{Symbol: SymbolPrevious, Op: OpPrevious},
			{Symbol: SymbolNext, Op: OpNext},
			{Symbol: SymbolLast, Op: OpLast},
			{Symbol: SymbolStop, Op: OpStop},
		}
	}

	return s, nil
}

// pageCount is ceil(n / perPage)
func pageCount(n, perPage int) int {
	pages := n / perPage
	if n%perPage != 0 {
		pages++
	}
	return pages
}

// PageLines returns the display lines of a 1-based page. Numbered lines carry
// the absolute 1-based index of the entry.
func PageLines(entries []string, page, perPage int, numerate bool) []string {
	if page < 1 || perPage <= 0 {
		return nil
	}
	start := (page - 1) * perPage
	if start >= len(entries) {
		return nil
	}
	end := min(start+perPage, len(entries))

	lines := make([]string, 0, end-start)
	for i, entry := range entries[start:end] {
		if numerate {
			lines = append(lines, fmt.Sprintf("%d. %s", start+i+1, entry))
		} else {
			lines = append(lines, entry)
		}
	}
	return lines
}

// FooterText encodes the page position and the total entry count
func FooterText(page, maximumPage, total int) string {
	return fmt.Sprintf("Page %d/%d (%d entries)", page, maximumPage, total)
}

// payload builds the display payload of a page
func (s *Session) payload(page int) Payload {
	lines := PageLines(s.entries, page, s.opts.PerPage, s.opts.Numerate)

	p := Payload{
		Title:       s.opts.Title,
		Description: s.opts.Description + "\n" + strings.Join(lines, "\n"),
		Footer:      FooterText(page, s.maximumPage, len(s.entries)),
		Color:       s.opts.Color,
	}
	if s.opts.Author != "" {
		p.Author = &Author{
			Name:    s.opts.Author,
			URL:     s.opts.AuthorURL,
			IconURL: s.opts.AuthorIcon,
		}
	}
	return p
}

// showPage renders a page. The first render of a paginating session sends the
// message and attaches the triggers; later renders edit it. A session that is
// not paginating sends once and never edits.
func (s *Session) showPage(ctx context.Context, page int, first bool) error {
	s.currentPage = page
	payload := s.payload(page)

	if !s.paginating {
		if s.message != nil {
			return nil
		}
		return s.send(ctx, payload)
	}

	if !first && s.message != nil {
		if err := s.transport.EditMessage(ctx, *s.message, payload); err != nil {
			return fmt.Errorf("failed to edit page %d: %w", page, err)
		}
		observability.RecordRender("edit")
		s.logger.Debug().Int("page", page).Int("maximum_page", s.maximumPage).Msg("Page rendered")
		return nil
	}

	if err := s.send(ctx, payload); err != nil {
		return err
	}
	return s.attachTriggers(ctx)
}

func (s *Session) send(ctx context.Context, payload Payload) error {
	msg, err := s.transport.SendMessage(ctx, s.seed.ChannelID, payload)
	if err != nil {
		return fmt.Errorf("failed to send page %d: %w", s.currentPage, err)
	}
	s.message = &msg
	observability.RecordRender("send")

	s.logger.Debug().
		Str("message_id", msg.ID).
		Int("page", s.currentPage).
		Int("maximum_page", s.maximumPage).
		Bool("paginating", s.paginating).
		Msg("Page sent")
	return nil
}

// attachTriggers adds one reaction per binding in binding order
func (s *Session) attachTriggers(ctx context.Context) error {
	for _, b := range s.bindings {
		// No jump controls with two pages; they are still honored if someone reacts
		if s.maximumPage == 2 && (b.Symbol == SymbolFirst || b.Symbol == SymbolLast) {
			continue
		}
		// Private channels cannot clear reactions, so stop is not offered there
		if s.private && b.Symbol == SymbolStop {
			continue
		}
		if err := s.transport.AddReaction(ctx, *s.message, b.Symbol); err != nil {
			return fmt.Errorf("failed to add reaction %s: %w", b.Symbol, err)
		}
	}
	return nil
}

// GoToPage renders page when it is within [1, MaximumPage()] and is a no-op otherwise
func (s *Session) GoToPage(ctx context.Context, page int) error {
	if s.stopped {
		return ErrSessionStopped
	}
	if page < 1 || page > s.maximumPage {
		return nil
	}
	return s.showPage(ctx, page, false)
}

// First goes to the first page
func (s *Session) First(ctx context.Context) error {
	return s.GoToPage(ctx, 1)
}

// Last goes to the last page
func (s *Session) Last(ctx context.Context) error {
	return s.GoToPage(ctx, s.maximumPage)
}

// Next goes to the next page
func (s *Session) Next(ctx context.Context) error {
	return s.GoToPage(ctx, s.currentPage+1)
}

// Previous goes to the previous page
func (s *Session) Previous(ctx context.Context) error {
	return s.GoToPage(ctx, s.currentPage-1)
}

// ShowCurrentPage re-renders the current page while the session is paginating
func (s *Session) ShowCurrentPage(ctx context.Context) error {
	if s.stopped {
		return ErrSessionStopped
	}
	if !s.paginating {
		return nil
	}
	return s.showPage(ctx, s.currentPage, false)
}

// Stop ends the session: reactions are cleared where the channel allows it and
// page 1 is rendered one last time. No operation is accepted afterwards.
func (s *Session) Stop(ctx context.Context) error {
	if s.stopped {
		return ErrSessionStopped
	}
	defer func() {
		s.paginating = false
		s.stopped = true
	}()

	s.clearReactions(ctx)
	return s.showPage(ctx, 1, false)
}

// clearReactions removes every reaction from the session message. Failures are
// logged and dropped.
func (s *Session) clearReactions(ctx context.Context) {
	if s.private || s.message == nil {
		return
	}
	if err := s.transport.ClearReactions(ctx, *s.message); err != nil {
		observability.RecordCleanupFailure("clear")
		s.logger.Debug().Err(err).Str("message_id", s.message.ID).Msg("Failed to clear reactions")
	}
}

// apply runs the operation bound to a trigger
func (s *Session) apply(ctx context.Context, b Binding) error {
	switch b.Op {
	case OpPrevious:
		return s.Previous(ctx)
	case OpNext:
		return s.Next(ctx)
	case OpFirst:
		return s.First(ctx)
	case OpLast:
		return s.Last(ctx)
	case OpStop:
		return s.Stop(ctx)
	case OpFilter:
		return s.ToggleFilter(ctx, b.Category)
	default:
		return fmt.Errorf("unknown operation %d", b.Op)
	}
}

// ID returns the session id used in logs and traces
func (s *Session) ID() string {
	return s.id
}

// CurrentPage returns the 1-based page on display
func (s *Session) CurrentPage() int {
	return s.currentPage
}

// MaximumPage returns the page count of the current view
func (s *Session) MaximumPage() int {
	return s.maximumPage
}

// Paginating reports whether the session still accepts reactions
func (s *Session) Paginating() bool {
	return s.paginating
}

// Stopped reports whether Stop has run
func (s *Session) Stopped() bool {
	return s.stopped
}

// Entries returns a copy of the entries in the current view
func (s *Session) Entries() []string {
	return append([]string(nil), s.entries...)
}

// Message returns the rendered message once it has been sent
func (s *Session) Message() (Message, bool) {
	if s.message == nil {
		return Message{}, false
	}
	return *s.message, true
}

// Bindings returns the trigger bindings in attach order
func (s *Session) Bindings() []Binding {
	return append([]Binding(nil), s.bindings...)
}

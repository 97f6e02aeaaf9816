package paginator

import (
	"context"
	"strings"

	"github.com/harun/pagebot/internal/observability"
)

// NoFilter is the active filter index when the full entry set is shown
const NoFilter = -1

// Category is a filter classifier. A tag belongs to the category when it
// equals one of Members, ignoring case.
type Category struct {
	Name    string
	Symbol  Symbol
	Members []string
}

// Matches reports whether tag belongs to the category
func (c Category) Matches(tag string) bool {
	for _, m := range c.Members {
		if strings.EqualFold(m, tag) {
			return true
		}
	}
	return false
}

// Vocations are the four fixed character classes used by the catalog
var Vocations = []Category{
	{Name: "druid", Symbol: "\u2744", Members: []string{"druid", "elder druid"}},               // ❄
	{Name: "sorcerer", Symbol: "\U0001F525", Members: []string{"sorcerer", "master sorcerer"}}, // 🔥
	{Name: "paladin", Symbol: "\U0001F3F9", Members: []string{"paladin", "royal paladin"}},     // 🏹
	{Name: "knight", Symbol: "\U0001F6E1", Members: []string{"knight", "elite knight"}},        // 🛡
}

// filterSet is the filtering extension of a session
type filterSet struct {
	categories []Category
	full       []string
	tags       []string
	active     int
}

// NewFiltered creates a session whose entries can be narrowed to one category
// at a time. tags is parallel to entries. A trigger is bound for each category
// present among the tags, and only when more than one category is present.
func NewFiltered(ctx context.Context, t Transport, seed Seed, entries, tags []string, categories []Category, opts Options) (*Session, error) {
	if len(tags) != len(entries) {
		return nil, ErrTagsMismatch
	}
	if categories == nil {
		categories = Vocations
	}

	s, err := New(ctx, t, seed, entries, opts)
	if err != nil {
		return nil, err
	}

	s.filters = &filterSet{
		categories: categories,
		full:       append([]string(nil), entries...),
		tags:       tags,
		active:     NoFilter,
	}

	var present []Binding
	for i, c := range categories {
		for _, tag := range tags {
			if c.Matches(tag) {
				present = append(present, Binding{Symbol: c.Symbol, Op: OpFilter, Category: i})
				break
			}
		}
	}
	if len(present) > 1 {
		s.bindings = append(s.bindings, present...)
	}

	return s, nil
}

// ToggleFilter narrows the view to a category, or restores the full entry set
// when the category is already active. The view always restarts at page 1.
func (s *Session) ToggleFilter(ctx context.Context, category int) error {
	if s.stopped {
		return ErrSessionStopped
	}
	f := s.filters
	if f == nil || category < 0 || category >= len(f.categories) {
		return nil
	}

	if category != f.active {
		f.active = category
		c := f.categories[category]
		entries := make([]string, 0, len(f.full))
		for i, entry := range f.full {
			if c.Matches(f.tags[i]) {
				entries = append(entries, entry)
			}
		}
		s.entries = entries
	} else {
		f.active = NoFilter
		s.entries = append([]string(nil), f.full...)
	}
	s.maximumPage = pageCount(len(s.entries), s.opts.PerPage)

	observability.RecordFilterToggle(f.activeName())
	s.logger.Debug().
		Int("active_filter", f.active).
		Int("entries", len(s.entries)).
		Msg("Filter toggled")

	return s.showPage(ctx, 1, false)
}

func (f *filterSet) activeName() string {
	if f.active == NoFilter {
		return "none"
	}
	return f.categories[f.active].Name
}

// Filterable reports whether the session has the filtering extension
func (s *Session) Filterable() bool {
	return s.filters != nil
}

// ActiveFilter returns the active category index, or NoFilter
func (s *Session) ActiveFilter() int {
	if s.filters == nil {
		return NoFilter
	}
	return s.filters.active
}

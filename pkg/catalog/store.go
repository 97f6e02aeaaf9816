package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harun/pagebot/internal/observability"
	"github.com/harun/pagebot/internal/tracing"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// Store holds the current catalog snapshot. A failed reload keeps the
// previous snapshot.
type Store struct {
	source Source
	logger zerolog.Logger

	mu       sync.RWMutex
	chars    []Character
	loadedAt time.Time
}

// NewStore creates an empty store over source
func NewStore(source Source, logger *zerolog.Logger) *Store {
	l := log.Logger
	if logger != nil {
		l = *logger
	}
	return &Store{
		source: source,
		logger: l.With().Str("component", "catalog").Str("path", source.Path()).Logger(),
	}
}

// Reload reads the source and swaps the snapshot
func (s *Store) Reload(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "pagebot.catalog", "catalog.reload",
		attribute.String("path", s.source.Path()))

	chars, err := s.source.Load(ctx)
	if err == nil {
		chars, err = normalize(chars)
	}
	if err != nil {
		tracing.EndSpan(span, err)
		observability.RecordCatalogReload(0, false)
		observability.RecordCatalogAudit(ctx, "reload:catalog", "failure", map[string]interface{}{
			"path":  s.source.Path(),
			"error": err.Error(),
		})
		s.logger.Error().Err(err).Msg("Catalog reload failed")
		return fmt.Errorf("failed to reload catalog: %w", err)
	}

	s.mu.Lock()
	s.chars = chars
	s.loadedAt = time.Now()
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("characters", len(chars)))
	tracing.EndSpan(span, nil)
	observability.RecordCatalogReload(len(chars), true)
	observability.RecordCatalogAudit(ctx, "reload:catalog", "success", map[string]interface{}{
		"path":       s.source.Path(),
		"characters": len(chars),
	})
	s.logger.Info().Int("characters", len(chars)).Msg("Catalog loaded")

	return nil
}

// Characters returns a copy of the snapshot
func (s *Store) Characters() []Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Character(nil), s.chars...)
}

// Query returns the matching characters, highest level first
func (s *Store) Query(q Query) []Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Filter(s.chars, q)
}

// Len returns the number of loaded characters
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chars)
}

// LoadedAt returns when the snapshot was last replaced
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Source returns the backing source
func (s *Store) Source() Source {
	return s.source
}

package paginator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harun/pagebot/internal/observability"
	"github.com/harun/pagebot/internal/tracing"
	"github.com/harun/pagebot/pkg/waiter"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Run renders the first page, attaches the triggers and processes reactions
// until the author stops the session or the idle timeout elapses. Only render
// failures are returned; a timeout is a normal end.
func (s *Session) Run(ctx context.Context) (err error) {
	if s.stopped {
		return ErrSessionStopped
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"pagebot.paginator",
		"paginator.run",
		attribute.String("session_id", s.id),
		attribute.Int("entries", len(s.entries)),
		attribute.Int("per_page", s.opts.PerPage),
	)
	defer span.End()

	started := time.Now()
	reason := "static"
	observability.RecordSessionStart()
	defer func() {
		if err != nil {
			reason = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		s.release()
		observability.RecordSessionEnd(reason, time.Since(started))
		s.logger.Debug().Str("reason", reason).Dur("duration", time.Since(started)).Msg("Session ended")
	}()

	if err := s.showPage(ctx, 1, true); err != nil {
		s.paginating = false
		return err
	}

	for s.paginating {
		reaction, err := s.transport.WaitForReaction(ctx, s.reactionCheck(), s.opts.Timeout)
		if err != nil {
			if errors.Is(err, waiter.ErrTimeout) {
				reason = "timeout"
				return s.expire(ctx)
			}
			reason = "canceled"
			s.paginating = false
			s.clearReactions(context.WithoutCancel(ctx))
			return nil
		}

		binding, _ := s.binding(reaction.Symbol)
		s.removeReaction(ctx, reaction)

		s.logger.Debug().
			Str("user_id", reaction.UserID).
			Str("operation", binding.Op.String()).
			Msg("Reaction accepted")
		observability.RecordReaction(binding.Op.String())

		if err := s.apply(ctx, binding); err != nil {
			s.paginating = false
			s.clearReactions(ctx)
			return fmt.Errorf("failed to apply %s: %w", binding.Op, err)
		}
		if binding.Op == OpStop {
			reason = "stop"
		}
	}

	return nil
}

// reactionCheck builds the scope test for the next wait. It runs on the
// publisher's goroutine, so it only reads values captured here.
func (s *Session) reactionCheck() func(Reaction) bool {
	messageID := ""
	if s.message != nil {
		messageID = s.message.ID
	}
	selfID := s.transport.SelfID()
	authorID := s.seed.AuthorID
	private := s.private
	symbols := make(map[Symbol]struct{}, len(s.bindings))
	for _, b := range s.bindings {
		symbols[b.Symbol] = struct{}{}
	}

	return func(r Reaction) bool {
		if r.MessageID != messageID {
			return false
		}
		if r.UserID == selfID {
			return false
		}
		// Anyone but the bot may drive a private chat session
		if !private && r.UserID != authorID {
			return false
		}
		_, ok := symbols[r.Symbol]
		return ok
	}
}

func (s *Session) binding(symbol Symbol) (Binding, bool) {
	for _, b := range s.bindings {
		if b.Symbol == symbol {
			return b, true
		}
	}
	return Binding{}, false
}

// removeReaction takes back the author's reaction so the trigger can be reused.
// Others' reactions cannot be removed in private channels.
func (s *Session) removeReaction(ctx context.Context, r Reaction) {
	if s.private || s.message == nil {
		return
	}
	if err := s.transport.RemoveReaction(ctx, *s.message, r.Symbol, r.UserID); err != nil {
		observability.RecordCleanupFailure("remove")
		s.logger.Debug().Err(err).Str("symbol", string(r.Symbol)).Msg("Failed to remove reaction")
	}
}

func (s *Session) release() {
	if s.message == nil {
		return
	}
	if r, ok := s.transport.(Releaser); ok {
		r.Release(*s.message)
	}
}

// expire resets the view to page 1 and ends pagination after an idle timeout
func (s *Session) expire(ctx context.Context) error {
	s.logger.Debug().Dur("timeout", s.opts.Timeout).Msg("Session timed out")
	err := s.showPage(ctx, 1, false)
	s.paginating = false
	s.clearReactions(ctx)
	return err
}

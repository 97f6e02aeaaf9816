package paginator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harun/pagebot/pkg/waiter"
)

// ConfirmOptions configures a yes/no prompt
type ConfirmOptions struct {
	Timeout      time.Duration
	DeleteAfter  bool
	UseCheckmark bool
}

// Confirm attaches yes/no triggers to msg and waits for the seed author to
// pick one. It returns ErrNoAnswer when the author does not react in time.
func Confirm(ctx context.Context, t Transport, seed Seed, msg Message, opts ConfirmOptions) (bool, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	perms, err := t.Permissions(ctx, msg.ChannelID, t.SelfID())
	if err != nil {
		return false, fmt.Errorf("failed to read channel permissions: %w", err)
	}
	if !perms.AddReactions {
		return false, &CapabilityError{ChannelID: msg.ChannelID, Missing: []string{"add reactions"}}
	}

	yes, no := SymbolYes, SymbolNo
	if opts.UseCheckmark {
		yes, no = SymbolCheck, SymbolCross
	}
	for _, symbol := range []Symbol{yes, no} {
		if err := t.AddReaction(ctx, msg, symbol); err != nil {
			return false, fmt.Errorf("failed to add reaction %s: %w", symbol, err)
		}
	}

	defer func() {
		// The prompt is cleaned up even when ctx ended the wait
		cleanup := context.WithoutCancel(ctx)
		if opts.DeleteAfter {
			_ = t.DeleteMessage(cleanup, msg)
			return
		}
		if private, err := t.IsPrivate(cleanup, msg.ChannelID); err == nil && !private {
			_ = t.ClearReactions(cleanup, msg)
		}
	}()

	reaction, err := t.WaitForReaction(ctx, func(r Reaction) bool {
		return r.MessageID == msg.ID &&
			r.UserID == seed.AuthorID &&
			(r.Symbol == yes || r.Symbol == no)
	}, opts.Timeout)
	if err != nil {
		if errors.Is(err, waiter.ErrTimeout) {
			return false, ErrNoAnswer
		}
		return false, err
	}

	return reaction.Symbol == yes, nil
}

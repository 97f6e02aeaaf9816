package channels

import (
	"context"

	"github.com/harun/pagebot/pkg/paginator"
)

// Invocation is a normalized chat command from any platform.
type Invocation struct {
	Platform   string
	ChannelID  string
	AuthorID   string
	AuthorName string
	MessageID  string
	Command    string // lower-case, without prefix or @bot suffix
	Args       string // raw text after the command

	// Transport renders sessions on the invoking platform.
	Transport paginator.Transport
}

// Seed returns the paginator seed for the invoking message.
func (inv Invocation) Seed() paginator.Seed {
	return paginator.Seed{
		ChannelID: inv.ChannelID,
		AuthorID:  inv.AuthorID,
		MessageID: inv.MessageID,
	}
}

// DispatchFunc routes an invocation into the command runtime.
type DispatchFunc func(ctx context.Context, inv Invocation) error

// Channel is a chat platform runtime (telegram, discord).
type Channel interface {
	Name() string
	Start(ctx context.Context, dispatch DispatchFunc) error
	Stop(ctx context.Context) error
}

package paginator

import (
	"context"
	"time"
)

// Symbol is a trigger symbol, the emoji a user reacts with
type Symbol string

const (
	SymbolPrevious Symbol = "\u25c0"     // ◀
	SymbolNext     Symbol = "\u25b6"     // ▶
	SymbolFirst    Symbol = "\u23ee"     // ⏮
	SymbolLast     Symbol = "\u23ed"     // ⏭
	SymbolStop     Symbol = "\u23f9"     // ⏹
	SymbolYes      Symbol = "\U0001F1FE" // 🇾
	SymbolNo       Symbol = "\U0001F1F3" // 🇳
	SymbolCheck    Symbol = "\u2705"     // ✅
	SymbolCross    Symbol = "\u274c"     // ❌
)

// Message identifies a message on the chat platform
type Message struct {
	ID        string
	ChannelID string
}

// Seed is the command message that started a session
type Seed struct {
	ChannelID string
	AuthorID  string
	MessageID string
}

// Author decorates the payload header
type Author struct {
	Name    string
	URL     string
	IconURL string
}

// Payload is the display content of one rendered page
type Payload struct {
	Title       string
	Description string
	Footer      string
	Color       int
	Author      *Author
}

// Permissions are the bot's capabilities in a channel
type Permissions struct {
	Embed           bool
	AddReactions    bool
	ReadHistory     bool
	ManageReactions bool
}

// AllPermissions is used for channels without a permission model (private chats)
func AllPermissions() Permissions {
	return Permissions{
		Embed:           true,
		AddReactions:    true,
		ReadHistory:     true,
		ManageReactions: true,
	}
}

// Reaction is a reaction-add event delivered by the platform
type Reaction struct {
	MessageID string
	ChannelID string
	UserID    string
	Symbol    Symbol
}

// Transport is the chat platform boundary used by a session.
// RemoveReaction and ClearReactions are best-effort; their errors are ignored.
type Transport interface {
	SendMessage(ctx context.Context, channelID string, payload Payload) (Message, error)
	EditMessage(ctx context.Context, msg Message, payload Payload) error
	DeleteMessage(ctx context.Context, msg Message) error
	AddReaction(ctx context.Context, msg Message, symbol Symbol) error
	RemoveReaction(ctx context.Context, msg Message, symbol Symbol, userID string) error
	ClearReactions(ctx context.Context, msg Message) error
	Permissions(ctx context.Context, channelID, userID string) (Permissions, error)
	IsPrivate(ctx context.Context, channelID string) (bool, error)

	// WaitForReaction blocks until a reaction passing check arrives or the
	// timeout elapses. It returns waiter.ErrTimeout on timeout.
	WaitForReaction(ctx context.Context, check func(Reaction) bool, timeout time.Duration) (Reaction, error)

	// SelfID is the bot's own user id
	SelfID() string
}

// Releaser is implemented by transports that track state per message.
// Release drops that state once a session ends. It makes no platform call.
type Releaser interface {
	Release(msg Message)
}

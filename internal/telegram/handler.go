package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/pagebot/internal/tracing"
	"github.com/harun/pagebot/pkg/channels"
	"github.com/harun/pagebot/pkg/paginator"
)

// handleUpdate routes an update to the appropriate handler
func (b *Bot) handleUpdate(update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return b.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		return b.handleMessage(update.Message)
	}
	return nil
}

// handleMessage dispatches commands; plain messages are ignored
func (b *Bot) handleMessage(msg *tgbotapi.Message) error {
	b.rememberChat(msg.Chat)

	if msg.From == nil || msg.From.IsBot || !msg.IsCommand() {
		return nil
	}
	if !b.addressedToSelf(msg) {
		return nil
	}

	inv := b.invocation(msg)

	b.logger.Debug().
		Str("chat_id", inv.ChannelID).
		Str("user_id", inv.AuthorID).
		Str("command", inv.Command).
		Msg("Command received")

	b.mu.Lock()
	dispatch, base := b.dispatch, b.ctx
	b.mu.Unlock()
	if dispatch == nil {
		return fmt.Errorf("bot is not started")
	}

	ctx := tracing.NewCommandContext(base, Name, inv.AuthorID)
	return dispatch(ctx, inv)
}

// addressedToSelf rejects "/cmd@otherbot" in groups
func (b *Bot) addressedToSelf(msg *tgbotapi.Message) bool {
	full := msg.CommandWithAt()
	at := strings.IndexByte(full, '@')
	if at < 0 {
		return true
	}
	return strings.EqualFold(full[at+1:], b.self.UserName)
}

func (b *Bot) invocation(msg *tgbotapi.Message) channels.Invocation {
	name := msg.From.UserName
	if name == "" {
		name = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	}

	return channels.Invocation{
		Platform:   Name,
		ChannelID:  strconv.FormatInt(msg.Chat.ID, 10),
		AuthorID:   strconv.FormatInt(msg.From.ID, 10),
		AuthorName: name,
		MessageID:  strconv.Itoa(msg.MessageID),
		Command:    strings.ToLower(msg.Command()),
		Args:       strings.TrimSpace(msg.CommandArguments()),
		Transport:  b,
	}
}

// handleCallback turns an inline button press into a reaction event.
// The callback is always answered so the client stops its spinner.
func (b *Bot) handleCallback(cq *tgbotapi.CallbackQuery) error {
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			b.logger.Debug().Err(err).Str("callback_id", cq.ID).Msg("Failed to answer callback")
		}
	}()

	if cq.Message == nil || cq.Message.Chat == nil || cq.From == nil {
		return nil
	}
	b.rememberChat(cq.Message.Chat)

	reaction := paginator.Reaction{
		MessageID: strconv.Itoa(cq.Message.MessageID),
		ChannelID: strconv.FormatInt(cq.Message.Chat.ID, 10),
		UserID:    strconv.FormatInt(cq.From.ID, 10),
		Symbol:    paginator.Symbol(cq.Data),
	}

	delivered := b.reactions.Publish(reaction)

	b.logger.Debug().
		Str("message_id", reaction.MessageID).
		Str("user_id", reaction.UserID).
		Int("delivered", delivered).
		Msg("Button pressed")

	return nil
}

package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/pagebot/internal/observability"
	"github.com/harun/pagebot/pkg/paginator"
)

// SendMessage posts a rendered page
func (b *Bot) SendMessage(_ context.Context, channelID string, payload paginator.Payload) (paginator.Message, error) {
	chatID, err := parseChatID(channelID)
	if err != nil {
		return paginator.Message{}, err
	}

	msg := tgbotapi.NewMessage(chatID, renderHTML(payload))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	sent, err := b.api.Send(msg)
	if err != nil {
		observability.RecordTransportError(Name, "send")
		return paginator.Message{}, fmt.Errorf("failed to send message: %w", err)
	}

	b.logger.Debug().
		Int64("chat_id", chatID).
		Int("message_id", sent.MessageID).
		Msg("Message sent")

	return paginator.Message{ID: strconv.Itoa(sent.MessageID), ChannelID: channelID}, nil
}

// EditMessage replaces the page text and keeps the attached buttons
func (b *Bot) EditMessage(_ context.Context, m paginator.Message, payload paginator.Payload) error {
	key, err := parseMessage(m)
	if err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(key.chatID, key.messageID, renderHTML(payload))
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = b.keyboards.get(key)

	if _, err := b.api.Request(edit); err != nil && !notModified(err) {
		observability.RecordTransportError(Name, "edit")
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// DeleteMessage deletes a message
func (b *Bot) DeleteMessage(_ context.Context, m paginator.Message) error {
	key, err := parseMessage(m)
	if err != nil {
		return err
	}

	b.keyboards.forget(key)
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(key.chatID, key.messageID)); err != nil {
		observability.RecordTransportError(Name, "delete")
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// AddReaction attaches symbol as an inline button
func (b *Bot) AddReaction(_ context.Context, m paginator.Message, symbol paginator.Symbol) error {
	key, err := parseMessage(m)
	if err != nil {
		return err
	}

	mk := b.keyboards.add(key, symbol)
	if _, err := b.api.Request(tgbotapi.NewEditMessageReplyMarkup(key.chatID, key.messageID, mk)); err != nil && !notModified(err) {
		observability.RecordTransportError(Name, "add_reaction")
		return fmt.Errorf("failed to add button %s: %w", symbol, err)
	}
	return nil
}

// RemoveReaction is a no-op: a button press leaves nothing behind to undo
func (b *Bot) RemoveReaction(context.Context, paginator.Message, paginator.Symbol, string) error {
	return nil
}

// ClearReactions removes every button from the message
func (b *Bot) ClearReactions(_ context.Context, m paginator.Message) error {
	key, err := parseMessage(m)
	if err != nil {
		return err
	}

	b.keyboards.forget(key)
	empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	if _, err := b.api.Request(tgbotapi.NewEditMessageReplyMarkup(key.chatID, key.messageID, empty)); err != nil && !notModified(err) {
		observability.RecordTransportError(Name, "clear_reactions")
		return fmt.Errorf("failed to clear buttons: %w", err)
	}
	return nil
}

// Release forgets the buttons tracked for a finished session. Private chat
// sessions end without ClearReactions, so this is their only cleanup.
func (b *Bot) Release(m paginator.Message) {
	key, err := parseMessage(m)
	if err != nil {
		return
	}
	b.keyboards.forget(key)
}

// Permissions reports what the bot can do in a chat. Private chats have no
// permission model. In groups the bot needs to be a member that may post.
func (b *Bot) Permissions(ctx context.Context, channelID, _ string) (paginator.Permissions, error) {
	private, err := b.IsPrivate(ctx, channelID)
	if err != nil {
		return paginator.Permissions{}, err
	}
	if private {
		return paginator.AllPermissions(), nil
	}

	chatID, err := parseChatID(channelID)
	if err != nil {
		return paginator.Permissions{}, err
	}

	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: b.self.ID},
	})
	if err != nil {
		observability.RecordTransportError(Name, "permissions")
		return paginator.Permissions{}, fmt.Errorf("failed to get chat member: %w", err)
	}

	switch {
	case member.HasLeft() || member.WasKicked():
		return paginator.Permissions{}, nil
	case member.Status == "restricted" && !member.CanSendMessages:
		return paginator.Permissions{ReadHistory: true}, nil
	}

	// Buttons are part of the bot's own message, so they can always be managed
	return paginator.AllPermissions(), nil
}

// IsPrivate reports whether channelID is a one-to-one chat
func (b *Bot) IsPrivate(_ context.Context, channelID string) (bool, error) {
	chatID, err := parseChatID(channelID)
	if err != nil {
		return false, err
	}

	if t, ok := b.chatType(chatID); ok {
		return t == "private", nil
	}

	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
	if err != nil {
		observability.RecordTransportError(Name, "get_chat")
		return false, fmt.Errorf("failed to get chat: %w", err)
	}
	b.rememberChat(&chat)

	return chat.IsPrivate(), nil
}

// WaitForReaction blocks until a matching button press or the timeout
func (b *Bot) WaitForReaction(ctx context.Context, check func(paginator.Reaction) bool, timeout time.Duration) (paginator.Reaction, error) {
	return b.reactions.Wait(ctx, check, timeout)
}

func parseChatID(channelID string) (int64, error) {
	id, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", channelID, err)
	}
	return id, nil
}

func parseMessage(m paginator.Message) (messageKey, error) {
	chatID, err := parseChatID(m.ChannelID)
	if err != nil {
		return messageKey{}, err
	}
	msgID, err := strconv.Atoi(m.ID)
	if err != nil {
		return messageKey{}, fmt.Errorf("invalid message id %q: %w", m.ID, err)
	}
	return messageKey{chatID: chatID, messageID: msgID}, nil
}

// notModified matches the API error for an edit that changes nothing
func notModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

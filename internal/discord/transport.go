package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/harun/pagebot/internal/observability"
	"github.com/harun/pagebot/pkg/paginator"
)

const (
	maxEmbedDescription = 4096
	maxEmbedTitle       = 256
	maxEmbedFooter      = 2048
	maxEmbedAuthor      = 256
)

// SendMessage posts a page as an embed
func (b *Bot) SendMessage(ctx context.Context, channelID string, payload paginator.Payload) (paginator.Message, error) {
	m, err := b.session.ChannelMessageSendEmbed(channelID, embed(payload), discordgo.WithContext(ctx))
	if err != nil {
		observability.RecordTransportError(Name, "send")
		return paginator.Message{}, fmt.Errorf("failed to send message: %w", err)
	}

	b.logger.Debug().
		Str("channel_id", channelID).
		Str("message_id", m.ID).
		Msg("Message sent")

	return paginator.Message{ID: m.ID, ChannelID: channelID}, nil
}

// EditMessage replaces the embed of a message
func (b *Bot) EditMessage(ctx context.Context, m paginator.Message, payload paginator.Payload) error {
	if _, err := b.session.ChannelMessageEditEmbed(m.ChannelID, m.ID, embed(payload), discordgo.WithContext(ctx)); err != nil {
		observability.RecordTransportError(Name, "edit")
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// DeleteMessage deletes a message
func (b *Bot) DeleteMessage(ctx context.Context, m paginator.Message) error {
	if err := b.session.ChannelMessageDelete(m.ChannelID, m.ID, discordgo.WithContext(ctx)); err != nil {
		observability.RecordTransportError(Name, "delete")
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// AddReaction reacts to a message with symbol
func (b *Bot) AddReaction(ctx context.Context, m paginator.Message, symbol paginator.Symbol) error {
	if err := b.session.MessageReactionAdd(m.ChannelID, m.ID, string(symbol), discordgo.WithContext(ctx)); err != nil {
		observability.RecordTransportError(Name, "add_reaction")
		return fmt.Errorf("failed to add reaction %s: %w", symbol, err)
	}
	return nil
}

// RemoveReaction removes one user's reaction
func (b *Bot) RemoveReaction(ctx context.Context, m paginator.Message, symbol paginator.Symbol, userID string) error {
	if err := b.session.MessageReactionRemove(m.ChannelID, m.ID, string(symbol), userID, discordgo.WithContext(ctx)); err != nil {
		observability.RecordTransportError(Name, "remove_reaction")
		return fmt.Errorf("failed to remove reaction %s: %w", symbol, err)
	}
	return nil
}

// ClearReactions removes all reactions from a message
func (b *Bot) ClearReactions(ctx context.Context, m paginator.Message) error {
	if err := b.session.MessageReactionsRemoveAll(m.ChannelID, m.ID, discordgo.WithContext(ctx)); err != nil {
		observability.RecordTransportError(Name, "clear_reactions")
		return fmt.Errorf("failed to clear reactions: %w", err)
	}
	return nil
}

// Permissions maps the channel permission bitset onto what pagination needs.
// Direct messages have no permission model.
func (b *Bot) Permissions(ctx context.Context, channelID, userID string) (paginator.Permissions, error) {
	private, err := b.IsPrivate(ctx, channelID)
	if err != nil {
		return paginator.Permissions{}, err
	}
	if private {
		return paginator.AllPermissions(), nil
	}

	bits, err := b.session.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
	if err != nil {
		observability.RecordTransportError(Name, "permissions")
		return paginator.Permissions{}, fmt.Errorf("failed to get channel permissions: %w", err)
	}
	return permissionsFromBits(bits), nil
}

func permissionsFromBits(bits int64) paginator.Permissions {
	if bits&discordgo.PermissionAdministrator != 0 {
		return paginator.AllPermissions()
	}
	has := func(p int64) bool { return bits&p == p }
	return paginator.Permissions{
		Embed:           has(discordgo.PermissionEmbedLinks),
		AddReactions:    has(discordgo.PermissionAddReactions),
		ReadHistory:     has(discordgo.PermissionReadMessageHistory),
		ManageReactions: has(discordgo.PermissionManageMessages),
	}
}

// IsPrivate reports whether channelID is a DM or group DM
func (b *Bot) IsPrivate(ctx context.Context, channelID string) (bool, error) {
	t, ok := b.channelType(channelID)
	if !ok {
		ch, err := b.session.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			observability.RecordTransportError(Name, "get_channel")
			return false, fmt.Errorf("failed to get channel: %w", err)
		}
		t = ch.Type
		b.rememberChannel(channelID, t)
	}
	return t == discordgo.ChannelTypeDM || t == discordgo.ChannelTypeGroupDM, nil
}

// WaitForReaction blocks until a matching reaction or the timeout
func (b *Bot) WaitForReaction(ctx context.Context, check func(paginator.Reaction) bool, timeout time.Duration) (paginator.Reaction, error) {
	return b.reactions.Wait(ctx, check, timeout)
}

// embed converts a payload, clipping fields to Discord's limits
func embed(p paginator.Payload) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       clip(p.Title, maxEmbedTitle),
		Description: clip(p.Description, maxEmbedDescription),
		Color:       p.Color,
	}
	if p.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: clip(p.Footer, maxEmbedFooter)}
	}
	if p.Author != nil && p.Author.Name != "" {
		e.Author = &discordgo.MessageEmbedAuthor{
			Name:    clip(p.Author.Name, maxEmbedAuthor),
			URL:     p.Author.URL,
			IconURL: p.Author.IconURL,
		}
	}
	return e
}

// clip cuts s to n runes
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/harun/pagebot/internal/tracing"
	"github.com/harun/pagebot/pkg/channels"
	"github.com/harun/pagebot/pkg/paginator"
)

// onMessageCreate dispatches prefixed commands
func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if m.GuildID == "" {
		b.rememberChannel(m.ChannelID, discordgo.ChannelTypeDM)
	}

	name, args, ok := channels.ParseCommand(m.Content, b.prefix)
	if !ok {
		return
	}

	b.mu.Lock()
	dispatch, base := b.dispatch, b.ctx
	b.mu.Unlock()
	if dispatch == nil {
		return
	}

	inv := channels.Invocation{
		Platform:   Name,
		ChannelID:  m.ChannelID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.Username,
		MessageID:  m.ID,
		Command:    name,
		Args:       args,
		Transport:  b,
	}

	b.logger.Debug().
		Str("channel_id", inv.ChannelID).
		Str("user_id", inv.AuthorID).
		Str("command", inv.Command).
		Msg("Command received")

	ctx := tracing.NewCommandContext(base, Name, inv.AuthorID)
	if err := dispatch(ctx, inv); err != nil {
		b.logger.Error().Err(err).Str("command", inv.Command).Msg("Failed to dispatch command")
	}
}

// onReactionAdd publishes reaction events to waiting sessions
func (b *Bot) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r == nil || r.MessageReaction == nil {
		return
	}
	if r.UserID == b.SelfID() {
		return
	}
	if r.GuildID == "" {
		b.rememberChannel(r.ChannelID, discordgo.ChannelTypeDM)
	}

	symbol := r.Emoji.Name
	if r.Emoji.ID != "" {
		symbol = r.Emoji.APIName()
	}

	delivered := b.reactions.Publish(paginator.Reaction{
		MessageID: r.MessageID,
		ChannelID: r.ChannelID,
		UserID:    r.UserID,
		Symbol:    paginator.Symbol(symbol),
	})

	b.logger.Debug().
		Str("message_id", r.MessageID).
		Str("user_id", r.UserID).
		Int("delivered", delivered).
		Msg("Reaction added")
}

// Package discord runs pagination sessions on Discord. Pages are embeds and
// triggers are message reactions.
package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/harun/pagebot/internal/config"
	"github.com/harun/pagebot/internal/logger"
	"github.com/harun/pagebot/pkg/channels"
	"github.com/harun/pagebot/pkg/paginator"
	"github.com/harun/pagebot/pkg/waiter"
	"github.com/rs/zerolog"
)

// Name is the platform name used in invocations and lanes
const Name = "discord"

// Intents the bot identifies with
const Intents = discordgo.IntentGuildMessages |
	discordgo.IntentGuildMessageReactions |
	discordgo.IntentDirectMessages |
	discordgo.IntentDirectMessageReactions |
	discordgo.IntentMessageContent

// Session is the subset of *discordgo.Session the bot uses
type Session interface {
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)

	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error

	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	MessageReactionRemove(channelID, messageID, emojiID, userID string, options ...discordgo.RequestOption) error
	MessageReactionsRemoveAll(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Bot is the Discord channel runtime and paginator transport
type Bot struct {
	session Session
	prefix  string
	logger  zerolog.Logger

	reactions *waiter.Waiter[paginator.Reaction]

	chanMu    sync.RWMutex
	chanTypes map[string]discordgo.ChannelType

	mu       sync.Mutex
	running  bool
	selfID   string
	dispatch channels.DispatchFunc
	ctx      context.Context
	removers []func()
}

var _ channels.Channel = (*Bot)(nil)
var _ paginator.Transport = (*Bot)(nil)

// New creates a Discord bot from configuration
func New(cfg *config.DiscordConfig, log *logger.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("discord config is required")
	}

	token := strings.TrimSpace(strings.TrimPrefix(cfg.BotToken, "Bot "))
	if token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = Intents

	return NewWithSession(s, cfg.Prefix, log.Component(Name)), nil
}

// NewWithSession creates a bot over an existing session
func NewWithSession(s Session, prefix string, log zerolog.Logger) *Bot {
	if prefix == "" {
		prefix = "/"
	}
	return &Bot{
		session:   s,
		prefix:    prefix,
		logger:    log,
		reactions: waiter.New[paginator.Reaction](),
		chanTypes: make(map[string]discordgo.ChannelType),
	}
}

// Name returns the channel name
func (b *Bot) Name() string {
	return Name
}

// Start registers the gateway handlers and opens the websocket
func (b *Bot) Start(ctx context.Context, dispatch channels.DispatchFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return fmt.Errorf("bot is already running")
	}
	if dispatch == nil {
		return fmt.Errorf("dispatch function is required")
	}

	b.logger.Info().Msg("Starting Discord bot")

	self, err := b.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to resolve bot user: %w", err)
	}

	b.selfID = self.ID
	b.dispatch = dispatch
	b.ctx = context.WithoutCancel(ctx)
	b.removers = []func(){
		b.session.AddHandler(b.onMessageCreate),
		b.session.AddHandler(b.onReactionAdd),
	}

	if err := b.session.Open(); err != nil {
		b.removeHandlers()
		return fmt.Errorf("failed to open gateway: %w", err)
	}
	b.running = true

	b.logger.Info().
		Str("username", self.Username).
		Str("id", self.ID).
		Msg("Discord bot started")

	return nil
}

// Stop closes the gateway connection
func (b *Bot) Stop(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return fmt.Errorf("bot is not running")
	}

	b.logger.Info().Msg("Stopping Discord bot")

	b.running = false
	b.removeHandlers()
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("failed to close gateway: %w", err)
	}

	b.logger.Info().Msg("Discord bot stopped")
	return nil
}

// IsRunning returns whether the gateway is open
func (b *Bot) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// SelfID is the bot's user id, known once started
func (b *Bot) SelfID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selfID
}

func (b *Bot) removeHandlers() {
	for _, remove := range b.removers {
		remove()
	}
	b.removers = nil
}

func (b *Bot) rememberChannel(channelID string, t discordgo.ChannelType) {
	b.chanMu.Lock()
	b.chanTypes[channelID] = t
	b.chanMu.Unlock()
}

func (b *Bot) channelType(channelID string) (discordgo.ChannelType, bool) {
	b.chanMu.RLock()
	defer b.chanMu.RUnlock()
	t, ok := b.chanTypes[channelID]
	return t, ok
}

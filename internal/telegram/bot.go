package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/pagebot/internal/config"
	"github.com/harun/pagebot/internal/logger"
	"github.com/harun/pagebot/pkg/channels"
	"github.com/harun/pagebot/pkg/paginator"
	"github.com/harun/pagebot/pkg/waiter"
	"github.com/rs/zerolog"
)

// Name is the platform name used in invocations and lanes
const Name = "telegram"

// API is the subset of the Bot API client the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Bot represents a Telegram bot instance. It is both a channel runtime and
// the paginator transport for Telegram chats.
type Bot struct {
	api    API
	self   tgbotapi.User
	logger zerolog.Logger

	reactions *waiter.Waiter[paginator.Reaction]
	keyboards *keyboards

	chatMu    sync.RWMutex
	chatTypes map[int64]string

	// State
	mu       sync.Mutex
	running  bool
	dispatch channels.DispatchFunc
	ctx      context.Context
	loopDone chan struct{}
}

var _ channels.Channel = (*Bot)(nil)
var _ paginator.Transport = (*Bot)(nil)

// New creates a new Telegram bot instance
func New(cfg *config.TelegramConfig, log *logger.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram config is required")
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = cfg.Debug

	bot := NewWithAPI(api, api.Self, log.Component(Name))

	bot.logger.Info().
		Str("username", api.Self.UserName).
		Int64("id", api.Self.ID).
		Msg("Telegram bot authenticated")

	return bot, nil
}

// NewWithAPI creates a bot over an existing API client
func NewWithAPI(api API, self tgbotapi.User, log zerolog.Logger) *Bot {
	return &Bot{
		api:       api,
		self:      self,
		logger:    log,
		reactions: waiter.New[paginator.Reaction](),
		keyboards: newKeyboards(),
		chatTypes: make(map[int64]string),
	}
}

// Name returns the channel name
func (b *Bot) Name() string {
	return Name
}

// Start begins long polling and dispatches commands until Stop
func (b *Bot) Start(ctx context.Context, dispatch channels.DispatchFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return fmt.Errorf("bot is already running")
	}
	if dispatch == nil {
		return fmt.Errorf("dispatch function is required")
	}

	b.logger.Info().Msg("Starting Telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.api.GetUpdatesChan(u)
	b.dispatch = dispatch
	b.ctx = context.WithoutCancel(ctx)
	b.loopDone = make(chan struct{})
	b.running = true

	go b.processUpdates(updates, b.loopDone)

	b.logger.Info().Msg("Telegram bot started")

	return nil
}

// Stop stops polling and waits for the update loop to exit
func (b *Bot) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return fmt.Errorf("bot is not running")
	}
	b.running = false
	done := b.loopDone
	b.mu.Unlock()

	b.logger.Info().Msg("Stopping Telegram bot")
	b.api.StopReceivingUpdates()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.logger.Info().Msg("Telegram bot stopped")
	return nil
}

// IsRunning returns whether the bot is running
func (b *Bot) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// SelfID is the bot's user id
func (b *Bot) SelfID() string {
	return strconv.FormatInt(b.self.ID, 10)
}

// Username is the bot's @username without the at sign
func (b *Bot) Username() string {
	return b.self.UserName
}

func (b *Bot) processUpdates(updates tgbotapi.UpdatesChannel, done chan struct{}) {
	defer close(done)

	for update := range updates {
		if !b.IsRunning() {
			return
		}

		if err := b.handleUpdate(update); err != nil {
			b.logger.Error().
				Err(err).
				Int("update_id", update.UpdateID).
				Msg("Failed to handle update")
		}
	}
}

func (b *Bot) rememberChat(chat *tgbotapi.Chat) {
	if chat == nil {
		return
	}
	b.chatMu.Lock()
	b.chatTypes[chat.ID] = chat.Type
	b.chatMu.Unlock()
}

func (b *Bot) chatType(chatID int64) (string, bool) {
	b.chatMu.RLock()
	defer b.chatMu.RUnlock()
	t, ok := b.chatTypes[chatID]
	return t, ok
}

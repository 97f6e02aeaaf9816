package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CommandInfo describes one command for the client's command menu
type CommandInfo struct {
	Name        string
	Description string
}

// SetCommands sets the bot's command list in Telegram
func (b *Bot) SetCommands(commands []CommandInfo) error {
	list := make([]tgbotapi.BotCommand, 0, len(commands))
	for _, c := range commands {
		list = append(list, tgbotapi.BotCommand{Command: c.Name, Description: c.Description})
	}

	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(list...)); err != nil {
		return fmt.Errorf("failed to set commands: %w", err)
	}

	b.logger.Info().Int("count", len(list)).Msg("Bot commands updated")
	return nil
}

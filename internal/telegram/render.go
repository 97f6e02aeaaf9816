package telegram

import (
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/pagebot/pkg/paginator"
)

const (
	maxMessageLength = 4096
	buttonsPerRow    = 5
)

// renderHTML formats a payload as an HTML message body. Color has no
// Telegram equivalent and is dropped.
func renderHTML(p paginator.Payload) string {
	var sb strings.Builder

	if p.Author != nil && p.Author.Name != "" {
		name := tgbotapi.EscapeText(tgbotapi.ModeHTML, p.Author.Name)
		if p.Author.URL != "" {
			sb.WriteString(`<a href="` + tgbotapi.EscapeText(tgbotapi.ModeHTML, p.Author.URL) + `">` + name + "</a>\n")
		} else {
			sb.WriteString("<i>" + name + "</i>\n")
		}
	}
	if p.Title != "" {
		sb.WriteString("<b>" + tgbotapi.EscapeText(tgbotapi.ModeHTML, p.Title) + "</b>\n")
	}

	footer := ""
	if p.Footer != "" {
		footer = "\n\n<i>" + tgbotapi.EscapeText(tgbotapi.ModeHTML, p.Footer) + "</i>"
	}

	desc := tgbotapi.EscapeText(tgbotapi.ModeHTML, p.Description)
	if room := maxMessageLength - sb.Len() - len(footer); len(desc) > room {
		desc = truncate(desc, room)
	}
	sb.WriteString(desc)
	sb.WriteString(footer)

	return sb.String()
}

// truncate cuts s to at most n bytes on a line boundary when possible
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		return cut[:i]
	}
	// Avoid splitting an escaped entity
	if i := strings.LastIndexByte(cut, '&'); i >= 0 && !strings.Contains(cut[i:], ";") {
		cut = cut[:i]
	}
	return strings.ToValidUTF8(cut, "")
}

type messageKey struct {
	chatID    int64
	messageID int
}

// keyboards tracks the trigger buttons attached to each message.
// Inline keyboards stand in for reactions on Telegram.
type keyboards struct {
	mu      sync.Mutex
	buttons map[messageKey][]paginator.Symbol
}

func newKeyboards() *keyboards {
	return &keyboards{buttons: make(map[messageKey][]paginator.Symbol)}
}

// add appends symbol and returns the resulting markup
func (k *keyboards) add(key messageKey, symbol paginator.Symbol) tgbotapi.InlineKeyboardMarkup {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, s := range k.buttons[key] {
		if s == symbol {
			return markup(k.buttons[key])
		}
	}
	k.buttons[key] = append(k.buttons[key], symbol)
	return markup(k.buttons[key])
}

// get returns the markup for key, or nil when no buttons are attached
func (k *keyboards) get(key messageKey) *tgbotapi.InlineKeyboardMarkup {
	k.mu.Lock()
	defer k.mu.Unlock()

	symbols, ok := k.buttons[key]
	if !ok {
		return nil
	}
	m := markup(symbols)
	return &m
}

func (k *keyboards) forget(key messageKey) {
	k.mu.Lock()
	delete(k.buttons, key)
	k.mu.Unlock()
}

func (k *keyboards) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buttons)
}

func markup(symbols []paginator.Symbol) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, (len(symbols)+buttonsPerRow-1)/buttonsPerRow)
	for start := 0; start < len(symbols); start += buttonsPerRow {
		end := min(start+buttonsPerRow, len(symbols))
		row := make([]tgbotapi.InlineKeyboardButton, 0, end-start)
		for _, s := range symbols[start:end] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(string(s), string(s)))
		}
		rows = append(rows, row)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

package telegram

import (
	"errors"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	selfID    int64 = 123456789
	groupID   int64 = -100200
	privateID int64 = 4242
	authorID  int64 = 777
)

type fakeAPI struct {
	mu sync.Mutex

	nextID   int
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool

	chats       map[int64]tgbotapi.Chat
	chatCalls   int
	member      tgbotapi.ChatMember
	sendErr     error
	requestErr  error
	memberCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextID:  100,
		updates: make(chan tgbotapi.Update, 16),
		chats: map[int64]tgbotapi.Chat{
			groupID:   {ID: groupID, Type: "supergroup"},
			privateID: {ID: privateID, Type: "private"},
		},
		member: tgbotapi.ChatMember{Status: "member"},
	}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		close(f.updates)
	}
}

func (f *fakeAPI) GetChat(cfg tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls++
	chat, ok := f.chats[cfg.ChatID]
	if !ok {
		return tgbotapi.Chat{}, errors.New("Bad Request: chat not found")
	}
	return chat, nil
}

func (f *fakeAPI) GetChatMember(tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberCalls++
	return f.member, nil
}

// requestsOf returns the recorded requests of type T
func requestsOf[T tgbotapi.Chattable](f *fakeAPI) []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []T
	for _, r := range f.requests {
		if v, ok := r.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	bot := NewWithAPI(api, tgbotapi.User{ID: selfID, UserName: "pagebot", IsBot: true}, zerolog.Nop())
	return bot, api
}

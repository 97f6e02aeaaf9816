package discord

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const (
	selfID    = "900"
	authorID  = "777"
	guildChan = "c-guild"
	dmChan    = "c-dm"
)

type reactionCall struct {
	channelID, messageID, emoji, userID string
}

type fakeSession struct {
	mu sync.Mutex

	opened, closed bool
	openErr        error
	handlers       int

	nextID   int
	sent     []*discordgo.MessageEmbed
	edits    []*discordgo.MessageEmbed
	deletes  []string
	added    []reactionCall
	removed  []reactionCall
	clears   []string
	perms    int64
	channels map[string]*discordgo.Channel
	chCalls  int
	failAll  error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		nextID: 1000,
		perms: discordgo.PermissionEmbedLinks | discordgo.PermissionAddReactions |
			discordgo.PermissionReadMessageHistory | discordgo.PermissionManageMessages,
		channels: map[string]*discordgo.Channel{
			guildChan: {ID: guildChan, Type: discordgo.ChannelTypeGuildText},
			dmChan:    {ID: dmChan, Type: discordgo.ChannelTypeDM},
		},
	}
}

func (f *fakeSession) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = true
	return nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSession) AddHandler(interface{}) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers++
	return func() {
		f.mu.Lock()
		f.handlers--
		f.mu.Unlock()
	}
}

func (f *fakeSession) User(userID string, _ ...discordgo.RequestOption) (*discordgo.User, error) {
	if userID != "@me" {
		return nil, errors.New("unknown user")
	}
	return &discordgo.User{ID: selfID, Username: "pagebot", Bot: true}, nil
}

func (f *fakeSession) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chCalls++
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, errors.New("HTTP 404 Not Found, Unknown Channel")
	}
	return ch, nil
}

func (f *fakeSession) UserChannelPermissions(string, string, ...discordgo.RequestOption) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perms, f.failAll
}

func (f *fakeSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.nextID++
	f.sent = append(f.sent, embed)
	return &discordgo.Message{ID: fmt.Sprint(f.nextID), ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.edits = append(f.edits, embed)
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, messageID)
	return f.failAll
}

func (f *fakeSession) MessageReactionAdd(channelID, messageID, emojiID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, reactionCall{channelID, messageID, emojiID, ""})
	return f.failAll
}

func (f *fakeSession) MessageReactionRemove(channelID, messageID, emojiID, userID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, reactionCall{channelID, messageID, emojiID, userID})
	return f.failAll
}

func (f *fakeSession) MessageReactionsRemoveAll(_, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears = append(f.clears, messageID)
	return f.failAll
}

func (f *fakeSession) editCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edits)
}

func newTestBot(t *testing.T) (*Bot, *fakeSession) {
	t.Helper()
	s := newFakeSession()
	b := NewWithSession(s, "!", zerolog.Nop())
	b.selfID = selfID
	return b, s
}

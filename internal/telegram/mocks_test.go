package telegram_test

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"
)

// MockBot records sent messages and serves a scripted update channel.
type MockBot struct {
	mock.Mock
	updates  chan tgbotapi.Update
	stopOnce sync.Once
}

func newMockBot() *MockBot {
	return &MockBot{updates: make(chan tgbotapi.Update, 8)}
}

func (m *MockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(0)
}

func (m *MockBot) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *MockBot) StopReceivingUpdates() {
	m.stopOnce.Do(func() { close(m.updates) })
}

// sentTexts returns the text of every MessageConfig passed to Send.
func (m *MockBot) sentTexts() []string {
	var out []string
	for _, call := range m.Calls {
		if msg, ok := call.Arguments.Get(0).(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func command(chatID int64, text, lang string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: text,
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: len(text)},
			},
			From: &tgbotapi.User{ID: 777, LanguageCode: lang},
			Chat: tgbotapi.Chat{ID: chatID},
		},
	}
}

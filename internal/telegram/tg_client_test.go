package telegram_test

import (
	"errors"
	"testing"
	"time"

	"roomresq/backend/internal/localization"
	"roomresq/backend/internal/models"
	"roomresq/backend/internal/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func localizer(t *testing.T) *localization.Localizer {
	t.Helper()
	l, err := localization.NewLocalizer("")
	require.NoError(t, err)
	return l
}

func TestFormatEvent(t *testing.T) {
	l := localizer(t)
	ev := models.ComplaintEvent{
		Type:           models.EventStatusChanged,
		PreviousStatus: models.StatusSubmitted,
		Complaint: models.Complaint{
			Title:      "Fan_broken *again*",
			RoomNumber: "A-101",
			Status:     models.StatusInProgress,
		},
	}

	text := telegram.FormatEvent(l, "en", ev)
	assert.Equal(t, "🔄 Complaint *Fan\\_broken \\*again\\** (room A-101): Submitted → In Progress", text)

	uk := telegram.FormatEvent(l, "uk", ev)
	assert.Contains(t, uk, "Скарга")
}

func TestClient_SendsEveryEvent(t *testing.T) {
	bot := newMockBot()
	bot.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).Return(nil).Once()
	bot.On("Send", mock.Anything).Return(errors.New("telegram down")).Once()

	c := telegram.NewClient(bot, -100123, localizer(t), "en")
	assert.Equal(t, "telegram:-100123", c.GetUserID())
	assert.True(t, c.Wants(models.ComplaintEvent{Complaint: models.Complaint{SubmitterID: "anyone"}}))

	c.Run()
	c.GetSendChannel() <- models.ComplaintEvent{Type: models.EventSubmitted, Complaint: models.Complaint{Title: "Leak", RoomNumber: "B-2"}}
	c.GetSendChannel() <- models.ComplaintEvent{Type: models.EventAssigned, Complaint: models.Complaint{Title: "Leak", RoomNumber: "B-2"}}
	c.Close()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("write pump did not stop")
	}

	bot.AssertNumberOfCalls(t, "Send", 2)
	texts := bot.sentTexts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "New complaint in room B-2")
	assert.Contains(t, texts[1], "was claimed")

	msg := bot.Calls[0].Arguments.Get(0).(tgbotapi.MessageConfig)
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
}

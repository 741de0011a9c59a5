package telegram_test

import (
	"context"
	"testing"
	"time"

	"roomresq/backend/internal/models"
	"roomresq/backend/internal/storage"
	"roomresq/backend/internal/telegram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const staffChat = int64(-1001)

func seed(t *testing.T) *storage.Memory {
	t.Helper()
	ctx := context.Background()
	m := storage.NewMemory()
	for i, title := range []string{"Leaking tap", "No WiFi"} {
		c := &models.Complaint{
			SubmitterID: "s-1",
			Category:    models.CategoryPlumbing,
			Title:       title,
			Description: "d",
			RoomNumber:  "B-20" + string(rune('1'+i)),
			TimeSlot:    "any",
			Priority:    models.PriorityHigh,
			Status:      models.StatusSubmitted,
		}
		require.NoError(t, m.CreateComplaint(ctx, c))
	}
	return m
}

func runBot(t *testing.T, svc *telegram.BotService, bot *MockBot) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()
	// Cancelling closes the update channel after queued updates are consumed.
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bot loop did not stop")
	}
}

func TestBotService_Commands(t *testing.T) {
	bot := newMockBot()
	bot.On("Send", mock.Anything).Return(nil)
	svc := telegram.NewBotService(bot, seed(t), localizer(t), staffChat, "en")

	bot.updates <- command(staffChat, "/unassigned", "")
	bot.updates <- command(staffChat, "/stats", "uk")
	bot.updates <- command(staffChat, "/help", "fr")
	runBot(t, svc, bot)

	texts := bot.sentTexts()
	require.Len(t, texts, 3)
	assert.Contains(t, texts[0], "Unassigned complaints (2)")
	assert.Contains(t, texts[0], "[High] No WiFi - room B-202")
	assert.Contains(t, texts[1], "Подано: 2")
	assert.Contains(t, texts[2], "/unassigned")
}

func TestBotService_IgnoresOtherChats(t *testing.T) {
	bot := newMockBot()
	svc := telegram.NewBotService(bot, seed(t), localizer(t), staffChat, "en")

	bot.updates <- command(42, "/unassigned", "")
	bot.updates <- command(staffChat, "/unknown", "")
	runBot(t, svc, bot)

	bot.AssertNotCalled(t, "Send", mock.Anything)
}

func TestBotService_EmptyQueue(t *testing.T) {
	bot := newMockBot()
	bot.On("Send", mock.Anything).Return(nil)
	svc := telegram.NewBotService(bot, storage.NewMemory(), localizer(t), staffChat, "en")

	bot.updates <- command(staffChat, "/unassigned", "")
	runBot(t, svc, bot)

	texts := bot.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Every complaint has been claimed")
}

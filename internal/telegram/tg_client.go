// Package telegram posts complaint events to the staff Telegram chat and answers a few
// read-only commands there.
package telegram

import (
	"log"
	"strconv"
	"strings"

	"roomresq/backend/internal/config"
	"roomresq/backend/internal/localization"
	"roomresq/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI the client needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client implements eventhub.Client for the staff chat. Staff see every event.
type Client struct {
	ChatID    int64
	Lang      string
	Bot       Sender
	Localizer *localization.Localizer
	Send      chan models.ComplaintEvent
	done      chan struct{}
}

func NewClient(bot Sender, chatID int64, l *localization.Localizer, lang string) *Client {
	return &Client{
		ChatID:    chatID,
		Lang:      lang,
		Bot:       bot,
		Localizer: l,
		Send:      make(chan models.ComplaintEvent, config.ClientSendBuffer),
		done:      make(chan struct{}),
	}
}

func (c *Client) GetUserID() string                            { return "telegram:" + strconv.FormatInt(c.ChatID, 10) }
func (c *Client) Wants(models.ComplaintEvent) bool             { return true }
func (c *Client) GetSendChannel() chan<- models.ComplaintEvent { return c.Send }

// Run starts the write pump. Telegram updates are read by BotService.
func (c *Client) Run() {
	go c.writePump()
}

func (c *Client) Close() {
	close(c.Send)
}

// Done is closed once the write pump has drained.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) writePump() {
	defer close(c.done)

	for ev := range c.Send {
		msg := tgbotapi.NewMessage(c.ChatID, FormatEvent(c.Localizer, c.Lang, ev))
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := c.Bot.Send(msg); err != nil {
			log.Printf("ERROR: Failed to send Telegram notification for complaint %s: %v", ev.Complaint.ID, err)
		}
	}
	log.Printf("INFO: Telegram client %d stopped", c.ChatID)
}

// FormatEvent renders an event with the localized template for its type.
func FormatEvent(l *localization.Localizer, lang string, ev models.ComplaintEvent) string {
	c := ev.Complaint
	args := map[string]string{
		"title":    escapeMarkdown(c.Title),
		"room":     escapeMarkdown(c.RoomNumber),
		"category": string(c.Category),
		"priority": string(c.Priority),
		"slot":     escapeMarkdown(c.TimeSlot),
		"from":     string(ev.PreviousStatus),
		"to":       string(c.Status),
	}
	return l.Format(lang, "event."+string(ev.Type), args)
}

// escapeMarkdown escapes the characters legacy Markdown treats as entity markers.
func escapeMarkdown(text string) string {
	return markdownReplacer.Replace(text)
}

var markdownReplacer = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

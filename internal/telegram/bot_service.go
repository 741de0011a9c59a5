package telegram

import (
	"context"
	"log"
	"strconv"
	"strings"

	"roomresq/backend/internal/dashboard"
	"roomresq/backend/internal/localization"
	"roomresq/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxListed caps the /unassigned reply.
const maxListed = 20

// Updater is the part of *tgbotapi.BotAPI the command loop needs.
type Updater interface {
	Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// NewBotAPI authorizes the bot token.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("INFO: ✅ Authorized on account %s", bot.Self.UserName)
	return bot, nil
}

// BotService answers commands sent in the staff chat. Messages from other chats are ignored.
type BotService struct {
	Bot         Updater
	Storage     storage.ComplaintStore
	Localizer   *localization.Localizer
	StaffChatID int64
	Lang        string
}

func NewBotService(bot Updater, s storage.ComplaintStore, l *localization.Localizer, staffChatID int64, lang string) *BotService {
	return &BotService{Bot: bot, Storage: s, Localizer: l, StaffChatID: staffChatID, Lang: lang}
}

// Run is the main loop for receiving Telegram updates. It returns once ctx is cancelled
// and the update channel has been closed.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.Bot.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		s.Bot.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil || !update.Message.IsCommand() {
			continue
		}
		s.handleCommand(ctx, update.Message)
	}
}

func (s *BotService) langFor(msg *tgbotapi.Message) string {
	if msg.From == nil || msg.From.LanguageCode == "" {
		return s.Lang
	}
	code := strings.ToLower(msg.From.LanguageCode)
	for _, lang := range s.Localizer.Languages() {
		if lang == code {
			return lang
		}
	}
	return s.Lang
}

func (s *BotService) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.ID != s.StaffChatID {
		log.Printf("WARNING: Ignoring /%s from chat %d", msg.Command(), msg.Chat.ID)
		return
	}
	lang := s.langFor(msg)

	var text string
	switch msg.Command() {
	case "start", "help":
		text = s.Localizer.GetString(lang, "bot.help")
	case "unassigned":
		text = s.unassignedReply(ctx, lang)
	case "stats":
		text = s.statsReply(ctx, lang)
	default:
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.Bot.Send(reply); err != nil {
		log.Printf("ERROR: Failed to answer /%s: %v", msg.Command(), err)
	}
}

func (s *BotService) unassignedReply(ctx context.Context, lang string) string {
	list, err := s.Storage.ListComplaints(ctx, storage.ComplaintFilter{UnassignedOnly: true})
	if err != nil {
		log.Printf("ERROR: Listing unassigned complaints for Telegram: %v", err)
		return s.Localizer.GetString(lang, "bot.error")
	}
	if len(list) == 0 {
		return s.Localizer.GetString(lang, "bot.unassigned_empty")
	}

	lines := []string{s.Localizer.Format(lang, "bot.unassigned_header", map[string]string{
		"count": strconv.Itoa(len(list)),
	})}
	for i, c := range list {
		if i == maxListed {
			lines = append(lines, "…")
			break
		}
		lines = append(lines, s.Localizer.Format(lang, "bot.unassigned_line", map[string]string{
			"priority": string(c.Priority),
			"title":    escapeMarkdown(c.Title),
			"room":     escapeMarkdown(c.RoomNumber),
		}))
	}
	return strings.Join(lines, "\n")
}

func (s *BotService) statsReply(ctx context.Context, lang string) string {
	list, err := s.Storage.ListComplaints(ctx, storage.ComplaintFilter{})
	if err != nil {
		log.Printf("ERROR: Listing complaints for Telegram: %v", err)
		return s.Localizer.GetString(lang, "bot.error")
	}
	st := dashboard.Summarize(list)
	return s.Localizer.Format(lang, "bot.stats", map[string]string{
		"submitted":   strconv.Itoa(st.Submitted),
		"in_progress": strconv.Itoa(st.InProgress),
		"resolved":    strconv.Itoa(st.Resolved),
		"closed":      strconv.Itoa(st.Closed),
	})
}

// Package channel holds the chat transports. Telegram is the only one today;
// the bus keeps the seam so another transport can be added without touching
// the handler.
package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vivekabot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
	mediaDownloadTimeout   = 60 * time.Second
)

// Telegram delivers inbound messages to the bus and outbound text, photo and
// voice replies back to the chat.
type Telegram struct {
	token     string
	allowFrom []int64 // Allowed user IDs (empty = allow all)
	parseMode string

	bot    *tgbotapi.BotAPI
	bus    domain.MessageBus
	media  *http.Client
	logger *slog.Logger
}

type TelegramConfig struct {
	Token     string
	AllowFrom []string // User IDs as strings
	ParseMode string
	Logger    *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	if cfg.ParseMode == "" {
		cfg.ParseMode = "Markdown"
	}
	return &Telegram{
		token:     cfg.Token,
		allowFrom: allowed,
		parseMode: cfg.ParseMode,
		media:     &http.Client{Timeout: mediaDownloadTimeout},
		logger:    cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and begins polling for updates.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	t.bus = bus

	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	bus.OnOutbound("telegram", t.deliver)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(update)
		}
	}
}

// Stop is a no-op: the bot stops when Start's context is cancelled.
func (t *Telegram) Stop() error {
	return nil
}

func (t *Telegram) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !t.isAllowed(userID) {
		t.logger.Warn("unauthorized telegram user",
			"user_id", userID,
			"username", update.Message.From.UserName,
		)
		t.sendMessage(chatID, "Unauthorized. Your user ID is not in the allow list.")
		return
	}

	text := update.Message.Text
	if text == "" {
		text = update.Message.Caption
	}

	msg := domain.InboundMessage{
		Channel:    "telegram",
		ChatID:     strconv.FormatInt(chatID, 10),
		SenderID:   strconv.FormatInt(userID, 10),
		SenderName: senderName(update.Message.From),
		Text:       text,
		Timestamp:  time.Unix(int64(update.Message.Date), 0),
	}

	// Largest photo size is last in the slice.
	if len(update.Message.Photo) > 0 {
		photo := update.Message.Photo[len(update.Message.Photo)-1]
		data, err := t.downloadFile(photo.FileID)
		if err != nil {
			t.logger.Error("photo download failed", "err", err)
		} else {
			msg.Photo = data
		}
	} else if update.Message.Voice != nil {
		data, err := t.downloadFile(update.Message.Voice.FileID)
		if err != nil {
			t.logger.Error("voice download failed", "err", err)
		} else {
			msg.Voice = data
		}
	}

	if msg.Text == "" && msg.Photo == nil && msg.Voice == nil {
		return
	}

	t.logger.Info("telegram message received",
		"user_id", userID,
		"chat_id", chatID,
		"text_len", len(msg.Text),
		"photo", msg.Photo != nil,
		"voice", msg.Voice != nil,
	)

	t.bus.Publish(msg)
}

func senderName(from *tgbotapi.User) string {
	if from.UserName != "" {
		return from.UserName
	}
	return from.FirstName
}

func (t *Telegram) downloadFile(fileID string) ([]byte, error) {
	url, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file URL: %w", err)
	}
	resp, err := t.media.Get(url)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// deliver routes one outbound message to the chat by kind.
func (t *Telegram) deliver(msg domain.OutboundMessage) {
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		t.logger.Error("invalid chat ID for telegram outbound", "chatID", msg.ChatID, "err", err)
		return
	}

	switch msg.Kind {
	case domain.KindPhoto:
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "vision.jpg", Bytes: msg.Payload})
		photo.Caption = msg.Caption
		if _, err := t.bot.Send(photo); err != nil {
			t.logger.Error("telegram photo send failed", "err", err)
		}
	case domain.KindVoice:
		voice := tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{Name: "reply.mp3", Bytes: msg.Payload})
		if _, err := t.bot.Send(voice); err != nil {
			t.logger.Error("telegram voice send failed", "err", err)
		}
	case domain.KindAction:
		action := tgbotapi.NewChatAction(chatID, chatAction(msg.Content))
		_, _ = t.bot.Send(action)
	default:
		t.sendMessage(chatID, msg.Content)
	}
}

func chatAction(name string) string {
	if name == "upload_photo" {
		return tgbotapi.ChatUploadPhoto
	}
	return tgbotapi.ChatTyping
}

func (t *Telegram) isAllowed(userID int64) bool {
	if len(t.allowFrom) == 0 {
		return true // Empty list = allow all
	}
	for _, id := range t.allowFrom {
		if id == userID {
			return true
		}
	}
	return false
}

func (t *Telegram) sendMessage(chatID int64, text string) {
	// Telegram has a 4096 char limit per message
	const maxLen = telegramMaxMsgLen
	for len(text) > 0 {
		chunk := text
		if len(chunk) > maxLen {
			cutAt := strings.LastIndex(chunk[:maxLen], "\n")
			if cutAt < maxLen/2 {
				cutAt = maxLen
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}

		t.sendChunk(chatID, chunk)
	}
}

// sendChunk sends a single message chunk with retry and rate limit handling.
// Strategy: try Markdown first, on parse error fall back to plain text, then
// retry with backoff.
func (t *Telegram) sendChunk(chatID int64, text string) {
	const maxRetries = telegramMaxSendRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		if attempt == 0 && t.parseMode != "" {
			msg.ParseMode = t.parseMode
		}
		// On subsequent attempts: send as plain text (parse mode may be malformed).

		_, err := t.bot.Send(msg)
		if err == nil {
			return
		}

		errStr := err.Error()

		// Handle Telegram rate limiting (HTTP 429).
		if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.logger.Warn("telegram rate limited, backing off",
				"retry_after", retryAfter, "attempt", attempt+1,
			)
			time.Sleep(retryAfter)
			continue
		}

		// Markdown parse error on first attempt: immediately retry as plain text.
		if attempt == 0 && msg.ParseMode != "" &&
			strings.Contains(errStr, "can't parse entities") {
			t.logger.Warn("telegram markdown parse error, retrying as plain text",
				"err", err, "parseMode", t.parseMode,
			)
			plainMsg := tgbotapi.NewMessage(chatID, text)
			if _, err2 := t.bot.Send(plainMsg); err2 == nil {
				return
			}
		}

		if attempt < maxRetries {
			backoff := time.Duration(attempt+1) * time.Second
			t.logger.Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}

		t.logger.Error("telegram send failed after retries", "err", err, "attempts", maxRetries+1)
	}
}

package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/yourusername/llm-relay-bot/config"
	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
	"github.com/yourusername/llm-relay-bot/internal/usecase"
)

// botAPI is the part of *tgbotapi.BotAPI the handler uses
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// BotHandler Telegram bot handler
type BotHandler struct {
	bot      botAPI
	username string
	relay    usecase.RelayUseCase
	limits   config.Limits
	logger   *zap.Logger
	inflight sync.WaitGroup
}

// NewBotHandler yangi bot handler yaratish
func NewBotHandler(token string, relay usecase.RelayUseCase, limits config.Limits, logger *zap.Logger) (*BotHandler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := tgbotapi.SetLogger(zap.NewStdLog(logger.Named("tgbotapi"))); err != nil {
		return nil, fmt.Errorf("failed to set bot logger: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return newBotHandler(bot, bot.Self.UserName, relay, limits, logger), nil
}

func newBotHandler(bot botAPI, username string, relay usecase.RelayUseCase, limits config.Limits, logger *zap.Logger) *BotHandler {
	return &BotHandler{
		bot:      bot,
		username: username,
		relay:    relay,
		limits:   limits,
		logger:   logger,
	}
}

// Start botni ishga tushirish. It blocks until ctx is cancelled and every
// in-flight message has been answered.
func (h *BotHandler) Start(ctx context.Context) error {
	if _, err := h.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("failed to drop pending updates: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)
	h.logger.Info("bot ishga tushdi", zap.String("username", h.username))

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("bot to'xtatilmoqda")
			h.bot.StopReceivingUpdates()
			h.inflight.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				h.inflight.Wait()
				return nil
			}
			if update.Message == nil {
				continue
			}

			h.inflight.Add(1)
			go func() {
				defer h.inflight.Done()
				h.handleMessage(ctx, update.UpdateID, update.Message)
			}()
		}
	}
}

// handleMessage xabarni qayta ishlash
func (h *BotHandler) handleMessage(ctx context.Context, updateID int, message *tgbotapi.Message) {
	if message.Chat == nil || message.From == nil {
		return
	}
	chatID := message.Chat.ID

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic while handling update",
				zap.Int("update_id", updateID),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			h.sendMessage(chatID, usecase.GenericApology)
		}
	}()

	if message.IsCommand() {
		h.handleCommand(message)
		return
	}

	// rasm, stiker va boshqalar e'tiborsiz qoldiriladi
	if message.Text == "" {
		return
	}

	h.handleTextMessage(ctx, message)
}

// handleCommand komandalarni qayta ishlash
func (h *BotHandler) handleCommand(message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		h.sendMessage(message.Chat.ID, h.getWelcomeMessage())
	case "help":
		h.sendMessage(message.Chat.ID, h.getHelpMessage())
	default:
		h.sendMessage(message.Chat.ID, "Unknown command. Use /help for usage.")
	}
}

func (h *BotHandler) handleTextMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	// "typing" indikatori
	if _, err := h.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		h.logger.Debug("chat action failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	reply := h.relay.ProcessMessage(ctx, entity.InboundMessage{
		UserID:   message.From.ID,
		Username: displayName(message.From),
		Text:     message.Text,
	})

	if reply.Markdown {
		h.sendMessageMarkdown(chatID, reply.Text)
		return
	}
	h.sendMessage(chatID, reply.Text)
}

// sendMessage oddiy xabar yuborish
func (h *BotHandler) sendMessage(chatID int64, text string) {
	if err := h.sendPlain(chatID, text); err != nil {
		h.logger.Warn("xabar yuborishda xatolik", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (h *BotHandler) sendPlain(chatID int64, text string) error {
	_, err := h.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// sendMessageMarkdown markdown formatda xabar yuborish. Model output is not
// guaranteed to be valid markup, so a rejected message is resent as plain
// text, and an apology goes out if that is refused too.
func (h *BotHandler) sendMessageMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := h.bot.Send(msg)
	if err == nil {
		return
	}

	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		h.logger.Warn("xabar yuborishda xatolik", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	h.logger.Debug("markdown rejected, resending as plain text", zap.Int64("chat_id", chatID), zap.Error(err))
	if err := h.sendPlain(chatID, text); err != nil {
		// the user still gets an answer when the platform refuses the reply itself
		h.logger.Warn("reply rejected, sending apology",
			zap.Int64("chat_id", chatID),
			zap.Int("length", usecase.TextLength(text)),
			zap.Error(err),
		)
		h.sendMessage(chatID, usecase.GenericApology)
	}
}

// getWelcomeMessage salom xabari
func (h *BotHandler) getWelcomeMessage() string {
	return fmt.Sprintf(`🤖 Hi! I relay your messages to an AI assistant.

• Just send me a message
• Use /help for more info
• Rate limit: 1 request per %d seconds`, int(h.limits.Cooldown.Seconds()))
}

// getHelpMessage yordam xabari
func (h *BotHandler) getHelpMessage() string {
	return fmt.Sprintf(`ℹ️ Bot usage guide:

- Keep messages under %d characters
- I process text only (no files or images)
- Responses are limited to %d characters
- Cooldown: %d seconds between requests`,
		h.limits.MaxInputLength,
		h.limits.MaxResponseLength,
		int(h.limits.Cooldown.Seconds()),
	)
}

// GetBotUsername bot username ni olish
func (h *BotHandler) GetBotUsername() string {
	return h.username
}

func displayName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return user.UserName
	}
	return user.FirstName
}

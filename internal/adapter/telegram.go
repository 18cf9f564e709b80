package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/tabi/internal/concurrency"
	"github.com/harunnryd/tabi/internal/config"
	"github.com/harunnryd/tabi/internal/errors"
	"github.com/harunnryd/tabi/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramMessageLimit  = 4096
	defaultTelegramTurnTO = 90 * time.Second
	telegramGreeting      = "Hi! I'm Tabi, your travel assistant. Ask me about flights, hotels, places to visit, restaurants or the weather anywhere in the world."
)

// telegramBot is the part of tgbotapi.BotAPI the adapter uses.
type telegramBot interface {
	GetMe() (tgbotapi.User, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type TelegramAdapter struct {
	token         string
	updateTimeout int
	eventHandler  EventHandler

	mu      sync.Mutex
	bot     telegramBot
	pending sync.WaitGroup
}

func NewTelegramAdapter(token string, eventHandler EventHandler, updateTimeout int) *TelegramAdapter {
	if updateTimeout <= 0 {
		updateTimeout = config.DefaultTelegramUpdateTimeout
	}
	return &TelegramAdapter{
		token:         token,
		updateTimeout: updateTimeout,
		eventHandler:  eventHandler,
	}
}

func (t *TelegramAdapter) Name() string {
	return "telegram"
}

// Start long-polls for updates until ctx is done.
func (t *TelegramAdapter) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return errors.WrapWithCategory(err, "failed to init telegram bot", errors.ErrProviderUnavailable)
	}
	slog.Info("Telegram adapter started", "user", bot.Self.UserName)
	return t.run(ctx, bot)
}

func (t *TelegramAdapter) run(ctx context.Context, bot telegramBot) error {
	t.mu.Lock()
	t.bot = bot
	t.mu.Unlock()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.updateTimeout
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			concurrency.Go(&t.pending, "telegram-update", func() {
				t.handleUpdate(ctx, update)
			})
		}
	}
}

func (t *TelegramAdapter) Stop(ctx context.Context) error {
	t.mu.Lock()
	bot := t.bot
	t.mu.Unlock()
	if bot != nil {
		bot.StopReceivingUpdates()
	}

	done := make(chan struct{})
	go func() {
		t.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *TelegramAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	if msg.From != nil && msg.From.IsBot {
		return
	}

	sessionID := strconv.FormatInt(msg.Chat.ID, 10)
	switch msg.Command() {
	case "start", "help":
		if err := t.Send(ctx, sessionID, telegramGreeting); err != nil {
			slog.Error("Failed to greet on Telegram", "chat_id", sessionID, "error", err)
		}
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" || t.eventHandler == nil {
		return
	}
	metrics.AdapterMessages.WithLabelValues(t.Name(), "received").Inc()

	in := Inbound{Source: t.Name(), SessionID: sessionID, Text: text}
	if msg.From != nil {
		in.UserID = strconv.FormatInt(msg.From.ID, 10)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTelegramTurnTO)
	defer cancel()

	reply, err := t.eventHandler(ctx, in)
	if err != nil {
		slog.Error("Failed to handle Telegram event", "chat_id", sessionID, "error", err)
		return
	}
	if err := t.Send(ctx, sessionID, reply); err != nil {
		slog.Error("Failed to reply on Telegram", "chat_id", sessionID, "error", err)
		metrics.AdapterMessages.WithLabelValues(t.Name(), "send_failed").Inc()
		return
	}
	metrics.AdapterMessages.WithLabelValues(t.Name(), "replied").Inc()
}

// Send sends a reply back to Telegram, split to fit the message limit.
func (t *TelegramAdapter) Send(ctx context.Context, sessionID string, content string) error {
	chatID, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return errors.InvalidInput("invalid telegram session ID: " + err.Error())
	}

	t.mu.Lock()
	bot := t.bot
	t.mu.Unlock()
	if bot == nil {
		return errors.ProviderUnavailable("telegram bot not initialized")
	}

	for i, chunk := range splitMessage(content, telegramMessageLimit) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return errors.WrapWithCategory(err, fmt.Sprintf("failed to send telegram message part %d", i+1), errors.ErrProviderUnavailable)
		}
	}

	slog.Debug("Telegram message sent", "chat_id", sessionID)
	return nil
}

func (t *TelegramAdapter) Health(ctx context.Context) error {
	t.mu.Lock()
	bot := t.bot
	t.mu.Unlock()
	if bot == nil {
		return errors.ProviderUnavailable("telegram bot not initialized")
	}
	if _, err := bot.GetMe(); err != nil {
		return errors.WrapWithCategory(err, "telegram connection failed", errors.ErrProviderUnavailable)
	}
	return nil
}

package telegrambot

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"

	"amx-support-bot/internal/chat"
	"amx-support-bot/internal/config"
	"amx-support-bot/internal/handlers"
	"amx-support-bot/internal/permissions"
	"amx-support-bot/internal/services"
)

// Bot represents the Telegram support bot. It also implements chat.Gateway:
// the handlers talk to the platform only through that interface.
type Bot struct {
	bot      *telebot.Bot
	config   *config.Config
	handlers map[permissions.AccessType]handlers.MessageHandler
	permCtrl *permissions.Controller
	logger   *logrus.Logger
}

// NewBot creates a new Telegram bot
func NewBot(
	cfg *config.Config,
	records *services.RecordService,
	tickets *services.TicketService,
	validator *services.SubscriptionValidator,
	qrService *services.QRService,
	permCtrl *permissions.Controller,
	logger *logrus.Logger,
) (*Bot, error) {
	settings := telebot.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			logger.Errorf("Telegram bot error: %v", err)
			if c != nil {
				c.Send("An error occurred. Please try again later.")
			}
		},
	}

	b, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	bot := &Bot{
		bot:      b,
		config:   cfg,
		handlers: make(map[permissions.AccessType]handlers.MessageHandler),
		permCtrl: permCtrl,
		logger:   logger,
	}

	// The bot is its own gateway
	factory := handlers.NewHandlerFactory(records, tickets, validator, qrService, bot, cfg, logger)
	bot.handlers[permissions.Admin] = factory.CreateHandler(permissions.Admin)
	bot.handlers[permissions.Customer] = factory.CreateHandler(permissions.Customer)

	bot.setupMiddleware()

	return bot, nil
}

// Start starts the bot
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting Telegram bot")

	go func() {
		<-ctx.Done()
		b.logger.Info("Stopping Telegram bot")
		b.bot.Stop()
	}()

	b.bot.Start()
	return nil
}

// setupMiddleware sets up the bot middleware and routes
func (b *Bot) setupMiddleware() {
	b.bot.Use(func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			b.logger.Infof("Received message from %d: %s", c.Sender().ID, c.Text())
			return next(c)
		}
	})

	b.bot.Handle(telebot.OnText, b.handleUpdate)
	b.bot.Handle("/start", b.handleUpdate)
}

// handleUpdate routes an update to the handler for the sender's access type
func (b *Bot) handleUpdate(c telebot.Context) error {
	sender := c.Sender()
	accessType := b.permCtrl.GetAccessType(sender.ID)

	handler, ok := b.handlers[accessType]
	if !ok {
		b.logger.Warnf("No handler for access type %d", accessType)
		return c.Send("You don't have permission to use this bot.")
	}

	username := sender.Username
	if username == "" {
		username = sender.FirstName
	}

	return handler.Handle(context.Background(), sender.ID, username, c.Text())
}

// Send delivers a text message, optionally with a reply keyboard
func (b *Bot) Send(ch chat.Channel, text string, keyboard [][]string) error {
	opts := &telebot.SendOptions{
		ParseMode: telebot.ModeHTML,
	}
	if keyboard != nil {
		opts.ReplyMarkup = buildKeyboard(keyboard)
	}

	_, err := b.bot.Send(&telebot.Chat{ID: ch.ID}, text, opts)
	return err
}

// SendPhoto delivers a PNG with a caption
func (b *Bot) SendPhoto(ch chat.Channel, png []byte, caption string) error {
	photo := &telebot.Photo{
		File:    telebot.FromReader(bytes.NewReader(png)),
		Caption: caption,
	}

	_, err := b.bot.Send(&telebot.Chat{ID: ch.ID}, photo)
	return err
}

// CreatePrivateChannel returns the handle of the user's support
// conversation. On Telegram the direct chat is the closest analog of a
// dedicated private channel; other platforms can create a real one.
func (b *Bot) CreatePrivateChannel(userID int64, name string) (chat.Channel, error) {
	return chat.Channel{ID: userID, Name: name}, nil
}

// DeleteChannel releases a support conversation. A Telegram direct chat
// cannot be deleted through the API, so teardown is a logged no-op; it is
// idempotent either way.
func (b *Bot) DeleteChannel(ch chat.Channel) error {
	b.logger.Debugf("Released channel %s (%d)", ch.Name, ch.ID)
	return nil
}

// NotifyAudit appends a notice to the audit channel, if one is configured
func (b *Bot) NotifyAudit(text string) error {
	return b.notify(b.config.Channels.AuditChatID, text)
}

// NotifyEscalation notifies the operator channel, if one is configured
func (b *Bot) NotifyEscalation(text string) error {
	return b.notify(b.config.Channels.EscalationChatID, text)
}

// notify sends to a configured chat; a zero id disables the notice
func (b *Bot) notify(chatID int64, text string) error {
	if chatID == 0 {
		b.logger.Debug("Notice channel not configured, skipping")
		return nil
	}

	_, err := b.bot.Send(&telebot.Chat{ID: chatID}, text, &telebot.SendOptions{ParseMode: telebot.ModeHTML})
	return err
}

// buildKeyboard converts rows of labels into a reply keyboard
func buildKeyboard(rows [][]string) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard: true,
	}

	tbRows := make([]telebot.Row, 0, len(rows))
	for _, row := range rows {
		tbRow := make(telebot.Row, 0, len(row))
		for _, label := range row {
			tbRow = append(tbRow, telebot.Btn{Text: label})
		}
		tbRows = append(tbRows, tbRow)
	}

	markup.Reply(tbRows...)
	return markup
}

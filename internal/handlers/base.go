package handlers

import (
	"github.com/sirupsen/logrus"

	"amx-support-bot/internal/chat"
	"amx-support-bot/internal/commands"
	"amx-support-bot/internal/config"
	"amx-support-bot/internal/services"
)

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	records   *services.RecordService
	tickets   *services.TicketService
	validator *services.SubscriptionValidator
	qrService *services.QRService
	gateway   chat.Gateway
	config    *config.Config
	logger    *logrus.Logger
}

// NewBaseHandler creates a new base handler
func NewBaseHandler(
	records *services.RecordService,
	tickets *services.TicketService,
	validator *services.SubscriptionValidator,
	qrService *services.QRService,
	gateway chat.Gateway,
	config *config.Config,
	logger *logrus.Logger,
) BaseHandler {
	return BaseHandler{
		records:   records,
		tickets:   tickets,
		validator: validator,
		qrService: qrService,
		gateway:   gateway,
		config:    config,
		logger:    logger,
	}
}

// send delivers a message through the gateway, logging delivery failures
func (h *BaseHandler) send(ch chat.Channel, text string, keyboard [][]string) error {
	err := h.gateway.Send(ch, text, keyboard)
	if err != nil {
		h.logger.Errorf("Failed to send message to channel %d: %v", ch.ID, err)
	}
	return err
}

// directChannel is the user's own conversation, used before a ticket owns
// a private channel.
func (h *BaseHandler) directChannel(userID int64) chat.Channel {
	return chat.Channel{ID: userID}
}

// greetingKeyboard offers the yes/no greeting answers
func (h *BaseHandler) greetingKeyboard() [][]string {
	return [][]string{
		{commands.Yes, commands.No},
	}
}

// topicKeyboard offers the help topics
func (h *BaseHandler) topicKeyboard() [][]string {
	return [][]string{
		{commands.CheckProxyUpdate},
		{commands.CheckProxyStatus},
		{commands.AskQuestion},
	}
}

// resolutionKeyboard offers close-or-escalate
func (h *BaseHandler) resolutionKeyboard() [][]string {
	return [][]string{
		{commands.CloseTicket, commands.ProblemNotSolved},
	}
}

// closeKeyboard offers only the close action
func (h *BaseHandler) closeKeyboard() [][]string {
	return [][]string{
		{commands.CloseTicket},
	}
}

// adminKeyboard offers the operator commands
func (h *BaseHandler) adminKeyboard() [][]string {
	return [][]string{
		{commands.ProxyOverview, commands.ToggleUpdateFlag},
		{commands.ReloadSnapshots},
	}
}

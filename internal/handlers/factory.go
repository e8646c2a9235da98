package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"amx-support-bot/internal/chat"
	"amx-support-bot/internal/config"
	"amx-support-bot/internal/permissions"
	"amx-support-bot/internal/services"
)

// MessageHandler defines the interface for handling incoming user actions
type MessageHandler interface {
	Handle(ctx context.Context, userID int64, username, text string) error
	CanHandle(accessType permissions.AccessType) bool
}

// HandlerFactory creates message handlers
type HandlerFactory struct {
	records   *services.RecordService
	tickets   *services.TicketService
	validator *services.SubscriptionValidator
	qrService *services.QRService
	gateway   chat.Gateway
	config    *config.Config
	logger    *logrus.Logger
}

// NewHandlerFactory creates a new handler factory
func NewHandlerFactory(
	records *services.RecordService,
	tickets *services.TicketService,
	validator *services.SubscriptionValidator,
	qrService *services.QRService,
	gateway chat.Gateway,
	config *config.Config,
	logger *logrus.Logger,
) *HandlerFactory {
	return &HandlerFactory{
		records:   records,
		tickets:   tickets,
		validator: validator,
		qrService: qrService,
		gateway:   gateway,
		config:    config,
		logger:    logger,
	}
}

// CreateHandler creates a message handler for the given access type
func (f *HandlerFactory) CreateHandler(accessType permissions.AccessType) MessageHandler {
	base := NewBaseHandler(f.records, f.tickets, f.validator, f.qrService, f.gateway, f.config, f.logger)

	switch accessType {
	case permissions.Admin:
		return NewAdminHandler(base)
	default:
		return NewSupportHandler(base)
	}
}

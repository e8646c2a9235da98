package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"amx-support-bot/internal/apperrors"
	"amx-support-bot/internal/commands"
	"amx-support-bot/internal/helpers"
	"amx-support-bot/internal/models"
	"amx-support-bot/internal/permissions"
	"amx-support-bot/internal/validation"
)

// Dialog texts.
const (
	msgGreeting = "This is the Amexcess Automated Support Bot. You can use it to update your proxy and check your Proxy status. " +
		"If your proxy isn't working, please check for available updates and check the proxy IP status. " +
		"If you find that your proxy is down, click \"Yes\" for assistance."
	msgUseStart        = "Send /start to open a support ticket."
	msgAlreadyOpen     = "You already have an open support ticket. Please close it before opening a new one."
	msgDeclined        = "Okay! If you need help later, just let me know."
	msgChooseTopic     = "Please choose a topic for help:"
	msgUpdateAvailable = "Update is available! Please provide your Order ID by sending it in the chat."
	msgNoUpdates       = "Sorry! No updates available."
	msgAskProxyIP      = "Please provide the Proxy IP to check its status."
	msgAskQuestion     = "Ask your question here, and we'll assist you."
	msgCloseBelow      = "If you have not received a response, you can close the ticket below:"
	msgProblemSolved   = "Is your problem solved? If yes, please close the chat. If no, let us know."
	msgTooSlow         = "You took too long to respond! Please try again."
	msgClosed          = "Thank you! The chat is now closed."
	msgEscalated       = "We apologize for the inconvenience. Please contact support for further assistance."
	msgCloseEscalated  = "If you want to close the ticket, please click below:"
)

// SupportHandler drives the customer ticket dialog. All transitions are
// dispatched through one place, keyed by the ticket's state and the
// resolved button action.
type SupportHandler struct {
	BaseHandler
	actions map[string]models.ActionKind
}

// NewSupportHandler creates a new support handler and hooks the
// pending-input timeout.
func NewSupportHandler(base BaseHandler) *SupportHandler {
	handler := &SupportHandler{
		BaseHandler: base,
	}

	handler.initializeActions()
	handler.tickets.OnInputTimeout(handler.handleInputTimeout)
	return handler
}

// CanHandle checks if the handler can handle the given access type
func (h *SupportHandler) CanHandle(accessType permissions.AccessType) bool {
	return accessType == permissions.Customer
}

// Handle handles one incoming action or message from a user
func (h *SupportHandler) Handle(ctx context.Context, userID int64, username, text string) error {
	action := h.actionOf(text)

	ticket, ok := h.tickets.Get(userID)
	if !ok {
		if action == models.ActionOpen {
			return h.handleOpen(userID, username)
		}
		return h.send(h.directChannel(userID), msgUseStart, nil)
	}

	// A second open request never creates a second channel and leaves the
	// existing ticket untouched.
	if action == models.ActionOpen {
		return h.send(h.directChannel(userID), msgAlreadyOpen, nil)
	}

	switch ticket.State {
	case models.TicketGreeting:
		return h.handleGreeting(ticket, action)
	case models.TicketTopicSelection:
		return h.handleTopicSelection(ticket, action)
	case models.TicketAwaitingOrderID:
		return h.handleOrderInput(ticket, text, action)
	case models.TicketAwaitingIPAddress:
		return h.handleIPInput(ticket, text, action)
	case models.TicketResolution:
		return h.handleResolution(ticket, action)
	case models.TicketEscalated:
		return h.handleEscalated(ticket, action)
	default:
		h.logger.Warnf("Ticket for user %d in unexpected state %s", userID, ticket.State)
		return nil
	}
}

// initializeActions binds button labels to action kinds
func (h *SupportHandler) initializeActions() {
	h.actions = map[string]models.ActionKind{
		commands.Start:            models.ActionOpen,
		commands.Yes:              models.ActionAcceptHelp,
		commands.No:               models.ActionDeclineHelp,
		commands.CheckProxyUpdate: models.ActionCheckUpdate,
		commands.CheckProxyStatus: models.ActionCheckProxy,
		commands.AskQuestion:      models.ActionAskQuestion,
		commands.CloseTicket:      models.ActionCloseTicket,
		commands.ProblemNotSolved: models.ActionNotSolved,
	}
}

// actionOf resolves text to a button action; unmatched text is freeform
func (h *SupportHandler) actionOf(text string) models.ActionKind {
	if kind, ok := h.actions[text]; ok {
		return kind
	}
	return models.ActionNone
}

// handleOpen opens a fresh ticket and sends the greeting
func (h *SupportHandler) handleOpen(userID int64, username string) error {
	if _, err := h.tickets.Open(userID, username); err != nil {
		var dup *apperrors.DuplicateTicketError
		if errors.As(err, &dup) {
			return h.send(h.directChannel(userID), msgAlreadyOpen, nil)
		}
		return err
	}

	return h.send(h.directChannel(userID), msgGreeting, h.greetingKeyboard())
}

// handleGreeting handles the yes/no answer to the greeting
func (h *SupportHandler) handleGreeting(ticket models.Ticket, action models.ActionKind) error {
	switch action {
	case models.ActionAcceptHelp:
		channel, err := h.gateway.CreatePrivateChannel(ticket.UserID, fmt.Sprintf("%s-support", ticket.Username))
		if err != nil {
			h.logger.Errorf("Failed to create private channel for user %d: %v", ticket.UserID, err)
			return err
		}

		h.tickets.AttachChannel(ticket.UserID, channel)
		h.tickets.SetState(ticket.UserID, models.TicketTopicSelection)
		return h.send(channel, msgChooseTopic, h.topicKeyboard())

	case models.ActionDeclineHelp:
		h.tickets.Close(ticket.UserID)
		return h.send(h.directChannel(ticket.UserID), msgDeclined, nil)

	default:
		return h.send(h.directChannel(ticket.UserID), msgGreeting, h.greetingKeyboard())
	}
}

// handleTopicSelection handles the topic choice
func (h *SupportHandler) handleTopicSelection(ticket models.Ticket, action models.ActionKind) error {
	switch action {
	case models.ActionCheckUpdate:
		if !h.records.UpdateAvailable() {
			h.tickets.SetState(ticket.UserID, models.TicketResolution)
			return h.send(ticket.Channel, msgNoUpdates+"\n"+msgCloseBelow, h.closeKeyboard())
		}

		// Pending flag is set last so a stale flag can never outlive the
		// state it belongs to.
		h.tickets.SetState(ticket.UserID, models.TicketAwaitingOrderID)
		h.tickets.SetPending(ticket.UserID, models.PendingOrderID)
		return h.send(ticket.Channel, msgUpdateAvailable, nil)

	case models.ActionCheckProxy:
		h.tickets.SetState(ticket.UserID, models.TicketAwaitingIPAddress)
		h.tickets.SetPending(ticket.UserID, models.PendingIPAddress)
		return h.send(ticket.Channel, msgAskProxyIP, nil)

	case models.ActionAskQuestion:
		h.tickets.SetState(ticket.UserID, models.TicketResolution)
		return h.send(ticket.Channel, msgAskQuestion+"\n"+msgCloseBelow, h.closeKeyboard())

	default:
		return h.send(ticket.Channel, msgChooseTopic, h.topicKeyboard())
	}
}

// handleOrderInput consumes the awaited order id
func (h *SupportHandler) handleOrderInput(ticket models.Ticket, text string, action models.ActionKind) error {
	if action == models.ActionCloseTicket {
		return h.closeTicket(ticket)
	}

	// Leave the awaiting state before consuming the flag; see
	// TicketService.ClearPending.
	h.tickets.SetState(ticket.UserID, models.TicketResolution)
	h.tickets.ClearPending(ticket.UserID)

	orderID := validation.NormalizeOrderID(text)
	response := h.orderResponse(ticket, orderID)

	if err := h.send(ticket.Channel, response, nil); err != nil {
		return err
	}

	if err := h.gateway.NotifyAudit(helpers.FormatTranscript(ticket.Username, orderID, response)); err != nil {
		h.logger.Warnf("Failed to write audit transcript: %v", err)
	}

	return h.send(ticket.Channel, msgProblemSolved, h.resolutionKeyboard())
}

// orderResponse evaluates the order id and renders the user-facing reply.
// Lookup misses and malformed dates degrade to explanatory messages.
func (h *SupportHandler) orderResponse(ticket models.Ticket, orderID string) string {
	order, eval, err := h.validator.EvaluateOrder(orderID, time.Now())
	if err != nil {
		var notFound *apperrors.NotFoundError
		if errors.As(err, &notFound) {
			return helpers.MsgOrderNotFound
		}

		var malformed *apperrors.MalformedDateError
		if errors.As(err, &malformed) {
			h.logger.Warnf("Order %s has a malformed date: %v", orderID, err)
			return helpers.MsgDateMissing
		}

		h.logger.Errorf("Order evaluation failed for %s: %v", orderID, err)
		return helpers.MsgOrderNotFound
	}

	if eval.Replacement != nil {
		h.sendEndpointQR(ticket, *eval.Replacement)
	}

	return helpers.FormatOrderDetails(order, eval)
}

// sendEndpointQR delivers the replacement endpoint as a QR code. A failed
// render only loses the QR, not the text response.
func (h *SupportHandler) sendEndpointQR(ticket models.Ticket, endpoint models.Endpoint) {
	png, err := h.qrService.EncodeEndpoint(endpoint)
	if err != nil {
		return
	}

	if err := h.gateway.SendPhoto(ticket.Channel, png, "Scan to configure the updated proxy"); err != nil {
		h.logger.Warnf("Failed to send endpoint QR to user %d: %v", ticket.UserID, err)
	}
}

// handleIPInput consumes the awaited proxy address
func (h *SupportHandler) handleIPInput(ticket models.Ticket, text string, action models.ActionKind) error {
	if action == models.ActionCloseTicket {
		return h.closeTicket(ticket)
	}

	h.tickets.SetState(ticket.UserID, models.TicketResolution)
	h.tickets.ClearPending(ticket.UserID)

	addr := validation.NormalizeAddress(text)
	response := helpers.MsgProxyNotFound
	if validation.ValidateAddress(addr) == nil {
		if status, ok := h.records.ProxyStatus(addr); ok {
			response = helpers.FormatProxyStatus(addr, status)
		}
	}

	if err := h.send(ticket.Channel, response, nil); err != nil {
		return err
	}

	if err := h.gateway.NotifyAudit(helpers.FormatTranscript(ticket.Username, addr, response)); err != nil {
		h.logger.Warnf("Failed to write audit transcript: %v", err)
	}

	return h.send(ticket.Channel, msgProblemSolved, h.resolutionKeyboard())
}

// handleResolution handles the close-or-escalate choice
func (h *SupportHandler) handleResolution(ticket models.Ticket, action models.ActionKind) error {
	switch action {
	case models.ActionCloseTicket:
		return h.closeTicket(ticket)

	case models.ActionNotSolved:
		if err := h.gateway.NotifyEscalation(fmt.Sprintf("User %s indicated their problem is not solved.", ticket.Username)); err != nil {
			h.logger.Warnf("Failed to notify escalation channel: %v", err)
		}

		h.tickets.SetState(ticket.UserID, models.TicketEscalated)
		return h.send(ticket.Channel, msgEscalated+"\n"+msgCloseEscalated, h.closeKeyboard())

	default:
		return h.send(ticket.Channel, msgProblemSolved, h.resolutionKeyboard())
	}
}

// handleEscalated keeps the ticket open until an explicit close
func (h *SupportHandler) handleEscalated(ticket models.Ticket, action models.ActionKind) error {
	if action == models.ActionCloseTicket {
		return h.closeTicket(ticket)
	}
	return h.send(ticket.Channel, msgCloseEscalated, h.closeKeyboard())
}

// closeTicket tears down the ticket: closure notice, idempotent channel
// delete, registry removal, audit entry.
func (h *SupportHandler) closeTicket(ticket models.Ticket) error {
	if err := h.send(ticket.Channel, msgClosed, nil); err != nil {
		h.logger.Warnf("Failed to send closure notice to user %d: %v", ticket.UserID, err)
	}

	if err := h.gateway.DeleteChannel(ticket.Channel); err != nil {
		h.logger.Warnf("Failed to delete channel %d: %v", ticket.Channel.ID, err)
	}

	h.tickets.Close(ticket.UserID)

	if err := h.gateway.NotifyAudit(fmt.Sprintf("<b>User:</b> %s has closed the ticket.", ticket.Username)); err != nil {
		h.logger.Warnf("Failed to write audit closure notice: %v", err)
	}

	return nil
}

// handleInputTimeout fires on the cache's janitor goroutine when a
// pending-input flag expires. The compare-and-transition distinguishes a
// real timeout from a consumed flag: by the time a consumed flag is deleted
// the ticket has already left its awaiting state, so the transition fails
// and nothing happens.
func (h *SupportHandler) handleInputTimeout(userID int64, kind models.PendingInput) {
	var awaiting models.TicketState
	switch kind {
	case models.PendingOrderID:
		awaiting = models.TicketAwaitingOrderID
	case models.PendingIPAddress:
		awaiting = models.TicketAwaitingIPAddress
	default:
		return
	}

	if !h.tickets.SetStateIf(userID, awaiting, models.TicketResolution) {
		return
	}

	ticket, ok := h.tickets.Get(userID)
	if !ok {
		return
	}

	if err := h.send(ticket.Channel, msgTooSlow, h.resolutionKeyboard()); err != nil {
		h.logger.Warnf("Failed to send timeout notice to user %d: %v", userID, err)
	}
}

package handlers

import (
	"context"
	"fmt"

	"amx-support-bot/internal/commands"
	"amx-support-bot/internal/helpers"
	"amx-support-bot/internal/permissions"
)

// AdminHandler handles operator commands
type AdminHandler struct {
	BaseHandler
	commandHandlers map[string]func(userID int64) error
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(base BaseHandler) *AdminHandler {
	handler := &AdminHandler{
		BaseHandler: base,
	}

	handler.initializeCommands()
	return handler
}

// CanHandle checks if the handler can handle the given access type
func (h *AdminHandler) CanHandle(accessType permissions.AccessType) bool {
	return accessType == permissions.Admin
}

// Handle handles a message from an operator
func (h *AdminHandler) Handle(ctx context.Context, userID int64, username, text string) error {
	if handler, ok := h.commandHandlers[text]; ok {
		return handler(userID)
	}

	// Anything else shows the menu
	return h.handleStart(userID)
}

// initializeCommands initializes the command handlers
func (h *AdminHandler) initializeCommands() {
	h.commandHandlers = map[string]func(userID int64) error{
		commands.Start:            h.handleStart,
		commands.ProxyOverview:    h.handleProxyOverview,
		commands.ToggleUpdateFlag: h.handleToggleUpdateFlag,
		commands.ReloadSnapshots:  h.handleReloadSnapshots,
		commands.ReturnToMainMenu: h.handleStart,
	}
}

// handleStart shows the operator menu
func (h *AdminHandler) handleStart(userID int64) error {
	return h.send(h.directChannel(userID), "Welcome to the Amexcess Support Admin Bot!", h.adminKeyboard())
}

// handleProxyOverview lists every known proxy with its liveness
func (h *AdminHandler) handleProxyOverview(userID int64) error {
	overview := helpers.FormatProxyOverview(h.records.LivenessSnapshot())
	return h.send(h.directChannel(userID), overview, h.adminKeyboard())
}

// handleToggleUpdateFlag flips the update-available flag file
func (h *AdminHandler) handleToggleUpdateFlag(userID int64) error {
	next := !h.records.UpdateAvailable()
	if err := h.records.SetUpdateAvailable(next); err != nil {
		h.logger.Errorf("Failed to write update flag: %v", err)
		return h.send(h.directChannel(userID), fmt.Sprintf("Failed to write update flag: %v", err), h.adminKeyboard())
	}

	return h.send(h.directChannel(userID), fmt.Sprintf("Update availability is now <b>%t</b>.", next), h.adminKeyboard())
}

// handleReloadSnapshots re-reads all snapshots on demand
func (h *AdminHandler) handleReloadSnapshots(userID int64) error {
	h.records.Reload()

	summary := fmt.Sprintf("Snapshots reloaded: %d orders, %d proxies tracked, %d tickets open.",
		h.records.OrderCount(), len(h.records.LivenessSnapshot()), h.tickets.OpenCount())
	return h.send(h.directChannel(userID), summary, h.adminKeyboard())
}

package models

import (
	"time"

	"amx-support-bot/internal/chat"
)

// TicketState represents the lifecycle position of a support ticket
type TicketState int

const (
	// TicketGreeting is the initial state, waiting for the user to accept or decline help
	TicketGreeting TicketState = iota
	// TicketTopicSelection is the state when the user is choosing a help topic
	TicketTopicSelection
	// TicketAwaitingOrderID is the state when the next freeform message is an order id
	TicketAwaitingOrderID
	// TicketAwaitingIPAddress is the state when the next freeform message is a proxy address
	TicketAwaitingIPAddress
	// TicketResolution is the state offering close-or-escalate after a result was delivered
	TicketResolution
	// TicketEscalated is the state after the user reported the problem unsolved
	TicketEscalated
	// TicketClosed is the terminal state; the ticket is removed from the registry
	TicketClosed
)

// String returns a human-readable state name for logs.
func (s TicketState) String() string {
	switch s {
	case TicketGreeting:
		return "greeting"
	case TicketTopicSelection:
		return "topic-selection"
	case TicketAwaitingOrderID:
		return "awaiting-order-id"
	case TicketAwaitingIPAddress:
		return "awaiting-ip-address"
	case TicketResolution:
		return "resolution"
	case TicketEscalated:
		return "escalated"
	case TicketClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// PendingInput marks which kind of freeform message is expected next from a
// user. It is set only while that user's ticket is open and consumed once.
type PendingInput int

const (
	PendingNone PendingInput = iota
	PendingOrderID
	PendingIPAddress
)

// Ticket is one live support conversation. At most one exists per user.
type Ticket struct {
	UserID   int64
	Username string
	Channel  chat.Channel
	State    TicketState
	OpenedAt time.Time
}

package models

// ActionKind is a button action resolved from its label. Freeform text that
// matches no button resolves to ActionNone and is interpreted through the
// ticket's pending-input flag instead.
type ActionKind int

const (
	// ActionNone means the text is not a recognized button
	ActionNone ActionKind = iota
	// ActionOpen is a request to open a new ticket
	ActionOpen
	// ActionAcceptHelp is the Yes answer to the greeting
	ActionAcceptHelp
	// ActionDeclineHelp is the No answer to the greeting
	ActionDeclineHelp
	// ActionCheckUpdate selects the order/update-check topic
	ActionCheckUpdate
	// ActionCheckProxy selects the proxy liveness topic
	ActionCheckProxy
	// ActionAskQuestion selects the freeform question topic
	ActionAskQuestion
	// ActionCloseTicket confirms the ticket is resolved
	ActionCloseTicket
	// ActionNotSolved reports the problem as unresolved
	ActionNotSolved
)

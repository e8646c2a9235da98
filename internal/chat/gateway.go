package chat

// Channel is a handle to a platform conversation.
type Channel struct {
	ID   int64
	Name string
}

// Gateway is the narrow surface of the chat platform the bot core talks to.
// Keyboards are rows of button labels; a nil keyboard sends plain text.
//
// DeleteChannel must be idempotent: deleting a channel that is already gone
// is swallowed, not reported.
type Gateway interface {
	Send(ch Channel, text string, keyboard [][]string) error
	SendPhoto(ch Channel, png []byte, caption string) error
	CreatePrivateChannel(userID int64, name string) (Channel, error)
	DeleteChannel(ch Channel) error
	NotifyAudit(text string) error
	NotifyEscalation(text string) error
}

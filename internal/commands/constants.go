package commands

// TelegramCommands contains all commands and button labels for the bot
const (
	// Main commands
	Start = "/start"

	// Greeting answers
	Yes = "Yes"
	No  = "No"

	// Help topics
	CheckProxyUpdate = "Check Proxy Update"
	CheckProxyStatus = "Check Proxy Status"
	AskQuestion      = "Ask a Question"

	// Resolution commands
	CloseTicket      = "Close Ticket"
	ProblemNotSolved = "Problem Not Solved"

	// Administrator commands
	ProxyOverview    = "Proxy Overview"
	ToggleUpdateFlag = "Toggle Update Flag"
	ReloadSnapshots  = "Reload Snapshots"
	ReturnToMainMenu = "Return to Main Menu"
)

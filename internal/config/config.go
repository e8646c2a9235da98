package config

import "time"

// Config represents the application configuration
type Config struct {
	Telegram     TelegramConfig
	Channels     ChannelConfig
	Snapshots    SnapshotConfig
	Subscription SubscriptionConfig
	Refresh      RefreshConfig
	Prober       ProberConfig
	LogLevel     string
}

// TelegramConfig holds the Telegram bot configuration
type TelegramConfig struct {
	Token    string
	AdminIDs []int64
}

// ChannelConfig holds the audit and escalation chat destinations. A zero
// chat id disables the corresponding notice.
type ChannelConfig struct {
	AuditChatID      int64
	EscalationChatID int64
}

// SnapshotConfig holds the paths of the flat key-value snapshots
type SnapshotConfig struct {
	OrdersFile       string
	ReplacementsFile string
	LivenessFile     string
	UpdateFlagFile   string
	ProxiesFile      string
}

// SubscriptionConfig holds the order validity rules
type SubscriptionConfig struct {
	ValidityDays       int
	GraceDays          int
	RenewalWarningDays int
}

// RefreshConfig holds the bot-side background timing
type RefreshConfig struct {
	Interval     time.Duration
	LivenessPoll time.Duration
	InputTimeout time.Duration
}

// ProberConfig holds the prober process configuration
type ProberConfig struct {
	Interval   time.Duration
	Timeout    time.Duration
	Target     string
	StatusAddr string
}

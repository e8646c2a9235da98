package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"amx-support-bot/internal/constants"
)

// Load loads the bot configuration from environment variables. The Telegram
// token is the only hard startup requirement.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}

	if cfg.Telegram.Token == "" {
		return nil, errors.New("TG_TOKEN is required")
	}

	return cfg, nil
}

// LoadProber loads the prober configuration. The prober runs without any
// Telegram credentials.
func LoadProber() (*Config, error) {
	return load()
}

func load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	// Set default values
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ORDERS_FILE", constants.DefaultOrdersFile)
	v.SetDefault("REPLACEMENTS_FILE", constants.DefaultReplacementsFile)
	v.SetDefault("LIVENESS_FILE", constants.DefaultLivenessFile)
	v.SetDefault("UPDATE_FLAG_FILE", constants.DefaultUpdateFlagFile)
	v.SetDefault("PROXIES_FILE", constants.DefaultProxiesFile)
	v.SetDefault("VALIDITY_DAYS", constants.DefaultValidityDays)
	v.SetDefault("EXPIRY_GRACE_DAYS", constants.DefaultGraceDays)
	v.SetDefault("RENEWAL_WARNING_DAYS", constants.DefaultRenewalWarningDays)
	v.SetDefault("REFRESH_INTERVAL_SEC", constants.DefaultRefreshIntervalSec)
	v.SetDefault("LIVENESS_POLL_SEC", constants.DefaultLivenessPollSec)
	v.SetDefault("INPUT_TIMEOUT_SEC", constants.DefaultInputTimeoutSec)
	v.SetDefault("PROBE_INTERVAL_SEC", constants.DefaultProbeIntervalSec)
	v.SetDefault("PROBE_TIMEOUT_SEC", constants.DefaultProbeTimeoutSec)
	v.SetDefault("PROBE_TARGET", constants.DefaultProbeTarget)

	// Define environment variables
	v.BindEnv("TG_TOKEN")
	v.BindEnv("TG_ADMIN_IDS")
	v.BindEnv("AUDIT_CHAT_ID")
	v.BindEnv("ESCALATION_CHAT_ID")
	v.BindEnv("PROBER_STATUS_ADDR")

	cfg := &Config{
		LogLevel: v.GetString("LOG_LEVEL"),
		Telegram: TelegramConfig{
			Token:    strings.TrimSpace(v.GetString("TG_TOKEN")),
			AdminIDs: parseAdminIDs(v.GetString("TG_ADMIN_IDS")),
		},
		Channels: ChannelConfig{
			AuditChatID:      v.GetInt64("AUDIT_CHAT_ID"),
			EscalationChatID: v.GetInt64("ESCALATION_CHAT_ID"),
		},
		Snapshots: SnapshotConfig{
			OrdersFile:       v.GetString("ORDERS_FILE"),
			ReplacementsFile: v.GetString("REPLACEMENTS_FILE"),
			LivenessFile:     v.GetString("LIVENESS_FILE"),
			UpdateFlagFile:   v.GetString("UPDATE_FLAG_FILE"),
			ProxiesFile:      v.GetString("PROXIES_FILE"),
		},
		Subscription: SubscriptionConfig{
			ValidityDays:       v.GetInt("VALIDITY_DAYS"),
			GraceDays:          v.GetInt("EXPIRY_GRACE_DAYS"),
			RenewalWarningDays: v.GetInt("RENEWAL_WARNING_DAYS"),
		},
		Refresh: RefreshConfig{
			Interval:     time.Duration(v.GetInt("REFRESH_INTERVAL_SEC")) * time.Second,
			LivenessPoll: time.Duration(v.GetInt("LIVENESS_POLL_SEC")) * time.Second,
			InputTimeout: time.Duration(v.GetInt("INPUT_TIMEOUT_SEC")) * time.Second,
		},
		Prober: ProberConfig{
			Interval:   time.Duration(v.GetInt("PROBE_INTERVAL_SEC")) * time.Second,
			Timeout:    time.Duration(v.GetInt("PROBE_TIMEOUT_SEC")) * time.Second,
			Target:     v.GetString("PROBE_TARGET"),
			StatusAddr: v.GetString("PROBER_STATUS_ADDR"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseAdminIDs parses a comma-separated list of Telegram user ids
func parseAdminIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		var id int64
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d", &id); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Subscription.ValidityDays <= 0 {
		return errors.New("VALIDITY_DAYS must be positive")
	}
	if cfg.Subscription.GraceDays <= 0 {
		return errors.New("EXPIRY_GRACE_DAYS must be positive")
	}
	if cfg.Refresh.Interval <= 0 || cfg.Refresh.LivenessPoll <= 0 || cfg.Refresh.InputTimeout <= 0 {
		return errors.New("refresh intervals must be positive")
	}
	if cfg.Prober.Interval <= 0 || cfg.Prober.Timeout <= 0 {
		return errors.New("probe intervals must be positive")
	}
	if cfg.Prober.Target == "" {
		return errors.New("PROBE_TARGET is required")
	}
	return nil
}

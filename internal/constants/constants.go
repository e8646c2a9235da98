package constants

// Subscription rule defaults. The grace threshold is deliberately
// configurable: observed deployments disagree on 24 vs 25 days.
const (
	DefaultValidityDays       = 30
	DefaultGraceDays          = 25
	DefaultRenewalWarningDays = 5
)

// Background timing defaults, in seconds.
const (
	DefaultRefreshIntervalSec = 300
	DefaultLivenessPollSec    = 5
	DefaultInputTimeoutSec    = 60
	DefaultProbeIntervalSec   = 300
	DefaultProbeTimeoutSec    = 5
)

// DefaultProbeTarget is the well-known host a probe fetches through the
// proxy to prove the tunnel works end to end.
const DefaultProbeTarget = "http://example.com"

// OrderDateLayout is the calendar format order dates are stored in (%d-%m-%Y).
const OrderDateLayout = "02-01-2006"

// Default snapshot file names.
const (
	DefaultOrdersFile       = "orders.json"
	DefaultReplacementsFile = "updated_isp.json"
	DefaultLivenessFile     = "ip_status.json"
	DefaultUpdateFlagFile   = "function.txt"
	DefaultProxiesFile      = "proxies.json"
)

package services

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amx-support-bot/internal/config"
	"amx-support-bot/internal/models"
)

// newTestConfig returns a config whose snapshots live in a fresh temp dir
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	return &config.Config{
		Snapshots: config.SnapshotConfig{
			OrdersFile:       filepath.Join(dir, "orders.json"),
			ReplacementsFile: filepath.Join(dir, "updated_isp.json"),
			LivenessFile:     filepath.Join(dir, "ip_status.json"),
			UpdateFlagFile:   filepath.Join(dir, "function.txt"),
			ProxiesFile:      filepath.Join(dir, "proxies.json"),
		},
		Subscription: config.SubscriptionConfig{
			ValidityDays:       30,
			GraceDays:          25,
			RenewalWarningDays: 5,
		},
		Refresh: config.RefreshConfig{
			Interval:     300 * time.Second,
			LivenessPoll: 5 * time.Second,
			InputTimeout: 60 * time.Second,
		},
		Prober: config.ProberConfig{
			Interval: 300 * time.Second,
			Timeout:  5 * time.Second,
			Target:   "http://example.com",
		},
	}
}

// newTestLogger returns a logger that stays quiet during tests
func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// writeJSON writes a snapshot fixture
func writeJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestLoadMissingSnapshotsDegradesToEmpty(t *testing.T) {
	s := NewRecordService(newTestConfig(t), newTestLogger())

	_, found := s.Order("A100")
	assert.False(t, found)
	assert.Equal(t, 0, s.OrderCount())
	assert.Empty(t, s.LivenessSnapshot())
	assert.False(t, s.UpdateAvailable())
}

func TestLoadCorruptSnapshotDegradesToEmpty(t *testing.T) {
	cfg := newTestConfig(t)
	require.NoError(t, os.WriteFile(cfg.Snapshots.OrdersFile, []byte("{not json"), 0644))

	s := NewRecordService(cfg, newTestLogger())
	assert.Equal(t, 0, s.OrderCount())
}

func TestOrderLookup(t *testing.T) {
	cfg := newTestConfig(t)
	writeJSON(t, cfg.Snapshots.OrdersFile, map[string]models.Order{
		"A100": {Name: "Jordan", Email: "jordan@example.com", OrderDate: "01-01-2024", Package: "1 Month - 100Mbps"},
	})

	s := NewRecordService(cfg, newTestLogger())

	order, found := s.Order("A100")
	require.True(t, found)
	assert.Equal(t, "Jordan", order.Name)
	assert.Equal(t, "01-01-2024", order.OrderDate)

	_, found = s.Order("B200")
	assert.False(t, found)
}

func TestLivenessReloadReplacesWholesale(t *testing.T) {
	cfg := newTestConfig(t)
	writeJSON(t, cfg.Snapshots.LivenessFile, map[string]string{
		"203.0.113.5":  "active",
		"198.51.100.7": "inactive",
	})

	s := NewRecordService(cfg, newTestLogger())

	status, found := s.ProxyStatus("203.0.113.5")
	require.True(t, found)
	assert.Equal(t, models.ProxyActive, status)

	// Rewrite the snapshot without the second proxy; it must not linger.
	writeJSON(t, cfg.Snapshots.LivenessFile, map[string]string{
		"203.0.113.5": "inactive",
	})
	s.ReloadLiveness()

	status, found = s.ProxyStatus("203.0.113.5")
	require.True(t, found)
	assert.Equal(t, models.ProxyInactive, status)

	_, found = s.ProxyStatus("198.51.100.7")
	assert.False(t, found)
}

func TestLivenessAcceptsBooleanEncoding(t *testing.T) {
	cfg := newTestConfig(t)
	writeJSON(t, cfg.Snapshots.LivenessFile, map[string]interface{}{
		"203.0.113.5":  true,
		"198.51.100.7": false,
		"192.0.2.9":    42, // unrecognized, skipped
	})

	s := NewRecordService(cfg, newTestLogger())

	status, found := s.ProxyStatus("203.0.113.5")
	require.True(t, found)
	assert.Equal(t, models.ProxyActive, status)

	status, found = s.ProxyStatus("198.51.100.7")
	require.True(t, found)
	assert.Equal(t, models.ProxyInactive, status)

	_, found = s.ProxyStatus("192.0.2.9")
	assert.False(t, found)
}

func TestCheckLivenessVersionReloadsOnlyOnChange(t *testing.T) {
	cfg := newTestConfig(t)
	writeJSON(t, cfg.Snapshots.LivenessFile, map[string]string{"203.0.113.5": "active"})

	s := NewRecordService(cfg, newTestLogger())

	// Rewrite behind the service's back, as the prober does.
	writeJSON(t, cfg.Snapshots.LivenessFile, map[string]string{"203.0.113.5": "inactive"})
	// Force a visible mtime difference regardless of filesystem resolution.
	past := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(cfg.Snapshots.LivenessFile, past, past))

	s.checkLivenessVersion()

	status, found := s.ProxyStatus("203.0.113.5")
	require.True(t, found)
	assert.Equal(t, models.ProxyInactive, status)
}

func TestReloadRefreshesLivenessVersion(t *testing.T) {
	cfg := newTestConfig(t)
	writeJSON(t, cfg.Snapshots.LivenessFile, map[string]string{"203.0.113.5": "active"})

	s := NewRecordService(cfg, newTestLogger())

	writeJSON(t, cfg.Snapshots.LivenessFile, map[string]string{"203.0.113.5": "inactive"})
	past := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(cfg.Snapshots.LivenessFile, past, past))

	// An on-demand reload must leave the version compare in sync, so the
	// next poll does not re-parse the snapshot it just read.
	s.Reload()
	assert.False(t, s.livenessSeen.changed(currentVersion(cfg.Snapshots.LivenessFile)))

	status, found := s.ProxyStatus("203.0.113.5")
	require.True(t, found)
	assert.Equal(t, models.ProxyInactive, status)
}

func TestSnapshotVersionChanged(t *testing.T) {
	now := time.Now()
	v := snapshotVersion{modTime: now, size: 10}

	assert.False(t, v.changed(snapshotVersion{modTime: now, size: 10}))
	assert.True(t, v.changed(snapshotVersion{modTime: now, size: 11}))
	assert.True(t, v.changed(snapshotVersion{modTime: now.Add(time.Second), size: 10}))
	assert.True(t, v.changed(snapshotVersion{}))
}

func TestUpdateFlag(t *testing.T) {
	cfg := newTestConfig(t)
	s := NewRecordService(cfg, newTestLogger())

	assert.False(t, s.UpdateAvailable())

	require.NoError(t, os.WriteFile(cfg.Snapshots.UpdateFlagFile, []byte(" True \n"), 0644))
	assert.True(t, s.UpdateAvailable())

	require.NoError(t, s.SetUpdateAvailable(false))
	assert.False(t, s.UpdateAvailable())

	require.NoError(t, s.SetUpdateAvailable(true))
	assert.True(t, s.UpdateAvailable())
}

func TestReplacementLookup(t *testing.T) {
	cfg := newTestConfig(t)
	writeJSON(t, cfg.Snapshots.ReplacementsFile, map[string]models.Endpoint{
		"1 Month - 100Mbps": {IP: "203.0.113.80", User: "amx01", Port: "1088", Password: "secret"},
	})

	s := NewRecordService(cfg, newTestLogger())

	endpoint, found := s.Replacement("1 Month - 100Mbps")
	require.True(t, found)
	assert.Equal(t, "203.0.113.80", endpoint.IP)
	assert.Equal(t, "1088", endpoint.Port.String())

	_, found = s.Replacement("3 Month - 50Mbps")
	assert.False(t, found)
}

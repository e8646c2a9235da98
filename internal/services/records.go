package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"amx-support-bot/internal/apperrors"
	"amx-support-bot/internal/config"
	"amx-support-bot/internal/models"
)

// RecordService owns the in-memory copies of the flat key-value snapshots:
// orders, the replacement directory, and the proxy liveness map. Every load
// fails soft (missing or corrupt file degrades to an empty dataset) and
// every reload swaps the whole map reference, so a concurrent reader sees
// either the old or the new snapshot, never a partial one.
type RecordService struct {
	cfg    *config.Config
	logger *logrus.Logger

	mu           sync.RWMutex
	orders       map[string]models.Order
	replacements map[string]models.Endpoint
	liveness     map[string]models.ProxyStatus

	livenessSeen snapshotVersion
}

// NewRecordService creates a record service and performs the initial loads
func NewRecordService(cfg *config.Config, logger *logrus.Logger) *RecordService {
	s := &RecordService{
		cfg:          cfg,
		logger:       logger,
		orders:       make(map[string]models.Order),
		replacements: make(map[string]models.Endpoint),
		liveness:     make(map[string]models.ProxyStatus),
	}

	s.Reload()

	return s
}

// Reload re-reads all three snapshots
func (s *RecordService) Reload() {
	s.ReloadOrders()
	s.ReloadReplacements()
	s.ReloadLiveness()
}

// ReloadOrders replaces the order set from the orders snapshot
func (s *RecordService) ReloadOrders() {
	loaded := make(map[string]models.Order)
	if err := readSnapshot(s.cfg.Snapshots.OrdersFile, &loaded); err != nil {
		s.logger.Warnf("Orders snapshot unavailable, using empty set: %v", err)
		loaded = make(map[string]models.Order)
	}

	s.mu.Lock()
	s.orders = loaded
	s.mu.Unlock()

	s.logger.Debugf("Loaded %d orders", len(loaded))
}

// ReloadReplacements replaces the replacement directory from its snapshot
func (s *RecordService) ReloadReplacements() {
	loaded := make(map[string]models.Endpoint)
	if err := readSnapshot(s.cfg.Snapshots.ReplacementsFile, &loaded); err != nil {
		s.logger.Warnf("Replacement directory unavailable, using empty set: %v", err)
		loaded = make(map[string]models.Endpoint)
	}

	s.mu.Lock()
	s.replacements = loaded
	s.mu.Unlock()

	s.logger.Debugf("Loaded %d replacement entries", len(loaded))
}

// ReloadLiveness replaces the liveness map from its snapshot. The map is
// always replaced in full: a proxy absent from the new snapshot does not
// linger with its last status. Every reload also records the snapshot
// version it read, so the background poll never re-parses a file an
// on-demand reload already picked up. The version is taken before the read:
// a write landing in between only costs one redundant reload on the next
// poll, never a missed one.
func (s *RecordService) ReloadLiveness() {
	seen := currentVersion(s.cfg.Snapshots.LivenessFile)

	raw := make(map[string]json.RawMessage)
	if err := readSnapshot(s.cfg.Snapshots.LivenessFile, &raw); err != nil {
		s.logger.Warnf("Liveness snapshot unavailable, using empty set: %v", err)
		raw = make(map[string]json.RawMessage)
	}

	loaded := make(map[string]models.ProxyStatus, len(raw))
	for addr, value := range raw {
		status, err := coerceStatus(value)
		if err != nil {
			s.logger.Warnf("Skipping liveness entry %s: %v", addr, err)
			continue
		}
		loaded[addr] = status
	}

	s.mu.Lock()
	s.liveness = loaded
	s.livenessSeen = seen
	s.mu.Unlock()

	s.logger.Debugf("Loaded %d liveness entries", len(loaded))
}

// Order looks up an order by id
func (s *RecordService) Order(id string) (models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	return order, ok
}

// OrderCount returns the number of loaded orders
func (s *RecordService) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.orders)
}

// Replacement looks up a replacement endpoint by package name
func (s *RecordService) Replacement(pkg string) (models.Endpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	endpoint, ok := s.replacements[pkg]
	return endpoint, ok
}

// ProxyStatus looks up the liveness of a proxy address
func (s *RecordService) ProxyStatus(addr string) (models.ProxyStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.liveness[addr]
	return status, ok
}

// LivenessSnapshot returns a copy of the current liveness map
func (s *RecordService) LivenessSnapshot() map[string]models.ProxyStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]models.ProxyStatus, len(s.liveness))
	for addr, status := range s.liveness {
		snapshot[addr] = status
	}
	return snapshot
}

// UpdateAvailable reads the update flag file on demand. A missing file
// means no update.
func (s *RecordService) UpdateAvailable() bool {
	data, err := os.ReadFile(s.cfg.Snapshots.UpdateFlagFile)
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(string(data)), "true")
}

// SetUpdateAvailable writes the update flag file
func (s *RecordService) SetUpdateAvailable(available bool) error {
	value := "false"
	if available {
		value = "true"
	}
	return os.WriteFile(s.cfg.Snapshots.UpdateFlagFile, []byte(value), 0644)
}

// StartRefresh starts the periodic reload of orders and the replacement
// directory until the context is cancelled.
func (s *RecordService) StartRefresh(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.Refresh.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.ReloadOrders()
				s.ReloadReplacements()
			}
		}
	}()
}

// StartLivenessWatch polls the liveness snapshot's version on a short
// interval and reloads only when it changed, so out-of-band updates from
// the prober are picked up without redundant parsing.
func (s *RecordService) StartLivenessWatch(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.Refresh.LivenessPoll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.checkLivenessVersion()
			}
		}
	}()
}

// checkLivenessVersion reloads the liveness map iff the snapshot file's
// version differs from the last one seen.
func (s *RecordService) checkLivenessVersion() {
	current := currentVersion(s.cfg.Snapshots.LivenessFile)

	s.mu.RLock()
	seen := s.livenessSeen
	s.mu.RUnlock()

	if !seen.changed(current) {
		return
	}

	s.ReloadLiveness()
}

// snapshotVersion identifies one on-disk revision of a snapshot file. A
// missing file has the zero version.
type snapshotVersion struct {
	modTime time.Time
	size    int64
}

// changed reports whether other is a different revision
func (v snapshotVersion) changed(other snapshotVersion) bool {
	return !v.modTime.Equal(other.modTime) || v.size != other.size
}

// currentVersion stats path; a missing file yields the zero version
func currentVersion(path string) snapshotVersion {
	info, err := os.Stat(path)
	if err != nil {
		return snapshotVersion{}
	}
	return snapshotVersion{modTime: info.ModTime(), size: info.Size()}
}

// readSnapshot reads and unmarshals one whole snapshot file
func readSnapshot(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &apperrors.SnapshotError{Path: path, Err: err}
	}

	if err := json.Unmarshal(data, target); err != nil {
		return &apperrors.SnapshotError{Path: path, Err: err}
	}

	return nil
}

// coerceStatus accepts both observed liveness value encodings: the string
// form ("active"/"inactive") and the boolean form written by older probers.
func coerceStatus(raw json.RawMessage) (models.ProxyStatus, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return models.ProxyActive, nil
		}
		return models.ProxyInactive, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "active":
			return models.ProxyActive, nil
		case "inactive":
			return models.ProxyInactive, nil
		}
	}

	return models.ProxyInactive, fmt.Errorf("unrecognized status value: %s", raw)
}

package prober

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"

	"amx-support-bot/internal/apperrors"
	"amx-support-bot/internal/config"
	"amx-support-bot/internal/models"
)

// Prober periodically probes every registered proxy with an authenticated
// SOCKS5 round-trip and rewrites the liveness snapshot. It runs as its own
// process and shares nothing with the bot except that snapshot file.
type Prober struct {
	cfg    *config.Config
	logger *logrus.Logger

	// probeFn is swapped out in tests
	probeFn func(entry models.ProxyEntry) error

	mu        sync.RWMutex
	lastSweep map[string]models.ProxyStatus
	sweptAt   time.Time
}

// New creates a new prober
func New(cfg *config.Config, logger *logrus.Logger) *Prober {
	p := &Prober{
		cfg:       cfg,
		logger:    logger,
		lastSweep: make(map[string]models.ProxyStatus),
	}

	p.probeFn = p.probeSOCKS5
	return p
}

// Run sweeps until the context is cancelled. The next sweep starts a fixed
// interval after the previous sweep's completion, so a slow network
// stretches the cadence rather than stacking sweeps.
func (p *Prober) Run(ctx context.Context) error {
	for {
		p.Sweep()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.Prober.Interval):
		}
	}
}

// Sweep probes every registry entry once and atomically rewrites the
// liveness snapshot in full, so a proxy removed from the registry cannot
// linger with a stale status.
func (p *Prober) Sweep() {
	registry := p.LoadRegistry()
	statuses := make(map[string]models.ProxyStatus, len(registry))

	for _, entry := range registry {
		if err := p.probeFn(entry); err != nil {
			probeErr := &apperrors.ProbeError{Address: entry.Address, Err: err}
			p.logger.Warnf("%v", probeErr)
			statuses[entry.Address] = models.ProxyInactive
			continue
		}

		p.logger.Debugf("Proxy %s is active", entry.Address)
		statuses[entry.Address] = models.ProxyActive
	}

	if err := p.writeSnapshot(statuses); err != nil {
		p.logger.Errorf("Failed to write liveness snapshot: %v", err)
	}

	p.mu.Lock()
	p.lastSweep = statuses
	p.sweptAt = time.Now()
	p.mu.Unlock()

	p.logger.Infof("Swept %d proxies", len(registry))
}

// LoadRegistry reads the proxy registry snapshot; missing or corrupt files
// degrade to an empty registry.
func (p *Prober) LoadRegistry() []models.ProxyEntry {
	data, err := os.ReadFile(p.cfg.Snapshots.ProxiesFile)
	if err != nil {
		p.logger.Warnf("Proxy registry unavailable: %v", &apperrors.SnapshotError{Path: p.cfg.Snapshots.ProxiesFile, Err: err})
		return nil
	}

	var registry []models.ProxyEntry
	if err := json.Unmarshal(data, &registry); err != nil {
		p.logger.Warnf("Proxy registry unreadable: %v", &apperrors.SnapshotError{Path: p.cfg.Snapshots.ProxiesFile, Err: err})
		return nil
	}

	return registry
}

// LastSweep returns a copy of the most recent sweep's results
func (p *Prober) LastSweep() (map[string]models.ProxyStatus, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	statuses := make(map[string]models.ProxyStatus, len(p.lastSweep))
	for addr, status := range p.lastSweep {
		statuses[addr] = status
	}
	return statuses, p.sweptAt
}

// probeSOCKS5 makes one authenticated round-trip through the proxy to the
// configured target. Any failure, whether auth rejection, refusal, DNS or
// timeout, classifies the proxy inactive; the reason is only logged.
func (p *Prober) probeSOCKS5(entry models.ProxyEntry) error {
	auth := &proxy.Auth{
		User:     entry.Username,
		Password: entry.Password,
	}

	dialer, err := proxy.SOCKS5("tcp",
		net.JoinHostPort(entry.Address, strconv.Itoa(entry.Port)),
		auth,
		&net.Dialer{Timeout: p.cfg.Prober.Timeout})
	if err != nil {
		return err
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
				return contextDialer.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
		DisableKeepAlives: true,
	}

	client := resty.New().
		SetTransport(transport).
		SetTimeout(p.cfg.Prober.Timeout)

	// Any HTTP response proves the tunnel end to end; the status code does
	// not matter.
	_, err = client.R().Get(p.cfg.Prober.Target)
	return err
}

// writeSnapshot rewrites the liveness snapshot via a temp file and rename,
// so a concurrent reader sees either the old or the new file in full.
func (p *Prober) writeSnapshot(statuses map[string]models.ProxyStatus) error {
	data, err := json.MarshalIndent(statuses, "", "  ")
	if err != nil {
		return err
	}

	tmpFile := p.cfg.Snapshots.LivenessFile + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpFile, p.cfg.Snapshots.LivenessFile)
}

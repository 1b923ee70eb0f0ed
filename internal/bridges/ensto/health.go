package ensto

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/ensto-bridge/internal/infrastructure/mqtt"
)

// HealthStatus is the bridge's reported health state.
type HealthStatus string

// Health states published to the health topic.
const (
	HealthStarting HealthStatus = "starting"
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStopping HealthStatus = "stopping"
)

// defaultHealthInterval spaces periodic health publishes.
const defaultHealthInterval = 60 * time.Second

// CycleStats exposes poll loop counters to the health reporter.
// Implemented by *Scheduler.
type CycleStats interface {
	Stats() (cycles uint64, lastCycle time.Time, lastErrors int)
	DeviceCount() int
}

// HealthMessage is the JSON payload published to the health topic.
type HealthMessage struct {
	Status        HealthStatus `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Devices       int          `json:"devices"`
	Cycles        uint64       `json:"cycles"`
	LastCycle     string       `json:"last_cycle,omitempty"`
	LastFailures  int          `json:"last_cycle_failures"`
	Reason        string       `json:"reason,omitempty"`
	Timestamp     string       `json:"timestamp"`
}

// HealthReporter publishes periodic bridge health to MQTT. The payload is
// retained so dashboards see the last known state immediately after
// subscribing.
type HealthReporter struct {
	version   string
	startTime time.Time
	interval  time.Duration
	publisher Publisher
	stats     CycleStats
	topics    mqtt.Topics

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// Version is the bridge software version.
	Version string

	// Interval is how often to publish health status. Default: 60 seconds.
	Interval time.Duration

	// Publisher is the MQTT client for publishing messages.
	Publisher Publisher

	// Stats provides poll loop counters. Optional.
	Stats CycleStats
}

// NewHealthReporter creates a health reporter.
//
// Parameters:
//   - cfg: Configuration for the health reporter
//
// Returns:
//   - *HealthReporter: Ready to start (call Start to begin reporting)
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultHealthInterval
	}

	return &HealthReporter{
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		publisher: cfg.Publisher,
		stats:     cfg.Stats,
		done:      make(chan struct{}),
	}
}

// Start begins periodic health reporting. Call Stop to shut down.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop stops health reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		// Best-effort during shutdown, nothing to do if it fails
		//nolint:errcheck
		h.publishStatus(HealthStopping, "bridge shutting down")
	})
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// PublishStarting publishes a "starting" status. Call once before the
// first poll cycle so subscribers see the bridge come up.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "bridge starting")
}

// PublishNow publishes the current health status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

// reportLoop runs the periodic health reporting.
func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logError("failed to publish initial health", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

// determineStatus evaluates the current bridge status.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}

	if h.stats != nil {
		_, _, lastErrors := h.stats.Stats()
		if lastErrors > 0 && lastErrors == h.stats.DeviceCount() {
			return HealthDegraded, "all devices failed last cycle"
		}
	}

	return HealthHealthy, ""
}

// publishStatus publishes a health status message (QoS 1, retained).
func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	msg := HealthMessage{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Reason:        reason,
	}

	if h.stats != nil {
		cycles, lastCycle, lastErrors := h.stats.Stats()
		msg.Devices = h.stats.DeviceCount()
		msg.Cycles = cycles
		msg.LastFailures = lastErrors
		if !lastCycle.IsZero() {
			msg.LastCycle = lastCycle.UTC().Format(time.RFC3339)
		}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return h.publisher.Publish(h.topics.Health(), payload, 1, true)
}

// logError logs an error if logger is set.
func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

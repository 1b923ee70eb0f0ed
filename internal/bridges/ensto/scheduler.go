package ensto

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/ensto-bridge/internal/infrastructure/mqtt"
)

// Publisher is the scheduler's view of the MQTT client.
type Publisher interface {
	// Publish sends a message to a topic with the specified QoS and retention.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if the publisher is connected.
	IsConnected() bool
}

// Recorder persists successful readings for history queries.
// Implemented by *History.
type Recorder interface {
	Record(address string, r Reading) error
}

// MetricsWriter forwards readings and cycle statistics to a time-series
// backend. Implemented by the InfluxDB client.
type MetricsWriter interface {
	WriteReading(address string, target, room, floor float64, relayActive bool)
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{})
}

// DeviceAnnouncer publishes Home Assistant discovery configs for a device.
// Implemented by *Announcer.
type DeviceAnnouncer interface {
	PublishDevice(address, name string) error
}

// SchedulerConfig holds configuration for the poll scheduler.
type SchedulerConfig struct {
	// Devices is the configured device set. Fixed for the scheduler's
	// lifetime.
	Devices []Device

	// PollInterval is the target interval between cycle starts.
	// Default: 120 seconds.
	PollInterval time.Duration

	// QoS for telemetry publishes. Default 0: a stale reading is
	// replaced in two minutes anyway.
	QoS byte
}

// defaultPollInterval spaces poll cycles. BLE connect plus settle plus
// handshake takes tens of seconds per device, so cycles are deliberately
// coarse.
const defaultPollInterval = 120 * time.Second

// Scheduler drives the poll loop: one session per configured device,
// strictly sequential, then sleep until the next cycle.
//
// A failure on one device never prevents the remaining devices in the
// cycle from being polled, and never stops the loop. The only exit is
// context cancellation.
type Scheduler struct {
	session  *Session
	devices  []Device
	interval time.Duration
	qos      byte

	publisher Publisher
	recorder  Recorder
	metrics   MetricsWriter
	announcer DeviceAnnouncer

	topics mqtt.Topics

	// Addresses already announced via discovery this process.
	// Touched only from the poll goroutine.
	announced map[string]bool

	// Cycle statistics (read by the health reporter)
	statsMu    sync.RWMutex
	cycles     uint64
	lastCycle  time.Time
	lastErrors int

	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// SchedulerOptions holds dependencies for creating a Scheduler.
type SchedulerOptions struct {
	// Session runs individual device polls. Required.
	Session *Session

	// Publisher receives telemetry payloads. Required.
	Publisher Publisher

	// Recorder is the optional reading history store.
	Recorder Recorder

	// Metrics is the optional time-series writer.
	Metrics MetricsWriter

	// Announcer is the optional Home Assistant discovery publisher.
	// Each device is announced once, after its first successful poll,
	// keyed by the resolved address.
	Announcer DeviceAnnouncer

	// Config is the device set and timing.
	Config SchedulerConfig
}

// NewScheduler creates a poll scheduler.
//
// Parameters:
//   - opts: Dependencies and configuration
//
// Returns:
//   - *Scheduler: Ready to start (call Start to begin polling)
//   - error: If a required dependency is missing
func NewScheduler(opts SchedulerOptions) (*Scheduler, error) {
	if opts.Session == nil {
		return nil, errSchedulerNoSession
	}
	if opts.Publisher == nil {
		return nil, errSchedulerNoPublisher
	}

	interval := opts.Config.PollInterval
	if interval == 0 {
		interval = defaultPollInterval
	}

	return &Scheduler{
		session:   opts.Session,
		devices:   opts.Config.Devices,
		interval:  interval,
		qos:       opts.Config.QoS,
		publisher: opts.Publisher,
		recorder:  opts.Recorder,
		metrics:   opts.Metrics,
		announcer: opts.Announcer,
		announced: make(map[string]bool),
		done:      make(chan struct{}),
	}, nil
}

// Start begins the poll loop. The first cycle runs immediately.
// Call Stop to shut down.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.pollLoop(ctx)
}

// Stop stops the poll loop and waits for any in-flight cycle to finish.
// Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}

// SetLogger sets the logger for this scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

// Stats returns cycle counters for health reporting: completed cycles,
// the start time of the most recent cycle, and how many devices failed
// during it.
func (s *Scheduler) Stats() (cycles uint64, lastCycle time.Time, lastErrors int) {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.cycles, s.lastCycle, s.lastErrors
}

// DeviceCount returns the number of configured devices.
func (s *Scheduler) DeviceCount() int {
	return len(s.devices)
}

// pollLoop runs cycles until the context is cancelled or Stop is called.
// The first cycle runs immediately; after that, the full interval of idle
// time follows each completed cycle, however long the cycle itself ran. A
// slow cycle delays the next one rather than overlapping it.
func (s *Scheduler) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		s.runCycle(ctx)

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.done:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runCycle polls every configured device once, sequentially. One shared
// radio cannot hold overlapping central connections reliably, so there is
// no per-device concurrency.
func (s *Scheduler) runCycle(ctx context.Context) {
	start := time.Now()
	failures := 0

	for _, dev := range s.devices {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		if err := s.pollDevice(ctx, dev); err != nil {
			failures++
			// Device failures are expected operation: out of range,
			// battery dead, not in pairing mode. Log and move on.
			s.logWarn("device poll failed", "device", dev.Identifier(), "error", err)
		}
	}

	s.statsMu.Lock()
	s.cycles++
	s.lastCycle = start
	s.lastErrors = failures
	s.statsMu.Unlock()

	if s.metrics != nil {
		s.metrics.WritePoint("poll_cycle", nil, map[string]interface{}{
			"devices":     len(s.devices),
			"failures":    failures,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}

	s.logInfo("poll cycle complete",
		"devices", len(s.devices),
		"failures", failures,
		"duration", time.Since(start).Round(time.Millisecond).String())
}

// pollDevice runs one session and distributes the reading to the
// publisher, history store, and metrics writer. Everything downstream is
// keyed by the resolved hardware address, never the configured name.
func (s *Scheduler) pollDevice(ctx context.Context, dev Device) error {
	res, err := s.session.Run(ctx, dev)
	if err != nil {
		return err
	}

	address := res.Address
	reading := res.Reading

	if s.announcer != nil && !s.announced[address] {
		if aerr := s.announcer.PublishDevice(address, dev.Name); aerr != nil {
			// Not marked announced; retried next cycle.
			s.logWarn("discovery announce failed", "device", address, "error", aerr)
		} else {
			s.announced[address] = true
		}
	}

	payload, err := json.Marshal(reading)
	if err != nil {
		return err
	}
	if perr := s.publisher.Publish(s.topics.State(address), payload, s.qos, false); perr != nil {
		s.logWarn("telemetry publish failed", "device", address, "error", perr)
	}

	if s.recorder != nil {
		if rerr := s.recorder.Record(address, reading); rerr != nil {
			s.logWarn("history record failed", "device", address, "error", rerr)
		}
	}

	if s.metrics != nil {
		s.metrics.WriteReading(address,
			reading.TargetTemperature,
			reading.RoomTemperature,
			reading.FloorTemperature,
			reading.RelayActive)
	}

	return nil
}

func (s *Scheduler) logInfo(msg string, args ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()
	if logger != nil {
		logger.Info(msg, args...)
	}
}

func (s *Scheduler) logWarn(msg string, args ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

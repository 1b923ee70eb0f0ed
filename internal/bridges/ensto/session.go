package ensto

import (
	"context"
	"fmt"
	"time"
)

// State identifies where in its lifecycle a device session is.
// Used for logging and failure reporting.
type State int

// Session lifecycle states.
const (
	StateIdle State = iota
	StateDiscovering
	StateConnected
	StateAuthenticating
	StateReading
	StateDone
	StateFailed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateReading:
		return "reading"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Device identifies one configured thermostat for a session.
type Device struct {
	// Name is the advertised name, used for scan matching when no
	// address is configured.
	Name string

	// Address is the hardware address, preferred for scan matching.
	Address string

	// Layout selects the telemetry frame encoding.
	Layout Layout
}

// Identifier returns the scan-matching value: the address when configured,
// otherwise the name.
func (d Device) Identifier() string {
	if d.Address != "" {
		return d.Address
	}
	return d.Name
}

// CredentialStore is the session's view of credential persistence.
// Implemented by *credential.Store.
type CredentialStore interface {
	// Get returns the stored credential for an address, if any.
	Get(address string) ([]byte, bool)

	// Put persists a freshly read credential.
	Put(address string, cred []byte) error
}

// Logger is the interface for optional structured logging.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SessionConfig holds the timing and retry policy for device sessions.
type SessionConfig struct {
	// DiscoverTimeout bounds the scan for one device. Default 10s.
	DiscoverTimeout time.Duration

	// ConnectTimeout bounds connection establishment. Default 20s.
	ConnectTimeout time.Duration

	// SettleDelay is the mandatory wait between connecting and the first
	// characteristic operation. The transport reports "connected" before
	// the GATT table is resolved; operations issued earlier fail or
	// return garbage. Default 5s.
	SettleDelay time.Duration

	// HandshakeRetries is the attempt budget for the unauthenticated
	// factory-id read. Default 3.
	HandshakeRetries int

	// HandshakeBackoff is the delay between handshake attempts. Default 2s.
	HandshakeBackoff time.Duration
}

// Session default timings.
const (
	defaultDiscoverTimeout  = 10 * time.Second
	defaultConnectTimeout   = 20 * time.Second
	defaultSettleDelay      = 5 * time.Second
	defaultHandshakeRetries = 3
	defaultHandshakeBackoff = 2 * time.Second
)

// applyDefaults fills zero fields with the package defaults.
func (c SessionConfig) applyDefaults() SessionConfig {
	if c.DiscoverTimeout == 0 {
		c.DiscoverTimeout = defaultDiscoverTimeout
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = defaultSettleDelay
	}
	if c.HandshakeRetries == 0 {
		c.HandshakeRetries = defaultHandshakeRetries
	}
	if c.HandshakeBackoff == 0 {
		c.HandshakeBackoff = defaultHandshakeBackoff
	}
	return c
}

// Result is the outcome of a successful session: the decoded reading and
// the hardware address it came from. Topics, history, and metrics key on
// the address even when the device was configured by name only; the name
// is just a scan matcher.
type Result struct {
	Address string
	Reading Reading
}

// Session owns the lifecycle of one BLE connection per poll:
// discovery, connect, handshake, telemetry read, teardown.
//
// A Session is reusable across devices and cycles; per-run state lives on
// the stack. The scheduler runs sessions strictly sequentially, one radio,
// one connection at a time.
type Session struct {
	transport Transport
	creds     CredentialStore
	cfg       SessionConfig
	logger    Logger
}

// SessionOptions holds dependencies for creating a Session.
type SessionOptions struct {
	// Transport resolves identities to peripherals. Required.
	Transport Transport

	// Credentials is the durable credential store. Required.
	Credentials CredentialStore

	// Config is the timing/retry policy. Zero fields get defaults.
	Config SessionConfig

	// Logger is optional.
	Logger Logger
}

// NewSession creates a session runner.
//
// Returns:
//   - *Session: Ready for Run calls
//   - error: If a required dependency is missing
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if opts.Credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	return &Session{
		transport: opts.Transport,
		creds:     opts.Credentials,
		cfg:       opts.Config.applyDefaults(),
		logger:    opts.Logger,
	}, nil
}

// Run performs one complete session against one device.
//
// The state machine is Idle → Discovering → Connected → Authenticating →
// Reading → Done, with Failed reachable from any state. The transport
// connection is released on every exit path.
//
// Parameters:
//   - ctx: Cancels the session between suspension points
//   - dev: The device to poll
//
// Returns:
//   - Result: Decoded telemetry and the resolved address (zero on failure)
//   - error: One of the package sentinel errors, wrapped with detail
func (s *Session) Run(ctx context.Context, dev Device) (Result, error) {
	// Discovering
	s.logDebug("scanning", "device", dev.Identifier(), "state", StateDiscovering)
	p, err := s.transport.Find(ctx, dev.Identifier(), s.cfg.DiscoverTimeout)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %q: %w", ErrNotFound, dev.Identifier(), err)
	}
	s.logInfo("device found", "name", p.Name(), "address", p.Address())

	// The connection is released no matter which state the session
	// fails in.
	defer func() {
		if err := p.Disconnect(); err != nil {
			s.logWarn("disconnect failed", "address", p.Address(), "error", err)
		}
	}()

	// Connected
	if err := p.Connect(ctx, s.cfg.ConnectTimeout); err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrConnectFailed, p.Address(), err)
	}
	if !p.Connected() {
		return Result{}, fmt.Errorf("%w: %s: transport reports not connected", ErrConnectFailed, p.Address())
	}
	s.logDebug("connected, waiting for services", "address", p.Address(), "state", StateConnected)

	// The settle delay is not optional: operations issued before the
	// peripheral's GATT table is resolved fail or return stale data.
	if err := sleepCtx(ctx, s.cfg.SettleDelay); err != nil {
		return Result{}, err
	}

	// Authenticating
	s.logDebug("starting handshake", "address", p.Address(), "state", StateAuthenticating)
	cred, err := s.authenticate(ctx, p)
	if err != nil {
		return Result{}, err
	}

	if err := p.WriteCharacteristic(FactoryResetIDUUID, cred); err != nil {
		// Never retried with the same credential: a rejected write means
		// the device no longer recognises it, and the next attempt would
		// be rejected too. The credential stays cached; see package doc.
		return Result{}, fmt.Errorf("%w: %s: %w", ErrHandshakeRejected, p.Address(), err)
	}
	s.logInfo("handshake complete", "address", p.Address())

	// Reading
	s.logDebug("reading telemetry", "address", p.Address(), "state", StateReading)
	data, err := p.ReadCharacteristic(RealTimeIndicationUUID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrTelemetryReadFailed, p.Address(), err)
	}

	reading, ok := DecodeFrame(dev.Layout, data)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s: frame too short (%d bytes)", ErrTelemetryReadFailed, p.Address(), len(data))
	}

	s.logDebug("session complete", "address", p.Address(), "state", StateDone)
	return Result{Address: p.Address(), Reading: reading}, nil
}

// authenticate obtains the credential for a peripheral: from the store when
// cached, otherwise by reading the factory reset ID characteristic while the
// device is in pairing mode.
//
// The store lookup always precedes any device read. A freshly read
// credential is persisted immediately, before the write-back, so it is not
// lost if the write fails.
func (s *Session) authenticate(ctx context.Context, p Peripheral) ([]byte, error) {
	if cred, ok := s.creds.Get(p.Address()); ok {
		s.logDebug("using stored credential", "address", p.Address())
		return cred, nil
	}

	s.logInfo("no stored credential, reading from device (requires pairing mode)", "address", p.Address())

	var lastErr error
	for attempt := 1; attempt <= s.cfg.HandshakeRetries; attempt++ {
		cred, err := p.ReadCharacteristic(FactoryResetIDUUID)
		if err != nil {
			// Transient link errors get a bounded retry; the radio is
			// flaky right after connect even past the settle delay.
			lastErr = err
			s.logWarn("factory id read failed", "address", p.Address(), "attempt", attempt, "error", err)
			if attempt < s.cfg.HandshakeRetries {
				if serr := sleepCtx(ctx, s.cfg.HandshakeBackoff); serr != nil {
					return nil, serr
				}
			}
			continue
		}

		if isAllZero(cred) {
			// Zeros are the device's way of saying "not in pairing
			// mode", not a credential. Never persisted, never retried.
			return nil, fmt.Errorf("%w: %s", ErrNotInPairingMode, p.Address())
		}

		if perr := s.creds.Put(p.Address(), cred); perr != nil {
			// The session can still complete with the in-memory copy;
			// the next restart will just need pairing mode again.
			s.logError("failed to persist credential", "address", p.Address(), "error", perr)
		} else {
			s.logInfo("credential persisted", "address", p.Address(), "bytes", len(cred))
		}
		return cred, nil
	}

	return nil, fmt.Errorf("ensto: reading factory reset id from %s: %w", p.Address(), lastErr)
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isAllZero reports whether every byte in b is zero. An empty buffer counts
// as zero: no bytes, no credential.
func isAllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func (s *Session) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Session) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Session) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Session) logError(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}

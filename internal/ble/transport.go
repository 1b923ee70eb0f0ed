package ble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/nerrad567/ensto-bridge/internal/bridges/ensto"
)

// Transport implements scanning and connection on the host Bluetooth
// adapter. One Transport serves all devices; the underlying radio cannot
// scan and hold connections independently, so callers serialise sessions.
type Transport struct {
	adapter *bluetooth.Adapter

	enableOnce sync.Once
	enableErr  error

	logger   ensto.Logger
	loggerMu sync.RWMutex
}

// New creates a transport on the default host adapter. The adapter is
// enabled lazily on the first scan, so construction never touches the
// radio.
func New() *Transport {
	return &Transport{adapter: bluetooth.DefaultAdapter}
}

// SetLogger sets the logger for this transport.
func (t *Transport) SetLogger(logger ensto.Logger) {
	t.loggerMu.Lock()
	t.logger = logger
	t.loggerMu.Unlock()
}

// ensureEnabled powers the adapter on once. On Linux this needs BlueZ and
// sufficient privileges (root or CAP_NET_ADMIN).
func (t *Transport) ensureEnabled() error {
	t.enableOnce.Do(func() {
		t.enableErr = t.adapter.Enable()
	})
	if t.enableErr != nil {
		return fmt.Errorf("enabling bluetooth adapter: %w", t.enableErr)
	}
	return nil
}

// Find scans until an advertisement matches the identifier or the timeout
// expires. The identifier is compared case-insensitively against the
// hardware address and exactly against the advertised local name.
//
// Parameters:
//   - ctx: Aborts the scan early
//   - identifier: Address ("AA:BB:...") or advertised name ("ECO16BT;...")
//   - timeout: Scan budget
//
// Returns:
//   - ensto.Peripheral: The matched device, not yet connected
//   - error: Scan failure or no match within the timeout
func (t *Transport) Find(ctx context.Context, identifier string, timeout time.Duration) (ensto.Peripheral, error) {
	if err := t.ensureEnabled(); err != nil {
		return nil, err
	}

	found := make(chan bluetooth.ScanResult, 1)
	scanErr := make(chan error, 1)

	go func() {
		err := t.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !matches(identifier, result) {
				return
			}
			adapter.StopScan()
			select {
			case found <- result:
			default:
			}
		})
		if err != nil {
			scanErr <- err
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-found:
		t.logDebug("advertisement matched", "identifier", identifier,
			"address", result.Address.String(), "rssi", result.RSSI)
		return &peripheral{
			adapter: t.adapter,
			addr:    result.Address,
			name:    result.LocalName(),
		}, nil
	case err := <-scanErr:
		return nil, fmt.Errorf("scan failed: %w", err)
	case <-timer.C:
		t.adapter.StopScan()
		return nil, fmt.Errorf("no advertisement from %q within %s", identifier, timeout)
	case <-ctx.Done():
		t.adapter.StopScan()
		return nil, ctx.Err()
	}
}

// matches reports whether a scan result corresponds to the identifier.
func matches(identifier string, result bluetooth.ScanResult) bool {
	if strings.EqualFold(identifier, result.Address.String()) {
		return true
	}
	name := result.LocalName()
	return name != "" && name == identifier
}

func (t *Transport) logDebug(msg string, args ...any) {
	t.loggerMu.RLock()
	logger := t.logger
	t.loggerMu.RUnlock()
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

// readBufferSize bounds characteristic reads. Ensto telemetry frames are
// well under this.
const readBufferSize = 64

// peripheral is one matched device. GATT discovery happens lazily on the
// first characteristic operation, after the caller's settle delay.
type peripheral struct {
	adapter *bluetooth.Adapter
	addr    bluetooth.Address
	name    string

	mu        sync.Mutex
	device    bluetooth.Device
	connected bool
	chars     map[string]bluetooth.DeviceCharacteristic
}

func (p *peripheral) Address() string { return p.addr.String() }
func (p *peripheral) Name() string    { return p.name }

// Connect establishes the BLE connection.
func (p *peripheral) Connect(ctx context.Context, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.connected {
		return nil
	}

	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	done := make(chan connectResult, 1)
	go func() {
		device, err := p.adapter.Connect(p.addr, bluetooth.ConnectionParams{
			ConnectionTimeout: bluetooth.NewDuration(timeout),
		})
		done <- connectResult{device, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return res.err
		}
		p.device = res.device
		p.connected = true
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connected reports whether the connection is established.
func (p *peripheral) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// ReadCharacteristic reads the value of a characteristic by UUID.
func (p *peripheral) ReadCharacteristic(uuid string) ([]byte, error) {
	c, err := p.characteristic(uuid)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, readBufferSize)
	n, err := c.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", uuid, err)
	}
	return buf[:n], nil
}

// WriteCharacteristic writes a value to a characteristic by UUID,
// with response.
func (p *peripheral) WriteCharacteristic(uuid string, data []byte) error {
	c, err := p.characteristic(uuid)
	if err != nil {
		return err
	}

	if _, err := c.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", uuid, err)
	}
	return nil
}

// Disconnect tears down the connection. Safe to call when not connected.
func (p *peripheral) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected {
		return nil
	}
	p.connected = false
	p.chars = nil
	return p.device.Disconnect()
}

// characteristic returns the handle for a UUID, running GATT discovery on
// first use.
func (p *peripheral) characteristic(uuid string) (bluetooth.DeviceCharacteristic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero bluetooth.DeviceCharacteristic
	if !p.connected {
		return zero, fmt.Errorf("not connected to %s", p.addr.String())
	}

	if p.chars == nil {
		if err := p.discoverLocked(); err != nil {
			return zero, err
		}
	}

	c, ok := p.chars[strings.ToLower(uuid)]
	if !ok {
		return zero, fmt.Errorf("characteristic %s not found on %s", uuid, p.addr.String())
	}
	return c, nil
}

// discoverLocked enumerates all services and characteristics. Callers hold
// p.mu.
func (p *peripheral) discoverLocked() error {
	services, err := p.device.DiscoverServices(nil)
	if err != nil {
		return fmt.Errorf("discovering services: %w", err)
	}

	chars := make(map[string]bluetooth.DeviceCharacteristic)
	for _, svc := range services {
		cs, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			return fmt.Errorf("discovering characteristics of %s: %w", svc.UUID().String(), err)
		}
		for _, c := range cs {
			chars[strings.ToLower(c.UUID().String())] = c
		}
	}

	p.chars = chars
	return nil
}

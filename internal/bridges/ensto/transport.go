package ensto

import (
	"context"
	"time"
)

// Vendor-fixed GATT constants. These must match the physical devices
// byte-for-byte; do not edit them.
const (
	// ManufacturerID is Ensto's Bluetooth SIG company identifier, present
	// in the advertisement manufacturer data.
	ManufacturerID = 0x2806

	// FactoryResetIDUUID is the characteristic holding the pairing
	// credential. Readable without authentication only in pairing mode;
	// written back to authorise the connection.
	FactoryResetIDUUID = "f366dddb-ebe2-43ee-83c0-472ded74c8fa"

	// RealTimeIndicationUUID is the telemetry characteristic carrying the
	// binary frame decoded by this package.
	RealTimeIndicationUUID = "66ad3e6b-3135-4ada-bb2b-8b22916b21d4"
)

// Transport resolves configured device identities to live peripherals.
// The production implementation lives in internal/ble; tests substitute
// fakes.
type Transport interface {
	// Find scans for an advertisement matching the identifier and returns
	// a handle to the peripheral. An identifier containing ":" is treated
	// as an address, anything else as an advertised name. An error means
	// nothing matched within the timeout or the scan itself failed.
	Find(ctx context.Context, identifier string, timeout time.Duration) (Peripheral, error)
}

// Peripheral is one discovered BLE device. A session connects it, performs
// the handshake and telemetry read, and disconnects it; Disconnect must be
// safe to call regardless of which step failed.
type Peripheral interface {
	// Address returns the stable hardware address.
	Address() string

	// Name returns the advertised name, may be empty.
	Name() string

	// Connect establishes the connection within the timeout.
	Connect(ctx context.Context, timeout time.Duration) error

	// Connected reports whether the connection is currently up.
	Connected() bool

	// ReadCharacteristic reads the characteristic with the given UUID.
	ReadCharacteristic(uuid string) ([]byte, error)

	// WriteCharacteristic writes data to the characteristic with the
	// given UUID.
	WriteCharacteristic(uuid string, data []byte) error

	// Disconnect releases the connection. Idempotent.
	Disconnect() error
}

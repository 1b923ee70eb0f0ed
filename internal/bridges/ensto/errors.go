package ensto

import "errors"

// Domain errors for the Ensto bridge package.
//
// Every one of these is a per-device, per-cycle condition: the session
// reports it, the scheduler logs it, and the next poll is the retry.
// None of them is allowed to abort the polling loop.
var (
	// ErrNotFound is returned when a device does not answer the scan
	// within the discovery timeout. Routine: battery devices sleep,
	// neighbours hold connections, walls attenuate.
	ErrNotFound = errors.New("ensto: device not found during scan")

	// ErrConnectFailed is returned when the transport-level connection
	// cannot be established within the connect timeout.
	ErrConnectFailed = errors.New("ensto: connect failed")

	// ErrNotInPairingMode is returned when the unauthenticated factory
	// reset ID read yields all zeros. The device must be put in pairing
	// mode before the bridge can obtain a credential.
	ErrNotInPairingMode = errors.New("ensto: device not in pairing mode")

	// ErrHandshakeRejected is returned when writing the credential back
	// to the device fails. A cached credential that is rejected usually
	// means the device was re-paired out of band; the credential is kept
	// so the operator can decide.
	ErrHandshakeRejected = errors.New("ensto: handshake write rejected")

	// ErrTelemetryReadFailed is returned when the real-time indication
	// characteristic cannot be read or the frame cannot be decoded.
	ErrTelemetryReadFailed = errors.New("ensto: telemetry read failed")
)

// Constructor validation errors.
var (
	errSchedulerNoSession   = errors.New("ensto: scheduler requires a session")
	errSchedulerNoPublisher = errors.New("ensto: scheduler requires a publisher")
)

package credential

import "errors"

// Domain errors for the credential store.
var (
	// ErrInvalidCredential is returned when a credential is empty or
	// all-zero. The thermostats return zeros from the factory reset ID
	// characteristic when not in pairing mode, so zeros never identify
	// a device.
	ErrInvalidCredential = errors.New("credential: invalid (empty or all-zero)")

	// ErrStorage is returned when the credential document cannot be
	// written. Callers log it and carry on; the in-memory copy still
	// serves the current process.
	ErrStorage = errors.New("credential: storage failure")
)

// Package credential persists per-device pairing credentials.
//
// Each Ensto thermostat exposes a "factory reset ID": a byte token readable
// without authentication only while the device is in pairing mode, and
// written back on every connection to authorise subsequent reads. The bridge
// reads it once, stores it here, and reuses it on every later session.
//
// Storage is a flat JSON document of address → hex-encoded bytes. A missing
// or corrupt document degrades to an empty store rather than failing startup;
// the worst case is that a device must be re-paired.
//
// Credentials are never evicted automatically. A stored credential that a
// device rejects surfaces as a handshake failure — deleting it on what might
// be a transient link error would force a needless re-pairing.
package credential

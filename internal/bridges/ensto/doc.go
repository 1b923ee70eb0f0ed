// Package ensto implements the Ensto BLE thermostat bridge.
//
// This package polls Ensto ECO-series floor heating thermostats over
// Bluetooth Low Energy and publishes their telemetry to MQTT.
//
// # Architecture
//
// The bridge operates as a translator between two transports:
//
//	┌─────────────────┐          ┌─────────────────┐
//	│  Home Assistant │   MQTT   │  Ensto Bridge   │   BLE
//	│   / dashboards  │◄────────►│   (this pkg)    │◄────────► Thermostats
//	└─────────────────┘          └─────────────────┘
//
// # Key Responsibilities
//
//   - Discover configured thermostats by advertised name or address
//   - Perform the vendor pairing handshake (factory reset ID read-back)
//   - Decode the real-time indication telemetry frame
//   - Publish readings as JSON state messages
//   - Announce devices via Home Assistant MQTT discovery
//   - Persist readings to SQLite and optionally InfluxDB
//   - Publish health status
//
// # Pairing
//
// Ensto thermostats gate their GATT table behind a one-time pairing
// exchange. With the device in pairing mode (blue LED flashing after
// holding the BLE button), the factory reset ID characteristic returns a
// non-zero credential. The bridge stores it durably and writes it back at
// the start of every session to authenticate. Outside pairing mode the
// characteristic reads as zeros.
//
// A stored credential is never evicted automatically: a rejected write is
// usually a transient radio problem, and rebuilding the credential needs a
// human at the thermostat. Factory-reset devices require deleting the
// stored entry and re-pairing.
//
// # Telemetry Layouts
//
// Firmware generations lay out the real-time indication frame differently.
// The layout is configured per device:
//
//   - Layout A: calibrated uint32 target at offset 0, temperatures as
//     signed decidegrees at offsets 4 and 6, relay flag at offset 13
//   - Layout B: uint16 target decidegrees at offset 0, temperatures at
//     offsets 2 and 4, relay flag at offset 7
//
// # Scheduling
//
// One radio serves all devices, so sessions run strictly sequentially. A
// failure on one device is logged and the cycle moves on; the poll loop
// only exits on shutdown.
//
// # Thread Safety
//
// Scheduler, HealthReporter, and Announcer are safe for concurrent use.
// Session.Run must not be called concurrently for the same transport.
package ensto

// Package ble provides the Bluetooth Low Energy transport for the bridge.
//
// It wraps the host adapter (BlueZ on Linux, CoreBluetooth on macOS) behind
// the bridge's Transport interface: scan for a device by address or
// advertised name, connect as a GATT central, and read or write
// characteristics by UUID.
//
// GATT discovery is deferred until the first characteristic operation.
// Ensto thermostats report connected before their attribute table is
// usable, so callers insert a settle delay between Connect and the first
// read; lazy discovery keeps that delay effective.
//
// On Linux the process needs BlueZ and root (or CAP_NET_ADMIN) to scan.
package ble

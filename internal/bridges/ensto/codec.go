package ensto

import (
	"encoding/binary"
	"math"
	"strings"
)

// Layout identifies the real-time indication frame encoding.
//
// Two incompatible encodings exist across firmware revisions, and nothing in
// the frame itself reliably identifies which one a device speaks, so the
// layout is selected per device in configuration.
type Layout int

const (
	// LayoutA is the encoding seen on older ECO16BT firmware: a 32-bit
	// calibrated target temperature followed by raw decidegree fields.
	LayoutA Layout = iota

	// LayoutB is the encoding seen on newer firmware: all temperatures
	// are plain decidegree fields.
	LayoutB
)

// String returns the configuration spelling of the layout.
func (l Layout) String() string {
	switch l {
	case LayoutB:
		return "b"
	default:
		return "a"
	}
}

// ParseLayout converts a configuration string to a Layout.
// Unrecognised or empty values default to LayoutA, the common case in
// the field.
func ParseLayout(s string) Layout {
	if strings.EqualFold(s, "b") {
		return LayoutB
	}
	return LayoutA
}

// Layout A field geometry.
//
// The target setting is a 32-bit little-endian counter calibrated against
// the dial range: 13038 at 5.0°C, 128198 at 35.0°C. The linear map below
// reproduces the vendor app's displayed value to one decimal.
const (
	layoutAMinFrameLen  = 10
	layoutARelayOffset  = 13
	layoutATargetRawMin = 13038
	layoutATargetSpan   = 115160 // raw range covering 30.0°C
	layoutATargetBase   = 5.0
	layoutATargetRange  = 30.0
)

// Layout B field geometry. All temperatures are decidegrees.
const (
	layoutBMinFrameLen = 20
	layoutBRelayOffset = 7
)

// decidegreesPerDegree scales the int16 temperature fields.
const decidegreesPerDegree = 10.0

// Reading is one decoded telemetry frame: the thermostat's setpoint, the
// two measured temperatures, and whether the heating relay is closed.
//
// Readings are immutable snapshots; they are published and discarded.
type Reading struct {
	TargetTemperature float64 `json:"target_temperature"`
	RoomTemperature   float64 `json:"room_temperature"`
	FloorTemperature  float64 `json:"floor_temperature"`
	RelayActive       bool    `json:"relay_active"`
}

// DecodeFrame decodes a real-time indication frame into a Reading.
//
// A frame shorter than the layout's minimum is a defined degraded case, not
// an error: the device occasionally returns truncated buffers right after
// connection, and the next poll simply tries again. Callers must check ok.
//
// Malformed content of sufficient length decodes to whatever the bytes say;
// the codec never fails on it.
//
// Parameters:
//   - layout: Frame encoding for this device (configuration-selected)
//   - data: Raw bytes read from the real-time indication characteristic
//
// Returns:
//   - Reading: Decoded values (zero value when ok is false)
//   - bool: false if the frame is too short to decode
func DecodeFrame(layout Layout, data []byte) (Reading, bool) {
	switch layout {
	case LayoutB:
		return decodeLayoutB(data)
	default:
		return decodeLayoutA(data)
	}
}

// decodeLayoutA decodes the older firmware frame:
//
//	bytes 0..3   uint32 LE  calibrated target setting
//	bytes 4..5   int16 LE   room temperature, decidegrees
//	bytes 6..7   int16 LE   floor temperature, decidegrees
//	byte  13     relay state, non-zero = active
//
// Frames of 10..13 bytes decode temperatures but report the relay as
// inactive, matching what short frames from these units actually mean.
func decodeLayoutA(data []byte) (Reading, bool) {
	if len(data) < layoutAMinFrameLen {
		return Reading{}, false
	}

	rawTarget := binary.LittleEndian.Uint32(data[0:4])
	target := layoutATargetBase + float64(int64(rawTarget)-layoutATargetRawMin)*layoutATargetRange/layoutATargetSpan

	r := Reading{
		TargetTemperature: roundTenth(target),
		RoomTemperature:   decidegrees(data[4:6]),
		FloorTemperature:  decidegrees(data[6:8]),
	}
	if len(data) > layoutARelayOffset {
		r.RelayActive = data[layoutARelayOffset] != 0
	}
	return r, true
}

// decodeLayoutB decodes the newer firmware frame:
//
//	bytes 0..1   uint16 LE  target temperature, decidegrees
//	bytes 2..3   int16 LE   room temperature, decidegrees
//	bytes 4..5   int16 LE   floor temperature, decidegrees
//	byte  7      relay state, non-zero = active
func decodeLayoutB(data []byte) (Reading, bool) {
	if len(data) < layoutBMinFrameLen {
		return Reading{}, false
	}

	return Reading{
		TargetTemperature: float64(binary.LittleEndian.Uint16(data[0:2])) / decidegreesPerDegree,
		RoomTemperature:   decidegrees(data[2:4]),
		FloorTemperature:  decidegrees(data[4:6]),
		RelayActive:       data[layoutBRelayOffset] != 0,
	}, true
}

// decidegrees converts a 2-byte little-endian signed field to degrees.
func decidegrees(b []byte) float64 {
	return float64(int16(binary.LittleEndian.Uint16(b))) / decidegreesPerDegree
}

// roundTenth rounds to one decimal place.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

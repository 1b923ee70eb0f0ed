package ensto

import (
	"encoding/binary"
	"math"
	"testing"
)

// layoutAFrame builds a Layout A frame from field values.
func layoutAFrame(t *testing.T, rawTarget uint32, room, floor int16, relay byte) []byte {
	t.Helper()
	data := make([]byte, 14)
	binary.LittleEndian.PutUint32(data[0:4], rawTarget)
	binary.LittleEndian.PutUint16(data[4:6], uint16(room))
	binary.LittleEndian.PutUint16(data[6:8], uint16(floor))
	data[13] = relay
	return data
}

// layoutBFrame builds a Layout B frame from field values.
func layoutBFrame(t *testing.T, target uint16, room, floor int16, relay byte) []byte {
	t.Helper()
	data := make([]byte, 20)
	binary.LittleEndian.PutUint16(data[0:2], target)
	binary.LittleEndian.PutUint16(data[2:4], uint16(room))
	binary.LittleEndian.PutUint16(data[4:6], uint16(floor))
	data[7] = relay
	return data
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.05
}

func TestDecodeFrame_LayoutA_KnownVector(t *testing.T) {
	// Calibration sample: raw 70618 sits exactly half way up the dial
	// range, which is 20.0°C.
	data := layoutAFrame(t, 70618, 215, 198, 1)

	r, ok := DecodeFrame(LayoutA, data)
	if !ok {
		t.Fatal("DecodeFrame() ok = false, want true")
	}

	if !almostEqual(r.TargetTemperature, 20.0) {
		t.Errorf("TargetTemperature = %v, want 20.0", r.TargetTemperature)
	}
	if r.RoomTemperature != 21.5 {
		t.Errorf("RoomTemperature = %v, want 21.5", r.RoomTemperature)
	}
	if r.FloorTemperature != 19.8 {
		t.Errorf("FloorTemperature = %v, want 19.8", r.FloorTemperature)
	}
	if !r.RelayActive {
		t.Error("RelayActive = false, want true")
	}
}

func TestDecodeFrame_LayoutA_DialEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		rawTarget  uint32
		wantTarget float64
	}{
		{"dial minimum", 13038, 5.0},
		{"dial maximum", 128198, 35.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := DecodeFrame(LayoutA, layoutAFrame(t, tt.rawTarget, 0, 0, 0))
			if !ok {
				t.Fatal("DecodeFrame() ok = false, want true")
			}
			if r.TargetTemperature != tt.wantTarget {
				t.Errorf("TargetTemperature = %v, want %v", r.TargetTemperature, tt.wantTarget)
			}
		})
	}
}

func TestDecodeFrame_LayoutA_NegativeTemperatures(t *testing.T) {
	r, ok := DecodeFrame(LayoutA, layoutAFrame(t, 13038, -217, -15, 0))
	if !ok {
		t.Fatal("DecodeFrame() ok = false, want true")
	}
	if r.RoomTemperature != -21.7 {
		t.Errorf("RoomTemperature = %v, want -21.7", r.RoomTemperature)
	}
	if r.FloorTemperature != -1.5 {
		t.Errorf("FloorTemperature = %v, want -1.5", r.FloorTemperature)
	}
}

func TestDecodeFrame_LayoutA_ShortFrameOmitsRelay(t *testing.T) {
	// Frames of 10..13 bytes carry the temperatures but not the relay
	// byte; the relay must read as inactive, not crash.
	data := layoutAFrame(t, 70618, 215, 198, 1)[:10]

	r, ok := DecodeFrame(LayoutA, data)
	if !ok {
		t.Fatal("DecodeFrame() ok = false, want true for 10-byte frame")
	}
	if r.RelayActive {
		t.Error("RelayActive = true for frame without relay byte")
	}
	if r.RoomTemperature != 21.5 {
		t.Errorf("RoomTemperature = %v, want 21.5", r.RoomTemperature)
	}
}

func TestDecodeFrame_LayoutB_KnownVector(t *testing.T) {
	data := layoutBFrame(t, 215, -50, 120, 0)

	r, ok := DecodeFrame(LayoutB, data)
	if !ok {
		t.Fatal("DecodeFrame() ok = false, want true")
	}

	if r.TargetTemperature != 21.5 {
		t.Errorf("TargetTemperature = %v, want 21.5", r.TargetTemperature)
	}
	if r.RoomTemperature != -5.0 {
		t.Errorf("RoomTemperature = %v, want -5.0", r.RoomTemperature)
	}
	if r.FloorTemperature != 12.0 {
		t.Errorf("FloorTemperature = %v, want 12.0", r.FloorTemperature)
	}
	if r.RelayActive {
		t.Error("RelayActive = true, want false")
	}
}

func TestDecodeFrame_LayoutB_RelayActive(t *testing.T) {
	r, ok := DecodeFrame(LayoutB, layoutBFrame(t, 180, 195, 210, 1))
	if !ok {
		t.Fatal("DecodeFrame() ok = false, want true")
	}
	if !r.RelayActive {
		t.Error("RelayActive = false, want true")
	}
}

func TestDecodeFrame_ShortBuffers(t *testing.T) {
	// Every buffer below the layout minimum must yield ok=false and never
	// panic, regardless of content.
	for n := 0; n < layoutAMinFrameLen; n++ {
		if _, ok := DecodeFrame(LayoutA, make([]byte, n)); ok {
			t.Errorf("LayoutA: DecodeFrame() ok = true for %d-byte buffer", n)
		}
	}
	for n := 0; n < layoutBMinFrameLen; n++ {
		if _, ok := DecodeFrame(LayoutB, make([]byte, n)); ok {
			t.Errorf("LayoutB: DecodeFrame() ok = true for %d-byte buffer", n)
		}
	}
}

func TestDecodeFrame_NilBuffer(t *testing.T) {
	if _, ok := DecodeFrame(LayoutA, nil); ok {
		t.Error("DecodeFrame(nil) ok = true, want false")
	}
}

func TestParseLayout(t *testing.T) {
	tests := []struct {
		input string
		want  Layout
	}{
		{"a", LayoutA},
		{"A", LayoutA},
		{"b", LayoutB},
		{"B", LayoutB},
		{"", LayoutA},
		{"unknown", LayoutA},
	}

	for _, tt := range tests {
		if got := ParseLayout(tt.input); got != tt.want {
			t.Errorf("ParseLayout(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLayout_String(t *testing.T) {
	if LayoutA.String() != "a" || LayoutB.String() != "b" {
		t.Errorf("Layout.String() = %q/%q, want a/b", LayoutA.String(), LayoutB.String())
	}
}

package ensto

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/ensto-bridge/internal/infrastructure/database"
)

func newTestHistory(t *testing.T) *History {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "readings.db"),
		BusyTimeout: 5000,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h, err := NewHistory(db.DB)
	if err != nil {
		t.Fatalf("NewHistory failed: %v", err)
	}
	return h
}

func TestHistory_RecordAndRecent(t *testing.T) {
	h := newTestHistory(t)

	readings := []Reading{
		{TargetTemperature: 20.0, RoomTemperature: 19.5, FloorTemperature: 18.0, RelayActive: true},
		{TargetTemperature: 20.0, RoomTemperature: 20.1, FloorTemperature: 19.2, RelayActive: false},
	}
	for _, r := range readings {
		if err := h.Record("AA:BB:CC:DD:EE:FF", r); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := h.Recent("AA:BB:CC:DD:EE:FF", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	// Newest first
	if entries[0].Reading.RoomTemperature != 20.1 {
		t.Errorf("entries[0] room = %v, want 20.1 (newest first)", entries[0].Reading.RoomTemperature)
	}
	if entries[0].Reading.RelayActive {
		t.Error("entries[0] relay should be inactive")
	}
	if !entries[1].Reading.RelayActive {
		t.Error("entries[1] relay should be active")
	}
	if entries[0].Address != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("address = %q", entries[0].Address)
	}
}

func TestHistory_RecentFiltersByAddress(t *testing.T) {
	h := newTestHistory(t)

	if err := h.Record("AA:BB:CC:DD:EE:01", Reading{RoomTemperature: 21.0}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := h.Record("AA:BB:CC:DD:EE:02", Reading{RoomTemperature: 22.0}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := h.Recent("AA:BB:CC:DD:EE:01", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Reading.RoomTemperature != 21.0 {
		t.Errorf("room = %v, want 21.0", entries[0].Reading.RoomTemperature)
	}
}

func TestHistory_RecentLimit(t *testing.T) {
	h := newTestHistory(t)

	for i := 0; i < 5; i++ {
		if err := h.Record("AA:BB:CC:DD:EE:FF", Reading{RoomTemperature: float64(i)}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := h.Recent("AA:BB:CC:DD:EE:FF", 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
}

func TestHistory_RecordRequiresAddress(t *testing.T) {
	h := newTestHistory(t)
	if err := h.Record("", Reading{}); err == nil {
		t.Error("expected error for empty address")
	}
	if _, err := h.Recent("", 10); err == nil {
		t.Error("expected error for empty address")
	}
}

func TestHistory_PruneRemovesNothingRecent(t *testing.T) {
	h := newTestHistory(t)

	if err := h.Record("AA:BB:CC:DD:EE:FF", Reading{}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	deleted, err := h.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("pruned %d fresh rows, want 0", deleted)
	}

	entries, err := h.Recent("AA:BB:CC:DD:EE:FF", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries after prune, want 1", len(entries))
	}
}

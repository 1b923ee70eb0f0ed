package ensto

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// historySchema creates the readings table on first open. The table is
// append-only; Prune is the only delete path.
const historySchema = `
CREATE TABLE IF NOT EXISTS readings (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    address     TEXT    NOT NULL,
    target_temp REAL    NOT NULL,
    room_temp   REAL    NOT NULL,
    floor_temp  REAL    NOT NULL,
    relay       INTEGER NOT NULL,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_readings_address_time ON readings(address, created_at);
`

// HistoryEntry is one persisted reading.
type HistoryEntry struct {
	ID        int64
	Address   string
	Reading   Reading
	CreatedAt time.Time
}

// History persists readings to SQLite for local trend queries. It is the
// on-disk complement to the InfluxDB export: always available, no external
// service required.
type History struct {
	db *sql.DB
}

// NewHistory creates a reading history store and ensures the schema exists.
//
// Parameters:
//   - db: Open SQLite connection
//
// Returns:
//   - *History: Ready for use
//   - error: If schema creation fails
func NewHistory(db *sql.DB) (*History, error) {
	if _, err := db.Exec(historySchema); err != nil {
		return nil, fmt.Errorf("creating readings schema: %w", err)
	}
	return &History{db: db}, nil
}

// Record inserts one reading for a device.
//
// Parameters:
//   - address: Device identifier the reading came from
//   - r: Decoded reading
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (h *History) Record(address string, r Reading) error {
	if address == "" {
		return fmt.Errorf("address is required")
	}

	relay := 0
	if r.RelayActive {
		relay = 1
	}

	_, err := h.db.Exec(
		"INSERT INTO readings (address, target_temp, room_temp, floor_temp, relay) VALUES (?, ?, ?, ?, ?)",
		address,
		r.TargetTemperature,
		r.RoomTemperature,
		r.FloorTemperature,
		relay,
	)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}
	return nil
}

// Recent returns the latest readings for a device, newest first.
//
// Parameters:
//   - address: Device identifier
//   - limit: Maximum entries to return (default 50, max 500)
//
// Returns:
//   - []HistoryEntry: Entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (h *History) Recent(address string, limit int) ([]HistoryEntry, error) {
	if address == "" {
		return nil, fmt.Errorf("address is required")
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := h.db.Query(
		`SELECT id, address, target_temp, room_temp, floor_temp, relay, created_at
		 FROM readings
		 WHERE address = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		address,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var entry HistoryEntry
		var relay int

		if err := rows.Scan(&entry.ID, &entry.Address,
			&entry.Reading.TargetTemperature,
			&entry.Reading.RoomTemperature,
			&entry.Reading.FloorTemperature,
			&relay,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		entry.Reading.RelayActive = relay != 0
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}

	return entries, nil
}

// Prune deletes readings older than the retention window.
//
// Parameters:
//   - retention: Age beyond which readings are deleted
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (h *History) Prune(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format("2006-01-02 15:04:05")

	res, err := h.db.Exec("DELETE FROM readings WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning readings: %w", err)
	}
	return res.RowsAffected()
}

// Package database provides SQLite connectivity for the Ensto bridge.
//
// The bridge uses SQLite for its reading history: one row per successful
// telemetry poll. Volume is tiny (a handful of devices polled every couple
// of minutes), so a single-connection WAL-mode database is plenty.
//
// # Usage
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Storage.DatabasePath,
//	    BusyTimeout: cfg.Storage.BusyTimeout,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
package database

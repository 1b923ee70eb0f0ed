// Package influxdb provides an optional time-series sink for thermostat
// telemetry.
//
// When enabled, every successful poll writes a point to the thermostat
// measurement tagged by device address, carrying the three temperatures and
// the relay state. Writes are batched and asynchronous; a slow or absent
// InfluxDB never blocks the polling loop.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) {
//	    log.Error("influx write failed", "error", err)
//	})
//	client.WriteReading("6C:FD:22:F4:7B:06", 20.0, 21.5, 19.8, true)
package influxdb

package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteReading writes one decoded thermostat reading to InfluxDB.
//
// The write is non-blocking; data is batched and sent asynchronously.
// All three temperatures land in a single point so they share a timestamp.
//
// Parameters:
//   - address: Device MAC address, used as the series tag
//   - target: Target temperature in °C
//   - room: Room temperature in °C
//   - floor: Floor temperature in °C
//   - relayActive: Whether the heating relay is currently on
//
// Example:
//
//	client.WriteReading("6C:FD:22:F4:7B:06", 20.0, 21.5, 19.8, true)
func (c *Client) WriteReading(address string, target, room, floor float64, relayActive bool) {
	if !c.IsConnected() {
		return
	}

	relay := 0.0
	if relayActive {
		relay = 1.0
	}

	point := write.NewPoint(
		"thermostat",
		map[string]string{
			"address": address,
		},
		map[string]interface{}{
			"target_temperature": target,
			"room_temperature":   room,
			"floor_temperature":  floor,
			"relay_active":       relay,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit WriteReading, such as cycle
// statistics.
//
// Example:
//
//	client.WritePoint("bridge_stats",
//	    map[string]string{"bridge": "ensto"},
//	    map[string]interface{}{"cycle_seconds": 42.0, "failures": 1})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

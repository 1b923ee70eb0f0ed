// Package mqtt provides MQTT client connectivity for the Ensto bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The bridge is a pure publisher. Decoded thermostat readings go to per-device
// state topics, Home Assistant discovery configs go under the configured
// discovery prefix, and bridge status/health go to ensto_bridge/status and
// ensto_bridge/health.
//
//	BLE thermostats → Ensto bridge → MQTT broker → Home Assistant
//
// # Security Considerations
//
//   - TLS is recommended for non-local brokers (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.State("6C:FD:22:F4:7B:06")
//	err = client.Publish(topic, payload, 1, false)
package mqtt

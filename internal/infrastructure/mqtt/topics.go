package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefix for all bridge topics.
//
// State topics use the flat scheme: ensto_bridge/{address}/state where
// {address} is the device MAC with separator characters stripped. The
// scheme is fixed; Home Assistant discovery payloads reference it by name.
const TopicPrefix = "ensto_bridge"

// Topics provides builders for bridge MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.State("6C:FD:22:F4:7B:06")
//	// Returns: "ensto_bridge/6CFD22F47B06/state"
type Topics struct{}

// State returns the telemetry state topic for a device.
//
// The address may contain ":" or "-" separators; they are stripped.
//
// Example: ensto_bridge/6CFD22F47B06/state
func (Topics) State(address string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefix, SanitizeAddress(address))
}

// Status returns the bridge status topic used for LWT and online/offline
// announcements.
//
// Example: ensto_bridge/status
func (Topics) Status() string {
	return fmt.Sprintf("%s/status", TopicPrefix)
}

// Health returns the bridge health topic.
//
// Example: ensto_bridge/health
func (Topics) Health() string {
	return fmt.Sprintf("%s/health", TopicPrefix)
}

// SanitizeAddress strips separator characters from a device address so it
// can be embedded in topic segments and entity IDs.
//
// Example: "6C:FD:22:F4:7B:06" -> "6CFD22F47B06"
func SanitizeAddress(address string) string {
	r := strings.NewReplacer(":", "", "-", "")
	return r.Replace(address)
}

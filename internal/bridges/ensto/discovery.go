package ensto

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/ensto-bridge/internal/infrastructure/mqtt"
)

// defaultDiscoveryPrefix is Home Assistant's default discovery topic root.
const defaultDiscoveryPrefix = "homeassistant"

// RetainedPublisher is the announcer's view of the MQTT client. Discovery
// configs are always retained so Home Assistant picks them up on its own
// restart without the bridge re-announcing.
type RetainedPublisher interface {
	PublishRetained(topic string, payload []byte) error
}

// deviceInfo is the Home Assistant device registry block shared by all
// entities of one thermostat.
type deviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

// entityConfig is one Home Assistant MQTT discovery payload.
type entityConfig struct {
	Name          string     `json:"name"`
	UniqueID      string     `json:"unique_id"`
	StateTopic    string     `json:"state_topic"`
	ValueTemplate string     `json:"value_template"`
	Unit          string     `json:"unit_of_measurement,omitempty"`
	DeviceClass   string     `json:"device_class,omitempty"`
	Device        deviceInfo `json:"device"`
}

// Announcer publishes Home Assistant MQTT discovery configs so each
// thermostat appears automatically as three temperature sensors and a
// relay binary sensor.
//
// Announcements happen after a device's first successful poll, once the
// scan has resolved its hardware address; the scheduler drives this.
type Announcer struct {
	publisher RetainedPublisher
	prefix    string
	topics    mqtt.Topics
	logger    Logger
}

// NewAnnouncer creates a discovery announcer.
//
// Parameters:
//   - publisher: MQTT client for retained config publishes
//   - prefix: Discovery topic root (empty selects "homeassistant")
func NewAnnouncer(publisher RetainedPublisher, prefix string) *Announcer {
	if prefix == "" {
		prefix = defaultDiscoveryPrefix
	}
	return &Announcer{publisher: publisher, prefix: prefix}
}

// SetLogger sets the logger for this announcer.
func (a *Announcer) SetLogger(logger Logger) {
	a.logger = logger
}

// PublishDevice announces the four entities of one thermostat.
//
// Topic scheme: {prefix}/sensor/ensto_{mac}/{entity}/config for the
// temperature sensors and {prefix}/binary_sensor/ensto_{mac}/relay/config
// for the relay.
//
// Parameters:
//   - address: Resolved hardware address; topics and entity IDs derive
//     from it
//   - name: Configured device name (empty selects a generated fallback)
//
// Returns:
//   - error: First failed config publish
func (a *Announcer) PublishDevice(address, name string) error {
	mac := mqtt.SanitizeAddress(address)
	stateTopic := a.topics.State(address)

	if name == "" {
		name = fmt.Sprintf("Ensto Thermostat %s", mac)
	}

	device := deviceInfo{
		Identifiers:  []string{fmt.Sprintf("ensto_%s", mac)},
		Name:         name,
		Manufacturer: "Ensto",
		Model:        "BLE Thermostat",
	}

	entities := []struct {
		component string
		object    string
		config    entityConfig
	}{
		{
			component: "sensor",
			object:    "room_temp",
			config: entityConfig{
				Name:          "Room Temperature",
				UniqueID:      fmt.Sprintf("ensto_%s_room_temp", mac),
				StateTopic:    stateTopic,
				ValueTemplate: "{{ value_json.room_temperature }}",
				Unit:          "°C",
				DeviceClass:   "temperature",
				Device:        device,
			},
		},
		{
			component: "sensor",
			object:    "floor_temp",
			config: entityConfig{
				Name:          "Floor Temperature",
				UniqueID:      fmt.Sprintf("ensto_%s_floor_temp", mac),
				StateTopic:    stateTopic,
				ValueTemplate: "{{ value_json.floor_temperature }}",
				Unit:          "°C",
				DeviceClass:   "temperature",
				Device:        device,
			},
		},
		{
			component: "sensor",
			object:    "target_temp",
			config: entityConfig{
				Name:          "Target Temperature",
				UniqueID:      fmt.Sprintf("ensto_%s_target_temp", mac),
				StateTopic:    stateTopic,
				ValueTemplate: "{{ value_json.target_temperature }}",
				Unit:          "°C",
				DeviceClass:   "temperature",
				Device:        device,
			},
		},
		{
			component: "binary_sensor",
			object:    "relay",
			config: entityConfig{
				Name:          "Relay Active",
				UniqueID:      fmt.Sprintf("ensto_%s_relay", mac),
				StateTopic:    stateTopic,
				ValueTemplate: "{{ 'ON' if value_json.relay_active else 'OFF' }}",
				DeviceClass:   "power",
				Device:        device,
			},
		},
	}

	for _, e := range entities {
		topic := fmt.Sprintf("%s/%s/ensto_%s/%s/config", a.prefix, e.component, mac, e.object)
		payload, err := json.Marshal(e.config)
		if err != nil {
			return err
		}
		if err := a.publisher.PublishRetained(topic, payload); err != nil {
			return fmt.Errorf("publishing discovery config %s: %w", topic, err)
		}
	}

	if a.logger != nil {
		a.logger.Info("discovery configs published", "device", address, "entities", len(entities))
	}
	return nil
}

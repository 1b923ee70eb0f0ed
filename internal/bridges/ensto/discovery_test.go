package ensto

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestPublishDevice_Entities(t *testing.T) {
	pub := &fakePublisher{}
	a := NewAnnouncer(pub, "")

	if err := a.PublishDevice("6C:FD:22:F4:7B:06", "Bathroom Floor"); err != nil {
		t.Fatalf("PublishDevice failed: %v", err)
	}

	msgs := pub.messages()
	if len(msgs) != 4 {
		t.Fatalf("got %d publishes, want 4", len(msgs))
	}

	wantTopics := []string{
		"homeassistant/sensor/ensto_6CFD22F47B06/room_temp/config",
		"homeassistant/sensor/ensto_6CFD22F47B06/floor_temp/config",
		"homeassistant/sensor/ensto_6CFD22F47B06/target_temp/config",
		"homeassistant/binary_sensor/ensto_6CFD22F47B06/relay/config",
	}
	for i, want := range wantTopics {
		if msgs[i].topic != want {
			t.Errorf("topic[%d] = %q, want %q", i, msgs[i].topic, want)
		}
		if !msgs[i].retained {
			t.Errorf("config %q not retained", msgs[i].topic)
		}
	}
}

func TestPublishDevice_PayloadContent(t *testing.T) {
	pub := &fakePublisher{}
	a := NewAnnouncer(pub, "")

	if err := a.PublishDevice("6C:FD:22:F4:7B:06", "Bathroom Floor"); err != nil {
		t.Fatalf("PublishDevice failed: %v", err)
	}

	var cfg map[string]any
	if err := json.Unmarshal(pub.messages()[0].payload, &cfg); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}

	if got := cfg["state_topic"]; got != "ensto_bridge/6CFD22F47B06/state" {
		t.Errorf("state_topic = %v, want ensto_bridge/6CFD22F47B06/state", got)
	}
	if got := cfg["unique_id"]; got != "ensto_6CFD22F47B06_room_temp" {
		t.Errorf("unique_id = %v", got)
	}
	if got := cfg["device_class"]; got != "temperature" {
		t.Errorf("device_class = %v, want temperature", got)
	}
	if got := cfg["unit_of_measurement"]; got != "°C" {
		t.Errorf("unit_of_measurement = %v, want °C", got)
	}

	device, ok := cfg["device"].(map[string]any)
	if !ok {
		t.Fatal("missing device block")
	}
	if got := device["name"]; got != "Bathroom Floor" {
		t.Errorf("device name = %v, want configured name", got)
	}
	if got := device["manufacturer"]; got != "Ensto" {
		t.Errorf("manufacturer = %v, want Ensto", got)
	}
}

func TestPublishDevice_RelayEntity(t *testing.T) {
	pub := &fakePublisher{}
	a := NewAnnouncer(pub, "")

	if err := a.PublishDevice("AA:BB:CC:DD:EE:FF", ""); err != nil {
		t.Fatalf("PublishDevice failed: %v", err)
	}

	relay := pub.messages()[3]
	var cfg map[string]any
	if err := json.Unmarshal(relay.payload, &cfg); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if got := cfg["device_class"]; got != "power" {
		t.Errorf("relay device_class = %v, want power", got)
	}
	if _, present := cfg["unit_of_measurement"]; present {
		t.Error("relay config should omit unit_of_measurement")
	}
	tmpl, _ := cfg["value_template"].(string)
	if !strings.Contains(tmpl, "relay_active") {
		t.Errorf("value_template = %q, want reference to relay_active", tmpl)
	}
}

func TestPublishDevice_DefaultName(t *testing.T) {
	pub := &fakePublisher{}
	a := NewAnnouncer(pub, "")

	if err := a.PublishDevice("AA:BB:CC:DD:EE:FF", ""); err != nil {
		t.Fatalf("PublishDevice failed: %v", err)
	}

	var cfg map[string]any
	if err := json.Unmarshal(pub.messages()[0].payload, &cfg); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	device := cfg["device"].(map[string]any)
	if got := device["name"]; got != "Ensto Thermostat AABBCCDDEEFF" {
		t.Errorf("device name = %v, want generated fallback", got)
	}
}

func TestNewAnnouncer_CustomPrefix(t *testing.T) {
	pub := &fakePublisher{}
	a := NewAnnouncer(pub, "ha")

	if err := a.PublishDevice("AA:BB:CC:DD:EE:FF", ""); err != nil {
		t.Fatalf("PublishDevice failed: %v", err)
	}
	if topic := pub.messages()[0].topic; !strings.HasPrefix(topic, "ha/sensor/") {
		t.Errorf("topic = %q, want ha/ prefix", topic)
	}
}

func TestPublishDevice_PublishError(t *testing.T) {
	pub := &fakePublisher{pubErr: errors.New("broker unavailable")}
	a := NewAnnouncer(pub, "")

	if err := a.PublishDevice("AA:BB:CC:DD:EE:FF", ""); err == nil {
		t.Error("expected error when the config publish fails")
	}
}

// v1
// internal/device/bridge_test.go
package device

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
)

func TestTopics(t *testing.T) {
	if got := equipmentTopic("greenhouse", equipment.Heater); got != "greenhouse/equipment/heater" {
		t.Fatalf("equipment topic: %s", got)
	}
	if got := readingsTopic("greenhouse"); got != "greenhouse/readings" {
		t.Fatalf("readings topic: %s", got)
	}
	if got := overrideTopic("greenhouse"); got != "greenhouse/override" {
		t.Fatalf("override topic: %s", got)
	}
}

func TestEquipmentMessageShape(t *testing.T) {
	payload, err := json.Marshal(equipmentMessage{Kind: "co2_injector", Active: true, Tick: 12})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"kind":"co2_injector","active":true,"tick":12}`
	if string(payload) != want {
		t.Fatalf("payload: %s", payload)
	}
}

func TestDisabledBridgeIsNoOp(t *testing.T) {
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	b, err := New("", "greenhouse", "test", lg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	b.PublishEquipment(1, equipment.NewCommand())
	if err := b.SubscribeOverrides(func(OverrideRequest) { t.Fatal("unexpected callback") }); err != nil {
		t.Fatalf("subscribe on disabled bridge: %v", err)
	}
	b.Close()
}

// v1
// internal/device/bridge.go

// Package device mirrors the simulated equipment to an MQTT broker, the way
// a physical greenhouse would expose its actuators, and accepts remote
// override requests on a companion topic.
package device

import (
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
)

// OverrideRequest arrives on the override topic to force one equipment kind
// for a number of ticks. Ticks <= 0 means until the next controller decision
// would flip it anyway.
type OverrideRequest struct {
	Equipment string `json:"equipment"`
	Active    bool   `json:"active"`
	Ticks     int64  `json:"ticks"`
}

type equipmentMessage struct {
	Kind   string `json:"kind"`
	Active bool   `json:"active"`
	Tick   int64  `json:"tick"`
}

// Bridge publishes equipment states and readings over MQTT. With no broker
// configured every call is a no-op.
type Bridge struct {
	lg     *slog.Logger
	client mqtt.Client
	prefix string
}

func New(brokerAddr, prefix, clientID string, lg *slog.Logger) (*Bridge, error) {
	b := &Bridge{lg: lg, prefix: prefix}
	if brokerAddr == "" {
		lg.Info("no mqtt broker configured, device bridge disabled")
		return b, nil
	}

	opts := mqtt.NewClientOptions().AddBroker(brokerAddr).SetClientID(clientID).SetAutoReconnect(true)
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", brokerAddr, token.Error())
	}
	b.client = c
	lg.Info("device bridge connected", "broker", brokerAddr, "prefix", prefix)
	return b, nil
}

// PublishEquipment mirrors every equipment state to its retained topic so
// late subscribers see the current state immediately.
func (b *Bridge) PublishEquipment(tick int64, states equipment.Command) {
	if b == nil || b.client == nil {
		return
	}
	for kind, active := range states {
		payload, err := json.Marshal(equipmentMessage{Kind: string(kind), Active: active, Tick: tick})
		if err != nil {
			b.lg.Error("marshal equipment state failed", "err", err, "kind", kind)
			continue
		}
		token := b.client.Publish(equipmentTopic(b.prefix, kind), 0, true, payload)
		token.Wait()
		if token.Error() != nil {
			b.lg.Warn("mqtt publish failed", "err", token.Error(), "kind", kind)
		}
	}
}

// PublishReading forwards one sensor reading to the readings topic.
func (b *Bridge) PublishReading(r climate.Reading) {
	if b == nil || b.client == nil {
		return
	}
	payload, err := json.Marshal(r)
	if err != nil {
		b.lg.Error("marshal reading failed", "err", err)
		return
	}
	token := b.client.Publish(readingsTopic(b.prefix), 0, false, payload)
	token.Wait()
	if token.Error() != nil {
		b.lg.Warn("mqtt publish failed", "err", token.Error(), "tick", r.Tick)
	}
}

// SubscribeOverrides delivers override requests to fn. Requests naming an
// unknown equipment kind are dropped with a warning before fn runs.
func (b *Bridge) SubscribeOverrides(fn func(OverrideRequest)) error {
	if b == nil || b.client == nil {
		return nil
	}
	token := b.client.Subscribe(overrideTopic(b.prefix), 0, func(_ mqtt.Client, msg mqtt.Message) {
		var req OverrideRequest
		if err := json.Unmarshal(msg.Payload(), &req); err != nil {
			b.lg.Warn("invalid override payload", "err", err)
			return
		}
		if !equipment.Valid(equipment.Kind(req.Equipment)) {
			b.lg.Warn("override names unknown equipment", "equipment", req.Equipment)
			return
		}
		fn(req)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqtt subscribe: %w", token.Error())
	}
	b.lg.Info("listening for overrides", "topic", overrideTopic(b.prefix))
	return nil
}

func (b *Bridge) Close() {
	if b == nil || b.client == nil {
		return
	}
	b.client.Disconnect(250)
}

func equipmentTopic(prefix string, kind equipment.Kind) string {
	return prefix + "/equipment/" + string(kind)
}

func readingsTopic(prefix string) string {
	return prefix + "/readings"
}

func overrideTopic(prefix string) string {
	return prefix + "/override"
}

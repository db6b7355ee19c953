// v1
// internal/kafkaio/io.go
package kafkaio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/storage"
)

// messageWriter is the subset of kafka.Writer the publisher uses; tests
// substitute stubs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// IO publishes readings and issued commands to the telemetry topics. It is
// optional: with no brokers configured every publish is a no-op. A circuit
// breaker guards the writers so a broker outage costs a fast error per tick
// rather than a stalled loop.
type IO struct {
	lg *slog.Logger

	brokers       []string
	readingsTopic string
	commandsTopic string

	readingsWriter messageWriter
	commandsWriter messageWriter
	breaker        *breaker
}

func New(brokers []string, readingsTopic, commandsTopic string, brk BreakerConfig, lg *slog.Logger) (*IO, error) {
	io := &IO{
		lg:            lg,
		brokers:       brokers,
		readingsTopic: readingsTopic,
		commandsTopic: commandsTopic,
	}
	if len(brokers) == 0 {
		lg.Info("no kafka brokers configured, telemetry publishing disabled")
		return io, nil
	}
	if readingsTopic == "" || commandsTopic == "" {
		return nil, errors.New("kafka topics must be named when brokers are configured")
	}

	// Ensure topics exist before wiring writers.
	if err := io.ensureTopics(context.Background()); err != nil {
		lg.Warn("topic ensure failed", "error", err)
	}

	io.readingsWriter = newWriter(brokers, readingsTopic)
	io.commandsWriter = newWriter(brokers, commandsTopic)
	io.breaker = newBreaker(brk, lg)
	lg.Info("kafka writers ready", "brokers", brokers, "readings", readingsTopic, "commands", commandsTopic)
	return io, nil
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // partition by key (runId)
		RequiredAcks: kafka.RequireOne,
	}
}

func (io *IO) ensureTopics(ctx context.Context) error {
	broker := io.brokers[0]
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("dial broker %s: %w", broker, err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("get controller: %w", err)
	}
	c, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer c.Close()

	configs := []kafka.TopicConfig{
		{Topic: io.readingsTopic, NumPartitions: 1, ReplicationFactor: 1},
		{Topic: io.commandsTopic, NumPartitions: 1, ReplicationFactor: 1},
	}
	if err := c.CreateTopics(configs...); err != nil {
		// Kafka may return an error if topics exist. We log and continue.
		io.lg.Warn("CreateTopics returned non-nil", "error", err)
	}
	return nil
}

// PublishReading sends one reading keyed by its run id.
func (io *IO) PublishReading(ctx context.Context, r climate.Reading) error {
	if io == nil || io.readingsWriter == nil {
		return nil
	}
	msg, err := readingMessage(r)
	if err != nil {
		io.lg.Error("marshal reading failed", "err", err)
		return err
	}
	return io.send(ctx, io.readingsWriter, io.readingsTopic, msg, r.Tick)
}

// PublishCommand sends one issued command keyed by its run id.
func (io *IO) PublishCommand(ctx context.Context, c storage.StoredCommand) error {
	if io == nil || io.commandsWriter == nil {
		return nil
	}
	msg, err := commandMessage(c)
	if err != nil {
		io.lg.Error("marshal command failed", "err", err)
		return err
	}
	return io.send(ctx, io.commandsWriter, io.commandsTopic, msg, c.Tick)
}

// send routes one message through the breaker. Fast-fails while the circuit
// is open are not logged per message; the state transitions already are.
func (io *IO) send(ctx context.Context, w messageWriter, topic string, msg kafka.Message, tick int64) error {
	write := func(ctx context.Context) error { return w.WriteMessages(ctx, msg) }
	var err error
	if io.breaker != nil {
		err = io.breaker.execute(ctx, write)
	} else {
		err = write(ctx)
	}
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrBreakerOpen) {
		io.lg.Error("kafka write failed", "err", err, "topic", topic, "tick", tick)
	}
	return err
}

func readingMessage(r climate.Reading) (kafka.Message, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(r.RunID), Value: b, Time: r.Timestamp}, nil
}

func commandMessage(c storage.StoredCommand) (kafka.Message, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(c.RunID), Value: b, Time: c.IssuedAt}, nil
}

func (io *IO) Close() {
	if io == nil {
		return
	}
	if io.readingsWriter != nil {
		if err := io.readingsWriter.Close(); err != nil {
			io.lg.Warn("close readings writer", "err", err)
		}
	}
	if io.commandsWriter != nil {
		if err := io.commandsWriter.Close(); err != nil {
			io.lg.Warn("close commands writer", "err", err)
		}
	}
}

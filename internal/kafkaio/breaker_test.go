// v1
// internal/kafkaio/breaker_test.go
package kafkaio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/climate"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/storage"
)

type stubWriter struct {
	calls   int
	failing bool
}

func (w *stubWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.calls++
	if w.failing {
		return errors.New("broker unreachable")
	}
	return nil
}

func (w *stubWriter) Close() error { return nil }

func stubIO(w messageWriter, brk BreakerConfig) *IO {
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &IO{
		lg:             lg,
		readingsTopic:  "greenhouse.readings",
		commandsTopic:  "greenhouse.commands",
		readingsWriter: w,
		commandsWriter: w,
		breaker:        newBreaker(brk, lg),
	}
}

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	w := &stubWriter{failing: true}
	pub := stubIO(w, BreakerConfig{MaxFailures: 3, ResetTimeout: time.Hour})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := pub.PublishReading(ctx, climate.Reading{RunID: "r", Tick: int64(i)}); err == nil {
			t.Fatalf("write %d should have failed", i)
		}
	}
	if got := pub.breaker.state(); got != breakerOpen {
		t.Fatalf("state after 3 failures: %s", got)
	}

	// While open, publishes fast-fail without touching the writer.
	before := w.calls
	err := pub.PublishCommand(ctx, storage.StoredCommand{RunID: "r"})
	if !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("want ErrBreakerOpen, got %v", err)
	}
	if w.calls != before {
		t.Fatalf("writer called while open: %d -> %d", before, w.calls)
	}
}

func TestBreakerProbesAndCloses(t *testing.T) {
	w := &stubWriter{failing: true}
	pub := stubIO(w, BreakerConfig{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond})
	ctx := context.Background()

	if err := pub.PublishReading(ctx, climate.Reading{RunID: "r"}); err == nil {
		t.Fatal("first write should have failed")
	}
	if got := pub.breaker.state(); got != breakerOpen {
		t.Fatalf("state after failure: %s", got)
	}

	w.failing = false
	time.Sleep(30 * time.Millisecond)

	if err := pub.PublishReading(ctx, climate.Reading{RunID: "r", Tick: 1}); err != nil {
		t.Fatalf("probe write: %v", err)
	}
	if got := pub.breaker.state(); got != breakerClosed {
		t.Fatalf("state after recovery: %s", got)
	}
	if err := pub.PublishCommand(ctx, storage.StoredCommand{RunID: "r", Tick: 1}); err != nil {
		t.Fatalf("write after recovery: %v", err)
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	w := &stubWriter{failing: true}
	pub := stubIO(w, BreakerConfig{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond})
	ctx := context.Background()

	_ = pub.PublishReading(ctx, climate.Reading{RunID: "r"})
	time.Sleep(30 * time.Millisecond)

	if err := pub.PublishReading(ctx, climate.Reading{RunID: "r", Tick: 1}); err == nil {
		t.Fatal("probe should have failed")
	}
	if got := pub.breaker.state(); got != breakerOpen {
		t.Fatalf("state after failed probe: %s", got)
	}
	if err := pub.PublishReading(ctx, climate.Reading{RunID: "r", Tick: 2}); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("want fast-fail inside the fresh window, got %v", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	w := &stubWriter{failing: true}
	pub := stubIO(w, BreakerConfig{MaxFailures: 3, ResetTimeout: time.Hour})
	ctx := context.Background()

	_ = pub.PublishReading(ctx, climate.Reading{RunID: "r"})
	_ = pub.PublishReading(ctx, climate.Reading{RunID: "r", Tick: 1})

	w.failing = false
	if err := pub.PublishReading(ctx, climate.Reading{RunID: "r", Tick: 2}); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The earlier failures no longer count toward opening.
	w.failing = true
	_ = pub.PublishReading(ctx, climate.Reading{RunID: "r", Tick: 3})
	_ = pub.PublishReading(ctx, climate.Reading{RunID: "r", Tick: 4})
	if got := pub.breaker.state(); got != breakerClosed {
		t.Fatalf("state after 2 of 3 failures: %s", got)
	}
}

func TestBreakerDefaults(t *testing.T) {
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := newBreaker(BreakerConfig{}, lg)
	if b.cfg.MaxFailures != defaultMaxFailures {
		t.Fatalf("max failures: %d", b.cfg.MaxFailures)
	}
	if b.cfg.ResetTimeout != defaultResetTimeout {
		t.Fatalf("reset timeout: %s", b.cfg.ResetTimeout)
	}
}

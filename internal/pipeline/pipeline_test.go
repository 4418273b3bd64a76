package pipeline

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"level-engine/internal/confluence"
	"level-engine/internal/events"
	"level-engine/internal/queue"
)

// TestHandleSignalFiresOnceAndEnqueues tests the tracker-to-queue handoff
func TestHandleSignalFiresOnceAndEnqueues(t *testing.T) {
	logger := zerolog.Nop()
	tracker := confluence.NewTracker(confluence.DefaultConfig(), confluence.NewMemoryCooldownStore(), logger)

	analyzed := atomic.Int32{}
	q := queue.New(queue.Config{}, func(_ context.Context, _ string, _ queue.SignalPayload) (string, error) {
		analyzed.Add(1)
		return "done", nil
	}, logger)
	q.Start()
	defer q.Stop()

	bus := events.NewBus()
	bus.Subscribe(events.EventConfluenceDetected, func(events.Event) {})
	bus.Subscribe(events.EventAnalysisCompleted, func(events.Event) {})

	pipe := New(tracker, q, nil, bus, logger)

	if pipe.HandleSignal(confluence.Signal{
		Symbol: "BTCUSDT", Kind: confluence.KindAlpha, Price: 67000, MessageID: 1, Timestamp: 1000_000,
	}, "alpha call") {
		t.Fatal("A lone signal must not fire")
	}

	if !pipe.HandleSignal(confluence.Signal{
		Symbol: "BTCUSDT", Kind: confluence.KindFOMO, Price: 67100, MessageID: 2, Timestamp: 1060_000,
	}, "fomo burst") {
		t.Fatal("Expected the pair to fire")
	}

	q.Wait()

	if analyzed.Load() != 1 {
		t.Errorf("Expected exactly 1 analysis task, got %d", analyzed.Load())
	}
	if pipe.Stats().Queued != 1 {
		t.Errorf("Expected 1 queued task in stats, got %d", pipe.Stats().Queued)
	}
}

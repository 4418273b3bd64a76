package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"level-engine/internal/confluence"
	"level-engine/internal/database"
	"level-engine/internal/events"
	"level-engine/internal/queue"
)

// Pipeline connects the confluence tracker to the analysis queue. A
// tracked signal that completes a confluence is persisted, published on
// the event bus, and handed to the queue for AI analysis.
type Pipeline struct {
	tracker *confluence.Tracker
	queue   *queue.AnalysisQueue
	repo    *database.Repository // nil when persistence is disabled
	bus     *events.Bus
	logger  zerolog.Logger
}

// New creates a pipeline. repo may be nil when the database is disabled.
func New(tracker *confluence.Tracker, q *queue.AnalysisQueue, repo *database.Repository, bus *events.Bus, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		tracker: tracker,
		queue:   q,
		repo:    repo,
		bus:     bus,
		logger:  logger.With().Str("component", "Pipeline").Logger(),
	}
}

// HandleSignal feeds one signal into the tracker. When the signal
// completes a confluence the pipeline persists the event, publishes it,
// and enqueues an analysis task. Returns true when a confluence fired.
func (p *Pipeline) HandleSignal(sig confluence.Signal, text string) bool {
	fired := p.tracker.Track(sig)
	if !fired {
		return false
	}

	p.logger.Info().
		Str("symbol", sig.Symbol).
		Float64("price", sig.Price).
		Int64("message_id", sig.MessageID).
		Msg("Confluence fired")

	if p.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		firedAt := time.UnixMilli(sig.Timestamp)
		if err := p.repo.SaveConfluenceEvent(ctx, sig.Symbol, sig.Price, sig.MessageID, firedAt); err != nil {
			p.logger.Error().Err(err).Str("symbol", sig.Symbol).Msg("Failed to persist confluence event")
		}
		cancel()
	}

	if p.bus != nil {
		p.bus.PublishConfluence(sig.Symbol, sig.Price, sig.MessageID, sig.Timestamp)
	}

	payload := queue.SignalPayload{
		Kind:      string(sig.Kind),
		Price:     sig.Price,
		MessageID: sig.MessageID,
		Timestamp: sig.Timestamp,
		Text:      text,
	}
	p.queue.Enqueue(sig.Symbol, payload, p.onTaskDone)

	return true
}

// onTaskDone persists and publishes the outcome of one analysis task
func (p *Pipeline) onTaskDone(res queue.Result) {
	if res.Skipped {
		p.logger.Debug().
			Str("symbol", res.Symbol).
			Str("trace_id", res.TraceID).
			Msg("Analysis task expired before processing")
		return
	}

	if res.Err != nil {
		p.logger.Warn().
			Err(res.Err).
			Str("symbol", res.Symbol).
			Str("trace_id", res.TraceID).
			Msg("Analysis task failed")
	}

	if p.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.repo.SaveAnalysisResult(ctx, res.TaskID, res.TraceID, res.Symbol, res.Analysis, res.Err); err != nil {
			p.logger.Error().Err(err).Str("symbol", res.Symbol).Msg("Failed to persist analysis result")
		}
		cancel()
	}

	if p.bus != nil {
		p.bus.PublishAnalysis(res.Symbol, res.TaskID, res.Analysis, res.Err != nil)
	}
}

// NotifyLevels publishes a levels computed event for subscribers
func (p *Pipeline) NotifyLevels(symbol, source string, supports, resistances int, confidence float64) {
	if p.bus != nil {
		p.bus.PublishLevels(symbol, source, supports, resistances, confidence)
	}
}

// Stats exposes the underlying queue counters
func (p *Pipeline) Stats() queue.Stats {
	return p.queue.Stats()
}

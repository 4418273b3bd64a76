package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the engine
type EventType string

const (
	EventConfluenceDetected EventType = "CONFLUENCE_DETECTED"
	EventAnalysisCompleted  EventType = "ANALYSIS_COMPLETED"
	EventLevelsComputed     EventType = "LEVELS_COMPUTED"
	EventCandleClosed       EventType = "CANDLE_CLOSED"
)

// Event is a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// Bus fans events out to subscribers. Handlers run in their own goroutine
// so a slow subscriber cannot stall the publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]Subscriber),
	}
}

// Subscribe registers a subscriber for a specific event type
func (b *Bus) Subscribe(eventType EventType, subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (b *Bus) SubscribeAll(subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allSubs = append(b.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, sub := range b.subscribers[event.Type] {
		go sub(event)
	}
	for _, sub := range b.allSubs {
		go sub(event)
	}
}

// PublishConfluence publishes a confluence detected event
func (b *Bus) PublishConfluence(symbol string, price float64, messageID, timestampMs int64) {
	b.Publish(Event{
		Type: EventConfluenceDetected,
		Data: map[string]interface{}{
			"symbol":       symbol,
			"price":        price,
			"message_id":   messageID,
			"timestamp_ms": timestampMs,
		},
	})
}

// PublishAnalysis publishes an analysis completed event
func (b *Bus) PublishAnalysis(symbol string, taskID int64, analysis string, failed bool) {
	b.Publish(Event{
		Type: EventAnalysisCompleted,
		Data: map[string]interface{}{
			"symbol":   symbol,
			"task_id":  taskID,
			"analysis": analysis,
			"failed":   failed,
		},
	})
}

// PublishLevels publishes a levels computed event
func (b *Bus) PublishLevels(symbol, source string, supports, resistances int, confidence float64) {
	b.Publish(Event{
		Type: EventLevelsComputed,
		Data: map[string]interface{}{
			"symbol":      symbol,
			"source":      source,
			"supports":    supports,
			"resistances": resistances,
			"confidence":  confidence,
		},
	})
}

// PublishCandleClosed publishes a closed candle notification
func (b *Bus) PublishCandleClosed(symbol string, closePrice, volume float64, closeTime int64) {
	b.Publish(Event{
		Type: EventCandleClosed,
		Data: map[string]interface{}{
			"symbol":     symbol,
			"close":      closePrice,
			"volume":     volume,
			"close_time": closeTime,
		},
	})
}

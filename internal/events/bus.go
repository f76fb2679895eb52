// Package events provides an in-memory pub/sub bus decoupling the signal
// and backtest engines from the delivery surfaces (websocket hub, logs).
package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventSignalRecorded  EventType = "SIGNAL_RECORDED"
	EventTradeClosed     EventType = "TRADE_CLOSED"
	EventPriceSnapshot   EventType = "PRICE_SNAPSHOT"
	EventMarketCondition EventType = "MARKET_CONDITION"
	EventError           EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers. Subscribers run in their own
// goroutines so a slow consumer never blocks the publisher.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event)
		}
	}
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishSignalRecorded publishes a new paper trade event
func (eb *EventBus) PublishSignalRecorded(symbol, signal string, score int, entryPrice float64) {
	eb.Publish(Event{
		Type: EventSignalRecorded,
		Data: map[string]interface{}{
			"symbol":      symbol,
			"signal":      signal,
			"score":       score,
			"entry_price": entryPrice,
		},
	})
}

// PublishTradeClosed publishes a completed paper trade event
func (eb *EventBus) PublishTradeClosed(symbol, signal, exitReason string, entryPrice, exitPrice, profitPct float64, daysHeld int) {
	eb.Publish(Event{
		Type: EventTradeClosed,
		Data: map[string]interface{}{
			"symbol":      symbol,
			"signal":      signal,
			"exit_reason": exitReason,
			"entry_price": entryPrice,
			"exit_price":  exitPrice,
			"profit_pct":  profitPct,
			"days_held":   daysHeld,
		},
	})
}

// PublishMarketCondition publishes a broad-index classification update
func (eb *EventBus) PublishMarketCondition(condition string, strength float64, regime string) {
	eb.Publish(Event{
		Type: EventMarketCondition,
		Data: map[string]interface{}{
			"condition": condition,
			"strength":  strength,
			"regime":    regime,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{Type: EventError, Data: data})
}

// Package events carries the in-process event bus and the websocket hub
// that fans events out to connected clients.
package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventSignalGenerated EventType = "SIGNAL_GENERATED"
	EventTradeExecuted   EventType = "TRADE_EXECUTED"
	EventTradeRejected   EventType = "TRADE_REJECTED"
	EventTradeRolledBack EventType = "TRADE_ROLLED_BACK"
	EventCircuitChanged  EventType = "CIRCUIT_CHANGED"
	EventBalanceUpdate   EventType = "BALANCE_UPDATE"
	EventWorkerRestart   EventType = "WORKER_RESTART"
	EventBotStarted      EventType = "BOT_STARTED"
	EventBotStopped      EventType = "BOT_STOPPED"
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

// Bus manages event publishing and subscriptions
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
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

// Publish sends an event to all subscribers. Subscribers run in their
// own goroutines so slow consumers cannot stall the publisher.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if subs, ok := b.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event)
		}
	}

	for _, sub := range b.allSubs {
		go sub(event)
	}
}

// PublishSignal publishes a signal generated event
func (b *Bus) PublishSignal(strategy, symbol, side string, price, confidence float64) {
	b.Publish(Event{
		Type: EventSignalGenerated,
		Data: map[string]interface{}{
			"strategy":   strategy,
			"symbol":     symbol,
			"side":       side,
			"price":      price,
			"confidence": confidence,
		},
	})
}

// PublishTradeExecuted publishes a committed trade
func (b *Bus) PublishTradeExecuted(tradeID, symbol, side string, size, price, pnl float64, mode string) {
	b.Publish(Event{
		Type: EventTradeExecuted,
		Data: map[string]interface{}{
			"trade_id": tradeID,
			"symbol":   symbol,
			"side":     side,
			"size":     size,
			"price":    price,
			"pnl":      pnl,
			"mode":     mode,
		},
	})
}

// PublishTradeRejected publishes a risk-gate rejection
func (b *Bus) PublishTradeRejected(symbol, side, reason string) {
	b.Publish(Event{
		Type: EventTradeRejected,
		Data: map[string]interface{}{
			"symbol": symbol,
			"side":   side,
			"reason": reason,
		},
	})
}

// PublishTradeRolledBack publishes a compensated trade after venue failure
func (b *Bus) PublishTradeRolledBack(tradeID, symbol, side string, cause error) {
	data := map[string]interface{}{
		"trade_id": tradeID,
		"symbol":   symbol,
		"side":     side,
	}
	if cause != nil {
		data["cause"] = cause.Error()
	}
	b.Publish(Event{
		Type: EventTradeRolledBack,
		Data: data,
	})
}

// PublishCircuitChanged publishes a breaker state transition
func (b *Bus) PublishCircuitChanged(name, from, to string) {
	b.Publish(Event{
		Type: EventCircuitChanged,
		Data: map[string]interface{}{
			"name": name,
			"from": from,
			"to":   to,
		},
	})
}

// PublishBalanceUpdate publishes a capital snapshot
func (b *Bus) PublishBalanceUpdate(capital, drawdown float64) {
	b.Publish(Event{
		Type: EventBalanceUpdate,
		Data: map[string]interface{}{
			"capital":  capital,
			"drawdown": drawdown,
		},
	})
}

// PublishWorkerRestart publishes a supervised-worker failure
func (b *Bus) PublishWorkerRestart(worker string, consecutive int, panicked bool) {
	b.Publish(Event{
		Type: EventWorkerRestart,
		Data: map[string]interface{}{
			"worker":      worker,
			"consecutive": consecutive,
			"panicked":    panicked,
		},
	})
}

// PublishError publishes an error event
func (b *Bus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	b.Publish(Event{
		Type: EventError,
		Data: data,
	})
}

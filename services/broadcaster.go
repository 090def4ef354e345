package services

import (
	"encoding/json"
	"log"
	"sync"

	"taskboard-app/taskboard/broker"
	"taskboard-app/taskboard/models"
)

// Connection is the transport-side handle the broadcaster delivers to. The
// websocket layer adapts its clients to this; tests use in-memory fakes.
// Send must not block indefinitely: a connection that cannot accept data
// returns an error instead of stalling the broadcaster.
type Connection interface {
	ID() string
	Send(data []byte) error
}

type subscription struct {
	conn       Connection
	subscribed bool
	deviceID   string
}

// Broadcaster fans task change events out to subscribed connections.
// Registration and subscription changes are safe concurrently with
// broadcasts in flight; delivery failure to one connection is isolated and
// never reaches the caller.
type Broadcaster struct {
	mu    sync.RWMutex
	conns map[string]*subscription
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{conns: make(map[string]*subscription)}
}

// Register makes a connection known to the broadcaster. It does not
// subscribe it; registration and subscription are independent.
func (b *Broadcaster) Register(conn Connection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.conns[conn.ID()]; !ok {
		b.conns[conn.ID()] = &subscription{conn: conn}
	}
	log.Printf("Connection registered: %s", conn.ID())
}

func (b *Broadcaster) Unregister(conn Connection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conns, conn.ID())
	log.Printf("Connection unregistered: %s", conn.ID())
}

// Subscribe marks the connection as receiving broadcasts. Subscribing an
// already-subscribed connection only updates the device filter. An
// unregistered connection is registered implicitly.
func (b *Broadcaster) Subscribe(conn Connection, deviceID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.conns[conn.ID()]
	if !ok {
		sub = &subscription{conn: conn}
		b.conns[conn.ID()] = sub
	}
	sub.subscribed = true
	sub.deviceID = deviceID
	log.Printf("Connection %s subscribed (device: %s)", conn.ID(), deviceID)
}

// Unsubscribe stops delivery to the connection. Idempotent on a
// non-subscribed or unknown connection.
func (b *Broadcaster) Unsubscribe(conn Connection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.conns[conn.ID()]; ok {
		sub.subscribed = false
	}
	log.Printf("Connection %s unsubscribed", conn.ID())
}

// SubscriberCount reports how many registered connections currently receive
// broadcasts.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	count := 0
	for _, sub := range b.conns {
		if sub.subscribed {
			count++
		}
	}
	return count
}

func (b *Broadcaster) BroadcastTaskCreated(task models.Task) {
	b.broadcast(broker.TaskCreated, models.TaskEventPayload{Task: task})
}

func (b *Broadcaster) BroadcastTaskUpdated(task models.Task) {
	b.broadcast(broker.TaskUpdated, models.TaskEventPayload{Task: task})
}

func (b *Broadcaster) BroadcastTaskDeleted(taskID string) {
	b.broadcast(broker.TaskDeleted, models.TaskDeletedPayload{TaskID: taskID})
}

func (b *Broadcaster) broadcast(event broker.EventType, payload interface{}) {
	msg := models.ServerMessage{
		Type:    "event",
		Event:   string(event),
		Payload: payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error serializing %s event: %v", event, err)
		return
	}

	// Snapshot under the read lock, deliver outside it, so connection
	// lifecycle calls are never blocked behind slow sends.
	b.mu.RLock()
	targets := make([]Connection, 0, len(b.conns))
	for _, sub := range b.conns {
		if sub.subscribed {
			targets = append(targets, sub.conn)
		}
	}
	b.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.Send(data); err != nil {
			// The connection stays registered; the remaining subscribers
			// still get the event.
			log.Printf("Error delivering %s event to %s: %v", event, conn.ID(), err)
		}
	}
}

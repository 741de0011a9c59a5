// Package eventhub fans complaint events out to connected dashboards and other
// subscribers. A single goroutine owns the client set.
package eventhub

import (
	"context"
	"log"
	"sync/atomic"

	"roomresq/backend/internal/models"
	"roomresq/backend/internal/storage"
)

type Hub struct {
	Clients map[Client]struct{}

	RegisterCh   chan Client
	UnregisterCh chan Client
	// registered acknowledges each RegisterCh hand-off once the client is counted.
	registered chan struct{}

	Events storage.EventBus
	// Deliveries counts events handed to clients; read with atomic ops.
	Deliveries atomic.Int64

	active atomic.Int64
	done   chan struct{}
}

func NewHub(bus storage.EventBus) *Hub {
	return &Hub{
		Clients:      make(map[Client]struct{}),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		registered:   make(chan struct{}),
		Events:       bus,
		done:         make(chan struct{}),
	}
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} { return h.done }

// ClientCount is safe to call from any goroutine.
func (h *Hub) ClientCount() int { return int(h.active.Load()) }

// Register hands c to the hub and returns once c is running and counted. It returns
// false if the hub has stopped.
func (h *Hub) Register(c Client) bool {
	select {
	case h.RegisterCh <- c:
	case <-h.done:
		return false
	}
	select {
	case <-h.registered:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c; safe to call after the hub stopped.
func (h *Hub) Unregister(c Client) {
	select {
	case h.UnregisterCh <- c:
	case <-h.done:
	}
}

// Run subscribes to the event bus and serves until ctx is cancelled or the
// subscription ends. Remaining clients are closed on exit.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	events, err := h.Events.SubscribeEvents(ctx)
	if err != nil {
		log.Printf("ERROR: Event hub could not subscribe: %v", err)
		return err
	}
	log.Println("INFO: Event hub running")

	defer func() {
		for c := range h.Clients {
			h.remove(c)
		}
		log.Println("INFO: Event hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case c := <-h.RegisterCh:
			if _, ok := h.Clients[c]; !ok {
				h.Clients[c] = struct{}{}
				c.Run()
				h.active.Add(1)
				log.Printf("INFO: Client for %s registered (%d connected)", c.GetUserID(), len(h.Clients))
			}
			h.registered <- struct{}{}

		case c := <-h.UnregisterCh:
			h.remove(c)

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			h.broadcast(ev)
		}
	}
}

func (h *Hub) broadcast(ev models.ComplaintEvent) {
	for c := range h.Clients {
		if !c.Wants(ev) {
			continue
		}
		select {
		case c.GetSendChannel() <- ev:
			h.Deliveries.Add(1)
		default:
			log.Printf("WARNING: Client for %s is not keeping up, disconnecting", c.GetUserID())
			h.remove(c)
		}
	}
}

func (h *Hub) remove(c Client) {
	if _, ok := h.Clients[c]; !ok {
		return
	}
	delete(h.Clients, c)
	h.active.Add(-1)
	c.Close()
}

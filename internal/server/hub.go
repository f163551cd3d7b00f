package server

import (
	"log"

	"chatroom/internal/protocol"
)

// inbound is one decoded request together with the session that sent it.
type inbound struct {
	c   *Client
	req protocol.Request
}

// Hub serialises every mutation of shared broker state.
//
// Concurrency model
// -----------------
//   - The Hub runs in a single dedicated goroutine (Hub.Run) that owns the
//     session table and the room Registry — the only shared mutable state.
//   - Per-connection goroutines reach it exclusively through channels:
//     register   – a freshly accepted connection
//     unregister – a connection whose read side ended
//     inbound    – one decoded request, in per-connection arrival order
//   - Because all request handling happens on this one goroutine, compound
//     operations (room-exists + join, last-leave + delete) are atomic, and
//     two broadcasts into the same room reach every member in processing
//     order.
//   - Delivery never blocks the hub: each recipient has a buffered send
//     channel, and a recipient that stopped draining it is cut instead of
//     stalling the fan-out.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	done       chan struct{}

	sessions map[string]*Client // session id → client
	registry *Registry
	router   *Router
}

func newHub() *Hub {
	h := &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound, 256),
		done:       make(chan struct{}),
		sessions:   make(map[string]*Client),
		registry:   NewRegistry(),
	}
	h.router = &Router{
		registry: h.registry,
		bcast:    &Broadcaster{hub: h},
	}
	return h
}

// Run processes hub events.  It must be launched as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.sessions[c.id] = c
			log.Printf("[hub] +session %s (%s)  total=%d", c.id, c.tr.RemoteAddr(), len(h.sessions))

		case c := <-h.unregister:
			h.drop(c)

		case in := <-h.inbound:
			if _, ok := h.sessions[in.c.id]; !ok {
				// Session was dropped after this request was queued.
				continue
			}
			h.router.Handle(in.c, in.req)

		case <-h.done:
			for _, c := range h.sessions {
				c.close()
			}
			return
		}
	}
}

// Stop signals the hub to shut down and close every session.
func (h *Hub) Stop() { close(h.done) }

// drop runs the disconnect path for c: announce its departure to every room
// it was in, remove its memberships, delete rooms it leaves empty, and push
// a room-list update when the room set changed.  Idempotent — a read error
// and a broadcast write failure racing on the same session clean up once.
// Must be called from the hub goroutine.
func (h *Hub) drop(c *Client) {
	if _, ok := h.sessions[c.id]; !ok {
		return
	}
	// Removed from the table first so the departure broadcasts skip c.
	delete(h.sessions, c.id)
	h.router.Disconnect(c)
	c.close()
	log.Printf("[hub] -session %s (%s)  total=%d", c.id, c.name, len(h.sessions))
}

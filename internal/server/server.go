// Package server implements the chat relay broker.
//
// Concurrency overview
// --------------------
//
//	┌─────────────────────────────────────────────────────────┐
//	│  Listener goroutines (TCP accept loop, websocket HTTP)  │
//	│  Wrap each connection in a Client and spawn its         │
//	│  readPump + writePump goroutines.                       │
//	└───────────────────┬─────────────────────────────────────┘
//	                    │  register / unregister / inbound channels
//	                    ▼
//	┌─────────────────────────────────────────────────────────┐
//	│  Hub goroutine                                          │
//	│  Owns the session table and the room Registry; the      │
//	│  Router mutates them and the Broadcaster fans events    │
//	│  out through per-client buffered send channels.         │
//	└─────────────────────────────────────────────────────────┘
package server

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
)

// Server ties the listeners to the Hub.
type Server struct {
	hub      *Hub
	startHub sync.Once

	mu       sync.Mutex
	listener net.Listener
	wsServer *http.Server
	closed   bool
}

// New creates a Server with an empty room registry.
func New() *Server {
	return &Server{hub: newHub()}
}

// ListenAndServe binds addr and accepts TCP connections until Shutdown.
// A failed bind is returned to the caller before any connection is served.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections from ln.  It returns nil after Shutdown closes
// the listener.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.listener = ln
	s.mu.Unlock()

	s.startHub.Do(func() { go s.hub.Run() })
	log.Printf("[server] listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			// Closed by Shutdown.
			return nil
		}
		go s.serveConn(conn)
	}
}

// Addr returns the bound TCP address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown closes the listeners and every open session.
func (s *Server) Shutdown() {
	s.mu.Lock()
	s.closed = true
	ln, ws := s.listener, s.wsServer
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	if ws != nil {
		ws.Close()
	}
	s.hub.Stop()
}

// serveConn attaches a TCP connection to the hub and runs its pumps.
// writePump gets its own goroutine; readPump runs in this one.
func (s *Server) serveConn(conn net.Conn) {
	c := newClient(s.hub, newTCPTransport(conn))
	select {
	case s.hub.register <- c:
	case <-s.hub.done:
		conn.Close()
		return
	}
	go c.writePump()
	c.readPump()
}

package server

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ListenAndServeWS serves the websocket bridge on addr: an HTTP listener
// whose /ws endpoint upgrades to a websocket session on the same hub.  Each
// text frame carries exactly one protocol message; otherwise a websocket
// session behaves identically to a TCP one, and members of a room reached
// over either transport interoperate.
func (s *Server) ListenAndServeWS(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)

	srv := &http.Server{Addr: addr, Handler: mux}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.wsServer = srv
	s.mu.Unlock()

	s.startHub.Do(func() { go s.hub.Run() })
	log.Printf("[server] websocket bridge on %s/ws", addr)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[server] websocket upgrade failed: %v", err)
		return
	}

	c := newClient(s.hub, &wsTransport{conn: conn})
	select {
	case s.hub.register <- c:
	case <-s.hub.done:
		conn.Close()
		return
	}
	go c.writePump()
	c.readPump()
}

// wsTransport adapts a websocket connection to the transport interface.
// Frames replace newline framing: one inbound text frame is one message,
// and each outbound line is written as one frame without its terminator.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		return data, nil
	}
}

func (t *wsTransport) WriteMessage(line []byte) error {
	t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, bytes.TrimSuffix(line, []byte{'\n'}))
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

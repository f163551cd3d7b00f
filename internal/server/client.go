package server

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatroom/internal/protocol"
)

const (
	sendBufSize  = 256 // buffered send channel capacity
	writeTimeout = 10 * time.Second
)

// transport abstracts the connection types the broker accepts: a raw TCP
// stream carrying newline-framed lines, or a websocket where each text frame
// is one message.  ReadMessage returns one protocol line without its
// terminator; WriteMessage takes one newline-terminated line and must write
// it atomically (no interleaving with other messages on the same connection).
type transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(line []byte) error
	Close() error
	RemoteAddr() string
}

// Client is one session: one accepted connection plus its identity and login
// state.
//
// Two goroutines are spawned per client:
//
//	readPump  – decodes inbound messages and forwards them to the Hub.
//	writePump – drains the send channel onto the transport.
//
// The split keeps reads and writes independent, so a peer that stops reading
// can never stall the delivery loop of a broadcast.
//
// The identity fields (account, name, loggedIn) and the room memberships in
// the Registry are owned by the hub goroutine; nothing else touches them.
type Client struct {
	id   string // session id, stable for the connection's lifetime
	hub  *Hub
	tr   transport
	send chan []byte // outbound newline-terminated JSON lines

	closing   chan struct{}
	closeOnce sync.Once

	// Hub-owned session state.
	account  string
	name     string // display name; defaults to account at login
	loggedIn bool
}

func newClient(hub *Hub, tr transport) *Client {
	return &Client{
		id:      uuid.NewString(),
		hub:     hub,
		tr:      tr,
		send:    make(chan []byte, sendBufSize),
		closing: make(chan struct{}),
	}
}

// close shuts the transport down and releases writePump.  Safe to call any
// number of times from any goroutine; the hub-side state cleanup is guarded
// separately by the session table.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.closing)
		c.tr.Close()
	})
}

// enqueue offers a line to the send channel without blocking.  It reports
// false when the client is closing or its buffer is full (a stuck peer);
// the caller decides whether that cuts the client.
func (c *Client) enqueue(line []byte) bool {
	select {
	case <-c.closing:
		return false
	default:
	}
	select {
	case c.send <- line:
		return true
	default:
		return false
	}
}

// readPump reads messages off the transport, decodes each one, and hands the
// request to the hub.  A line that fails to decode gets a system reply to
// this client only; the connection stays open and the remaining buffered
// data is processed.  When the transport errors the client is unregistered,
// which runs the disconnect cleanup exactly once.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.close()
	}()

	for {
		line, err := c.tr.ReadMessage()
		if err != nil {
			return
		}
		req, err := protocol.DecodeRequest(line)
		if err != nil {
			c.enqueue(protocol.System("", err.Error()))
			continue
		}
		select {
		case c.hub.inbound <- inbound{c: c, req: req}:
		case <-c.hub.done:
			return
		}
	}
}

// writePump drains the send channel onto the transport.  It is the only
// writer for the connection, which makes each message's bytes atomic on the
// wire.
func (c *Client) writePump() {
	defer c.close()

	for {
		select {
		case line := <-c.send:
			if err := c.tr.WriteMessage(line); err != nil {
				return
			}
		case <-c.closing:
			return
		}
	}
}

// ---------------------------------------------------------------------------
// TCP transport
// ---------------------------------------------------------------------------

// tcpTransport frames a raw stream into newline-delimited messages.
type tcpTransport struct {
	conn net.Conn
	fr   protocol.Framer
	rbuf []byte
}

func newTCPTransport(conn net.Conn) *tcpTransport {
	return &tcpTransport{conn: conn, rbuf: make([]byte, 4096)}
}

func (t *tcpTransport) ReadMessage() ([]byte, error) {
	for {
		if line, ok := t.fr.Next(); ok {
			return line, nil
		}
		// No idle deadline: an unauthenticated connection may sit forever.
		n, err := t.conn.Read(t.rbuf)
		if n > 0 {
			t.fr.Feed(t.rbuf[:n])
		}
		if err != nil {
			return nil, err
		}
	}
}

func (t *tcpTransport) WriteMessage(line []byte) error {
	t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := t.conn.Write(line)
	return err
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

func (t *tcpTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

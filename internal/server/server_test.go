package server

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"chatroom/internal/protocol"
)

func startServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := New()
	go srv.Serve(ln)
	t.Cleanup(srv.Shutdown)
	return ln.Addr().String()
}

// testConn is one client connection speaking the line protocol.
type testConn struct {
	t    *testing.T
	conn net.Conn
	sc   *bufio.Scanner
}

func dialServer(t *testing.T, addr string) *testConn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testConn{t: t, conn: conn, sc: bufio.NewScanner(conn)}
}

func (c *testConn) sendRaw(line string) {
	c.t.Helper()
	if _, err := c.conn.Write([]byte(line)); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *testConn) send(req protocol.Request) {
	c.t.Helper()
	if _, err := c.conn.Write(protocol.EncodeRequest(req)); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

// expect reads the next event and fails unless it has the given type.
func (c *testConn) expect(typ string) protocol.Event {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if !c.sc.Scan() {
		c.t.Fatalf("waiting for %q: connection closed or timed out: %v", typ, c.sc.Err())
	}
	var ev protocol.Event
	if err := json.Unmarshal(c.sc.Bytes(), &ev); err != nil {
		c.t.Fatalf("bad event line %q: %v", c.sc.Bytes(), err)
	}
	if ev.Type != typ {
		c.t.Fatalf("expected %q event, got %#v", typ, ev)
	}
	return ev
}

func (c *testConn) login(account string) {
	c.t.Helper()
	c.send(protocol.Login{Account: account, Password: "pw"})
	c.expect(protocol.TypeLoginOK)
	c.expect(protocol.TypeRoomList)
}

func TestEndToEndScenario(t *testing.T) {
	addr := startServer(t)

	alice := dialServer(t, addr)
	alice.send(protocol.Login{Account: "alice", Password: "pw"})
	ev := alice.expect(protocol.TypeLoginOK)
	if ev.Name != "alice" {
		t.Fatalf("login_ok name = %q", ev.Name)
	}
	ev = alice.expect(protocol.TypeRoomList)
	if len(ev.Rooms) != 0 {
		t.Fatalf("initial room list = %v", ev.Rooms)
	}

	alice.send(protocol.CreateRoom{Room: "general"})
	alice.expect(protocol.TypeCreateRoomOK)
	alice.expect(protocol.TypeRoomList)

	bob := dialServer(t, addr)
	bob.send(protocol.Login{Account: "bob", Password: "pw"})
	bob.expect(protocol.TypeLoginOK)
	ev = bob.expect(protocol.TypeRoomList)
	if len(ev.Rooms) != 1 || ev.Rooms[0] != "general" {
		t.Fatalf("bob's room list = %v", ev.Rooms)
	}

	alice.send(protocol.JoinRoom{Room: "general"})
	alice.expect(protocol.TypeJoinRoomOK)
	alice.expect(protocol.TypeSystem) // alice joined the room

	bob.send(protocol.JoinRoom{Room: "general"})
	bob.expect(protocol.TypeJoinRoomOK)
	bob.expect(protocol.TypeSystem)
	alice.expect(protocol.TypeSystem) // bob joined the room

	alice.send(protocol.Chat{Room: "general", Message: "hi"})
	for _, c := range []*testConn{alice, bob} {
		ev := c.expect(protocol.TypeChat)
		if ev.Room != "general" || ev.From != "alice" || ev.Message != "hi" {
			t.Fatalf("chat event = %#v", ev)
		}
		if !chatTimeRe.MatchString(ev.Time) {
			t.Fatalf("chat time = %q", ev.Time)
		}
	}

	// bob drops the connection; alice hears the departure and the room
	// survives with her in it.
	bob.conn.Close()
	ev = alice.expect(protocol.TypeSystem)
	if ev.Room != "general" || ev.Message != "bob left the room" {
		t.Fatalf("departure event = %#v", ev)
	}

	alice.send(protocol.Chat{Room: "general", Message: "still here"})
	if ev := alice.expect(protocol.TypeChat); ev.Message != "still here" {
		t.Fatalf("chat after departure = %#v", ev)
	}
}

func TestMalformedLinesKeepConnectionOpen(t *testing.T) {
	addr := startServer(t)
	c := dialServer(t, addr)

	c.sendRaw("this is not json\n")
	c.expect(protocol.TypeSystem)

	c.sendRaw("[1,2,3]\n")
	c.expect(protocol.TypeSystem)

	c.sendRaw(`{"type":"no_such_request"}` + "\n")
	c.expect(protocol.TypeSystem)

	// Blank lines are discarded without a reply, and the connection still
	// works afterwards.
	c.sendRaw("\n   \n")
	c.login("alice")
}

func TestRequestSplitAcrossWrites(t *testing.T) {
	addr := startServer(t)
	c := dialServer(t, addr)

	c.sendRaw(`{"type":"login","acc`)
	time.Sleep(20 * time.Millisecond)
	c.sendRaw(`ount":"alice","pass`)
	time.Sleep(20 * time.Millisecond)
	c.sendRaw("word\":\"pw\"}\n")

	c.expect(protocol.TypeLoginOK)
	c.expect(protocol.TypeRoomList)
}

func TestTwoRequestsInOneWrite(t *testing.T) {
	addr := startServer(t)
	c := dialServer(t, addr)

	c.sendRaw(`{"type":"login","account":"alice","password":"pw"}` + "\n" +
		`{"type":"create_room","room":"general"}` + "\n")

	c.expect(protocol.TypeLoginOK)
	c.expect(protocol.TypeRoomList)
	c.expect(protocol.TypeCreateRoomOK)
	c.expect(protocol.TypeRoomList)
}

func TestLoginFailThenRetry(t *testing.T) {
	addr := startServer(t)
	c := dialServer(t, addr)

	c.send(protocol.Login{Account: "alice", Password: ""})
	c.expect(protocol.TypeLoginFail)

	c.login("alice")
}

func TestUnauthenticatedOverWire(t *testing.T) {
	addr := startServer(t)
	c := dialServer(t, addr)

	c.send(protocol.JoinRoom{Room: "general"})
	ev := c.expect(protocol.TypeSystem)
	if ev.Message != "you must log in first" {
		t.Fatalf("system message = %q", ev.Message)
	}
}

func TestRoomListAfterLastLeave(t *testing.T) {
	addr := startServer(t)

	alice := dialServer(t, addr)
	alice.login("alice")
	bob := dialServer(t, addr)
	bob.login("bob")

	alice.send(protocol.CreateRoom{Room: "x"})
	alice.expect(protocol.TypeCreateRoomOK)
	alice.expect(protocol.TypeRoomList)
	bob.expect(protocol.TypeRoomList)

	alice.send(protocol.JoinRoom{Room: "x"})
	alice.expect(protocol.TypeJoinRoomOK)
	alice.expect(protocol.TypeSystem)

	alice.send(protocol.LeaveRoom{Room: "x"})
	ev := alice.expect(protocol.TypeRoomList)
	if len(ev.Rooms) != 0 {
		t.Fatalf("room list after last leave = %v", ev.Rooms)
	}
	ev = bob.expect(protocol.TypeRoomList)
	if len(ev.Rooms) != 0 {
		t.Fatalf("bob's room list after last leave = %v", ev.Rooms)
	}

	bob.send(protocol.JoinRoom{Room: "x"})
	bob.expect(protocol.TypeJoinRoomFail)
}

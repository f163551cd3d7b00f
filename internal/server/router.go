package server

import (
	"strings"
	"time"

	"chatroom/internal/protocol"
)

// Router is the protocol state machine: it checks each request against the
// sender's session state and the Registry, applies the mutation, and emits
// the replies and broadcasts the request calls for.  All of it runs on the
// hub goroutine.
//
// Every request except chat produces a direct reply to the sender; chat has
// no acknowledgment beyond the broadcast itself, which includes the sender
// (a member of the room) as a recipient.
type Router struct {
	registry *Registry
	bcast    *Broadcaster
}

// Handle dispatches one decoded request from c.
func (rt *Router) Handle(c *Client, req protocol.Request) {
	// login is the one request accepted before authentication.  A second
	// login on an authenticated session re-sets the identity and answers
	// again; room memberships are untouched.
	if login, ok := req.(protocol.Login); ok {
		rt.login(c, login)
		return
	}
	if !c.loggedIn {
		rt.bcast.SendTo(c, protocol.System("", "you must log in first"))
		return
	}

	switch r := req.(type) {
	case protocol.CreateRoom:
		rt.createRoom(c, r)
	case protocol.JoinRoom:
		rt.joinRoom(c, r)
	case protocol.LeaveRoom:
		rt.leaveRoom(c, r)
	case protocol.Chat:
		rt.chat(c, r)
	}
}

func (rt *Router) login(c *Client, r protocol.Login) {
	if r.Account == "" || isBlank(r.Password) {
		rt.bcast.SendTo(c, protocol.LoginFail("account and password must not be empty"))
		return
	}
	c.account = r.Account
	c.name = r.Name
	if c.name == "" {
		c.name = r.Account
	}
	c.loggedIn = true

	rt.bcast.SendTo(c, protocol.LoginOK(c.name))
	rt.bcast.SendTo(c, protocol.RoomList(rt.registry.Rooms()))
}

func (rt *Router) createRoom(c *Client, r protocol.CreateRoom) {
	if r.Room == "" {
		rt.bcast.SendTo(c, protocol.CreateRoomFail("room name must not be empty"))
		return
	}
	if !rt.registry.Create(r.Room) {
		rt.bcast.SendTo(c, protocol.CreateRoomFail("room already exists"))
		return
	}
	// The creator is not a member until it joins like everyone else.
	rt.bcast.SendTo(c, protocol.CreateRoomOK(r.Room))
	rt.bcast.ToAuthenticated(protocol.RoomList(rt.registry.Rooms()))
}

func (rt *Router) joinRoom(c *Client, r protocol.JoinRoom) {
	already, ok := rt.registry.Join(c.id, r.Room)
	if !ok {
		rt.bcast.SendTo(c, protocol.JoinRoomFail("room does not exist"))
		return
	}
	if already {
		rt.bcast.SendTo(c, protocol.JoinRoomOK(r.Room, "already in room"))
		return
	}
	rt.bcast.SendTo(c, protocol.JoinRoomOK(r.Room, "joined room"))
	rt.bcast.ToRoom(r.Room, protocol.System(r.Room, c.name+" joined the room"))
}

func (rt *Router) chat(c *Client, r protocol.Chat) {
	if !rt.registry.IsMember(c.id, r.Room) {
		rt.bcast.SendTo(c, protocol.System("", "you are not in that room"))
		return
	}
	rt.bcast.ToRoom(r.Room, protocol.ChatEvent(r.Room, c.name, r.Message, time.Now()))
}

func (rt *Router) leaveRoom(c *Client, r protocol.LeaveRoom) {
	left, deleted := rt.registry.Leave(c.id, r.Room)
	if !left {
		// Unknown room or not a member: benign no-op, no reply.
		return
	}
	rt.bcast.ToRoom(r.Room, protocol.System(r.Room, c.name+" left the room"))
	if deleted {
		rt.bcast.ToAuthenticated(protocol.RoomList(rt.registry.Rooms()))
	}
}

// Disconnect runs the transport-close path: announce the departure to every
// room the session belonged to, then remove all its memberships.  A room-list
// update goes out only when a room was actually deleted.  Called by the hub
// after the session left the table, so none of the broadcasts reach c itself.
func (rt *Router) Disconnect(c *Client) {
	for _, room := range rt.registry.RoomsOf(c.id) {
		rt.bcast.ToRoom(room, protocol.System(room, c.name+" left the room"))
	}
	if deleted := rt.registry.RemoveSession(c.id); len(deleted) > 0 {
		rt.bcast.ToAuthenticated(protocol.RoomList(rt.registry.Rooms()))
	}
}

// isBlank reports whether s is empty after trimming surrounding whitespace.
// Passwords are carried verbatim but validated in trimmed form.
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

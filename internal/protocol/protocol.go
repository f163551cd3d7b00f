// Package protocol defines the wire format for all client-server
// communication: UTF-8 text, one JSON object per line, terminated by a
// single '\n'.  Every object carries a "type" field selecting its schema;
// unknown fields are ignored by the receiver.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Request type names (client → server).
const (
	TypeLogin      = "login"
	TypeCreateRoom = "create_room"
	TypeJoinRoom   = "join_room"
	TypeLeaveRoom  = "leave_room"
	TypeChat       = "chat"
)

// Event type names (server → client).
const (
	TypeLoginOK        = "login_ok"
	TypeLoginFail      = "login_fail"
	TypeCreateRoomOK   = "create_room_ok"
	TypeCreateRoomFail = "create_room_fail"
	TypeJoinRoomOK     = "join_room_ok"
	TypeJoinRoomFail   = "join_room_fail"
	TypeRoomList       = "room_list"
	TypeSystem         = "system"
)

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// Request is the closed set of inbound message kinds.  DecodeRequest returns
// exactly one of Login, CreateRoom, JoinRoom, LeaveRoom, or Chat, so the
// router can switch over them exhaustively.
type Request interface {
	isRequest()
}

// Login authenticates the session.  Name is optional and defaults to Account.
type Login struct {
	Account  string
	Password string
	Name     string
}

// CreateRoom registers a new room name.  The creator does not join it.
type CreateRoom struct {
	Room string
}

// JoinRoom adds the session to an existing room.
type JoinRoom struct {
	Room string
}

// LeaveRoom removes the session from a room it is a member of.
type LeaveRoom struct {
	Room string
}

// Chat sends a message to every member of a room the sender has joined.
type Chat struct {
	Room    string
	Message string
}

func (Login) isRequest()      {}
func (CreateRoom) isRequest() {}
func (JoinRoom) isRequest()   {}
func (LeaveRoom) isRequest()  {}
func (Chat) isRequest()       {}

// rawRequest is the superset of all request fields; DecodeRequest unmarshals
// into it once and narrows by Type.
type rawRequest struct {
	Type     string `json:"type"`
	Account  string `json:"account,omitempty"`
	Password string `json:"password,omitempty"`
	Name     string `json:"name,omitempty"`
	Room     string `json:"room,omitempty"`
	Message  string `json:"message,omitempty"`
}

// DecodeRequest parses one line into a Request.  Invalid JSON, a non-object
// line, and an unrecognised "type" are all decode errors; the caller reports
// them to the sender and keeps the connection open.  Room names, accounts,
// and display names are trimmed of surrounding whitespace here so every later
// comparison is exact-string.
func DecodeRequest(line []byte) (Request, error) {
	var raw rawRequest
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("invalid message format")
	}

	switch raw.Type {
	case TypeLogin:
		return Login{
			Account:  strings.TrimSpace(raw.Account),
			Password: raw.Password,
			Name:     strings.TrimSpace(raw.Name),
		}, nil
	case TypeCreateRoom:
		return CreateRoom{Room: strings.TrimSpace(raw.Room)}, nil
	case TypeJoinRoom:
		return JoinRoom{Room: strings.TrimSpace(raw.Room)}, nil
	case TypeLeaveRoom:
		return LeaveRoom{Room: strings.TrimSpace(raw.Room)}, nil
	case TypeChat:
		return Chat{Room: strings.TrimSpace(raw.Room), Message: raw.Message}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", raw.Type)
	}
}

// EncodeRequest serialises a Request as a newline-terminated JSON line.
// Used by clients; the server only decodes requests.
func EncodeRequest(req Request) []byte {
	var raw rawRequest
	switch r := req.(type) {
	case Login:
		raw = rawRequest{Type: TypeLogin, Account: r.Account, Password: r.Password, Name: r.Name}
	case CreateRoom:
		raw = rawRequest{Type: TypeCreateRoom, Room: r.Room}
	case JoinRoom:
		raw = rawRequest{Type: TypeJoinRoom, Room: r.Room}
	case LeaveRoom:
		raw = rawRequest{Type: TypeLeaveRoom, Room: r.Room}
	case Chat:
		raw = rawRequest{Type: TypeChat, Room: r.Room, Message: r.Message}
	}
	return encodeLine(raw)
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

// Event is the generic server → client message.  Clients unmarshal every line
// into it and switch on Type; fields not used by a given type stay empty.
type Event struct {
	Type    string   `json:"type"`
	Room    string   `json:"room,omitempty"`
	From    string   `json:"from,omitempty"`
	Name    string   `json:"name,omitempty"`
	Message string   `json:"message,omitempty"`
	Time    string   `json:"time,omitempty"`
	Rooms   []string `json:"rooms,omitempty"`
}

// ChatTimeLayout is the wall-clock format of the chat "time" field.
const ChatTimeLayout = "15:04:05"

// LoginOK acknowledges a successful login with the effective display name.
func LoginOK(name string) []byte {
	return encodeLine(Event{Type: TypeLoginOK, Message: "login successful", Name: name})
}

// LoginFail rejects a login attempt; the session may retry.
func LoginFail(msg string) []byte {
	return encodeLine(Event{Type: TypeLoginFail, Message: msg})
}

// CreateRoomOK acknowledges room creation to the creator.
func CreateRoomOK(room string) []byte {
	return encodeLine(Event{Type: TypeCreateRoomOK, Room: room, Message: "room created"})
}

// CreateRoomFail rejects a create_room request.
func CreateRoomFail(msg string) []byte {
	return encodeLine(Event{Type: TypeCreateRoomFail, Message: msg})
}

// JoinRoomOK acknowledges a join_room request.
func JoinRoomOK(room, msg string) []byte {
	return encodeLine(Event{Type: TypeJoinRoomOK, Room: room, Message: msg})
}

// JoinRoomFail rejects a join_room request.
func JoinRoomFail(msg string) []byte {
	return encodeLine(Event{Type: TypeJoinRoomFail, Message: msg})
}

// RoomList carries the complete set of existing room names.  Pushed right
// after login and to every authenticated session whenever the room set
// changes.
func RoomList(rooms []string) []byte {
	if rooms == nil {
		rooms = []string{}
	}
	// Not an Event: the rooms array must be present even when empty.
	return encodeLine(struct {
		Type  string   `json:"type"`
		Rooms []string `json:"rooms"`
	}{TypeRoomList, rooms})
}

// ChatEvent is the broadcast form of a chat message.
func ChatEvent(room, from, message string, at time.Time) []byte {
	return encodeLine(Event{
		Type:    TypeChat,
		Room:    room,
		From:    from,
		Message: message,
		Time:    at.Format(ChatTimeLayout),
	})
}

// System is a server notice.  Room is empty for session-level notices such as
// protocol errors and non-empty for room events ("X joined", "X left").
func System(room, msg string) []byte {
	return encodeLine(Event{Type: TypeSystem, Room: room, Message: msg})
}

func encodeLine(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Only reachable with a broken schema type; nothing dynamic here can
		// fail to marshal.
		panic(err)
	}
	return append(data, '\n')
}

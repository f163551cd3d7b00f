package server

import "sort"

// Registry owns the room → members mapping.  It keeps two maps in lockstep:
//
//	rooms   – room name → set of session ids (the authority for membership)
//	joined  – session id → set of room names (back-reference for cleanup)
//
// Both are keyed by plain identifiers, never by object references, so
// removing a session is pure set arithmetic.
//
// Invariant: a room exists iff it has at least one member.  Every mutation
// that can empty a room deletes it in the same step, so no caller can ever
// observe an empty-but-present room.  Exception: Create registers a room
// with no members; its creator is expected to be its first joiner, and until
// someone joins, the first Leave or RemoveSession cannot touch it — the room
// survives exactly as the room list advertised it.
//
// Registry is not safe for concurrent use.  Every call happens on the hub
// goroutine, which is what makes compound operations (exists+join,
// empty+delete) atomic.
type Registry struct {
	rooms  map[string]map[string]struct{}
	joined map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]map[string]struct{}),
		joined: make(map[string]map[string]struct{}),
	}
}

// Create registers room if it does not already exist.  Returns false when
// the name is taken.
func (r *Registry) Create(room string) bool {
	if _, exists := r.rooms[room]; exists {
		return false
	}
	r.rooms[room] = make(map[string]struct{})
	return true
}

// Exists reports whether room is registered.
func (r *Registry) Exists(room string) bool {
	_, ok := r.rooms[room]
	return ok
}

// Join adds the session to room.  ok is false when the room does not exist;
// already is true when the session was a member before the call (joining
// twice is a no-op success).
func (r *Registry) Join(id, room string) (already, ok bool) {
	members, exists := r.rooms[room]
	if !exists {
		return false, false
	}
	if _, in := members[id]; in {
		return true, true
	}
	members[id] = struct{}{}
	set, ok := r.joined[id]
	if !ok {
		set = make(map[string]struct{})
		r.joined[id] = set
	}
	set[room] = struct{}{}
	return false, true
}

// Leave removes the session from room.  left is false when the room does not
// exist or the session was not a member (idempotent no-op); deleted is true
// when the session was the last member and the room is gone.
func (r *Registry) Leave(id, room string) (left, deleted bool) {
	members, exists := r.rooms[room]
	if !exists {
		return false, false
	}
	if _, in := members[id]; !in {
		return false, false
	}
	delete(members, id)
	delete(r.joined[id], room)
	if len(r.joined[id]) == 0 {
		delete(r.joined, id)
	}
	if len(members) == 0 {
		delete(r.rooms, room)
		return true, true
	}
	return true, false
}

// RemoveSession removes the session from every room it belongs to and
// returns the names of rooms deleted because it was their last member.
// Iterates the session's own room set, never the whole registry.
func (r *Registry) RemoveSession(id string) (deleted []string) {
	for room := range r.joined[id] {
		members := r.rooms[room]
		delete(members, id)
		if len(members) == 0 {
			delete(r.rooms, room)
			deleted = append(deleted, room)
		}
	}
	delete(r.joined, id)
	return deleted
}

// IsMember reports whether the session currently belongs to room.
func (r *Registry) IsMember(id, room string) bool {
	_, in := r.rooms[room][id]
	return in
}

// Members returns a snapshot of room's member session ids.
func (r *Registry) Members(room string) []string {
	members := r.rooms[room]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// RoomsOf returns a snapshot of the rooms the session belongs to.
func (r *Registry) RoomsOf(id string) []string {
	set := r.joined[id]
	out := make([]string, 0, len(set))
	for room := range set {
		out = append(out, room)
	}
	return out
}

// Rooms returns all existing room names, sorted, for room_list replies.
func (r *Registry) Rooms() []string {
	out := make([]string, 0, len(r.rooms))
	for room := range r.rooms {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

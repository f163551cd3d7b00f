package server

import "log"

// Broadcaster fans outbound lines out to sessions.  Delivery is best-effort
// and isolated per recipient: a peer whose send buffer is full or whose
// connection is closing is cut and cleaned up, and the loop moves on to the
// remaining recipients.  All methods run on the hub goroutine.
type Broadcaster struct {
	hub *Hub
}

// SendTo queues line for one session.  A recipient that cannot accept it is
// treated as dead: the failure is logged and the session's disconnect
// cleanup runs, without affecting anyone else.
func (b *Broadcaster) SendTo(c *Client, line []byte) {
	if c.enqueue(line) {
		return
	}
	log.Printf("[broadcast] dropping unresponsive session %s (%s)", c.id, c.name)
	b.hub.drop(c)
}

// ToRoom delivers line to every current member of room.  The member set is
// snapshotted first, so a membership change triggered mid-fan-out (a cut
// recipient leaving its rooms) does not disturb the iteration.
func (b *Broadcaster) ToRoom(room string, line []byte) {
	for _, id := range b.hub.registry.Members(room) {
		if c, ok := b.hub.sessions[id]; ok {
			b.SendTo(c, line)
		}
	}
}

// ToAuthenticated delivers line to every logged-in session; used for
// room-list updates.
func (b *Broadcaster) ToAuthenticated(line []byte) {
	targets := make([]*Client, 0, len(b.hub.sessions))
	for _, c := range b.hub.sessions {
		if c.loggedIn {
			targets = append(targets, c)
		}
	}
	for _, c := range targets {
		b.SendTo(c, line)
	}
}

package app

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avelis/notedrop/internal/core"
	"github.com/avelis/notedrop/internal/domain"
)

// Coordinator bridges inbound connection commands to the room store
// and fans the resulting snapshots and messages back out to every
// connection bound to the affected room. It never holds room state of
// its own; the store is the single source of truth, and broadcasting
// happens strictly after the mutation completed, from the snapshot
// captured at mutation time.
//
// mu serializes each command's mutation together with its fanout, so
// the order of frames any one participant observes matches the order
// in which mutations were applied to its room. TrySend never blocks,
// which makes holding mu across the fanout safe: no network I/O ever
// happens under it.
type Coordinator struct {
	Registry *Registry
	Rooms    *RoomStore
	Policy   Policy

	mu sync.Mutex
}

func NewCoordinator(registry *Registry, rooms *RoomStore) *Coordinator {
	return &Coordinator{
		Registry: registry,
		Rooms:    rooms,
		Policy:   SimplePolicy{},
	}
}

// Create makes a new room with conn as its sole participant and sends
// the first snapshot to the caller.
func (c *Coordinator) Create(conn domain.ConnID, name string) (domain.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, err := c.Rooms.Create(conn, name)
	if err != nil {
		return domain.Room{}, err
	}
	c.broadcast(snap, core.NewRoomUpdated(snap))
	return snap, nil
}

// Join adds conn to an existing room. Every current member, the joiner
// included, receives the updated snapshot so existing members see the
// new arrival.
func (c *Coordinator) Join(conn domain.ConnID, roomID domain.RoomID, name string) (domain.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, err := c.Rooms.Join(roomID, conn, name)
	if err != nil {
		return domain.Room{}, err
	}
	c.broadcast(snap, core.NewRoomUpdated(snap))
	return snap, nil
}

// Rejoin rebinds a reconnecting participant to its room, best effort.
// A miss is silently ignored: the peer may already be gone for good,
// and there is nothing useful to tell the caller.
func (c *Coordinator) Rejoin(conn domain.ConnID, roomID domain.RoomID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.Rooms.Rejoin(roomID, conn, name)
	if !ok {
		log.Debug().Str("module", "app.coordinator").Str("room", string(roomID)).Str("name", name).Msg("nothing to rejoin")
		return
	}
	c.broadcast(snap, core.NewRoomUpdated(snap))
}

// Send routes a message to everyone in the sender's room, the sender
// included; the client is responsible for filtering its own echo. An
// unbound sender is a silent drop, not an error: the UI may race ahead
// of connection state.
func (c *Coordinator) Send(conn domain.ConnID, kind domain.MessageKind, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, sender, ok := c.Rooms.Locate(conn)
	if !ok {
		log.Debug().Str("module", "app.coordinator").Str("conn", string(conn)).Msg("send from unbound connection dropped")
		return
	}
	msg := domain.Message{
		Kind:       kind,
		Content:    content,
		SenderName: sender,
		Timestamp:  time.Now(),
	}
	c.broadcast(snap, core.NewMessageReceived(msg))
}

// Disconnect removes conn from its room and tells whoever remains. An
// emptied room gets no broadcast, nobody is left to receive it; the
// store's expiry timer takes over from there.
func (c *Coordinator) Disconnect(conn domain.ConnID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.Registry.Unbind(conn)
	snap, ok := c.Rooms.Leave(conn)
	if !ok {
		return
	}
	if len(snap.Participants) == 0 {
		return
	}
	c.broadcast(snap, core.NewRoomUpdated(snap))
}

// broadcast fans an event out to the connections named in the
// snapshot. It runs without any store lock held and never blocks on a
// slow socket: TrySend either queues or fails, and backpressure is
// delegated to the policy.
func (c *Coordinator) broadcast(snap domain.Room, v any) {
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("broadcast marshal")
		return
	}
	for _, p := range snap.Participants {
		conn, ok := c.Registry.Get(p.ConnID)
		if !ok {
			continue
		}
		if err := conn.TrySend(frame); err == nil {
			continue
		}
		log.Warn().Str("module", "app.coordinator").Str("conn", string(p.ConnID)).Msg("broadcast backpressure")
		if c.Policy != nil && c.Policy.OnBackpressure(p.ConnID) == KickConn {
			c.Registry.Cancel(p.ConnID)
		}
	}
}

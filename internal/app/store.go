package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avelis/notedrop/internal/core"
	"github.com/avelis/notedrop/internal/domain"
)

// roomState is the store-private mutable form of a room. Everything
// handed out of the store is a value copy built by snapshotLocked.
type roomState struct {
	id              domain.RoomID
	createdAt       time.Time
	participants    []domain.Participant
	pendingDeletion bool
}

// RoomStore is the single owner of all room and participant records.
// Every mutation runs under one mutex, so no caller ever observes a
// partially applied membership change. The reverse index byConn is
// maintained transactionally with the forward map.
type RoomStore struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]*roomState
	byConn map[domain.ConnID]domain.RoomID

	capacity int
	ttl      time.Duration
}

func NewRoomStore(capacity int, ttl time.Duration) *RoomStore {
	return &RoomStore{
		rooms:    make(map[domain.RoomID]*roomState),
		byConn:   make(map[domain.ConnID]domain.RoomID),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Create allocates a room with the caller as its sole participant.
func (s *RoomStore) Create(conn domain.ConnID, name string) (domain.Room, error) {
	if err := domain.ValidateDisplayName(name); err != nil {
		return domain.Room{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byConn[conn]; ok {
		return domain.Room{}, domain.ErrAlreadyBound
	}

	id := domain.NewRoomID()
	for {
		if _, taken := s.rooms[id]; !taken {
			break
		}
		id = domain.NewRoomID()
	}

	st := &roomState{
		id:           id,
		createdAt:    time.Now(),
		participants: []domain.Participant{{ConnID: conn, DisplayName: name}},
	}
	s.rooms[id] = st
	s.byConn[conn] = id
	log.Info().Str("module", "app.store").Str("room", string(id)).Str("name", name).Msg("room created")
	return snapshotLocked(st), nil
}

// Join appends a participant to an existing room.
func (s *RoomStore) Join(roomID domain.RoomID, conn domain.ConnID, name string) (domain.Room, error) {
	if err := domain.ValidateDisplayName(name); err != nil {
		return domain.Room{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byConn[conn]; ok {
		return domain.Room{}, domain.ErrAlreadyBound
	}
	st, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	for _, p := range st.participants {
		if p.DisplayName == name {
			return domain.Room{}, domain.ErrNameTaken
		}
	}
	if len(st.participants) >= s.capacity {
		return domain.Room{}, domain.ErrRoomFull
	}

	st.participants = append(st.participants, domain.Participant{ConnID: conn, DisplayName: name})
	st.pendingDeletion = false
	s.byConn[conn] = roomID
	log.Info().Str("module", "app.store").Str("room", string(roomID)).Str("name", name).Msg("participant joined")
	return snapshotLocked(st), nil
}

// Rejoin rebinds an existing participant to a new connection identity.
// When the name is no longer present (the peer fully disconnected and
// was removed) but the room is still alive, the participant is
// re-admitted so a reconnect within the expiry window keeps the room.
// A missing room or a full room makes this a no-op, never an error:
// a rejoin may race with the peer having already left for good.
func (s *RoomStore) Rejoin(roomID domain.RoomID, conn domain.ConnID, name string) (domain.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, false
	}
	bound, isBound := s.byConn[conn]
	if isBound && bound != roomID {
		return domain.Room{}, false
	}

	for i := range st.participants {
		if st.participants[i].DisplayName != name {
			continue
		}
		old := st.participants[i].ConnID
		if old != conn {
			// A connection that already holds a slot in this room
			// cannot take over a peer's slot as well: one connection,
			// one participant.
			if isBound {
				return domain.Room{}, false
			}
			delete(s.byConn, old)
			st.participants[i].ConnID = conn
			s.byConn[conn] = roomID
		}
		st.pendingDeletion = false
		log.Info().Str("module", "app.store").Str("room", string(roomID)).Str("name", name).Msg("participant rebound")
		return snapshotLocked(st), true
	}

	// Same rule for re-admission: a bound connection already occupies
	// its one slot under some other name.
	if isBound || len(st.participants) >= s.capacity {
		return domain.Room{}, false
	}
	st.participants = append(st.participants, domain.Participant{ConnID: conn, DisplayName: name})
	st.pendingDeletion = false
	s.byConn[conn] = roomID
	log.Info().Str("module", "app.store").Str("room", string(roomID)).Str("name", name).Msg("participant readmitted")
	return snapshotLocked(st), true
}

// Leave removes the participant bound to conn, wherever it is. The
// returned snapshot is what remains; ok is false when conn was not in
// any room. Emptying a room schedules deferred deletion.
func (s *RoomStore) Leave(conn domain.ConnID) (domain.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roomID, ok := s.byConn[conn]
	if !ok {
		return domain.Room{}, false
	}
	delete(s.byConn, conn)
	st, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, false
	}
	for i := range st.participants {
		if st.participants[i].ConnID == conn {
			st.participants = append(st.participants[:i], st.participants[i+1:]...)
			break
		}
	}
	log.Info().Str("module", "app.store").Str("room", string(roomID)).Str("conn", string(conn)).Msg("participant left")

	if len(st.participants) == 0 {
		st.pendingDeletion = true
		time.AfterFunc(s.ttl, func() { s.expire(roomID) })
		log.Info().Str("module", "app.store").Str("room", string(roomID)).Dur("ttl", s.ttl).Msg("room empty, deletion scheduled")
	}
	return snapshotLocked(st), true
}

// expire is the deferred-deletion callback. It decides on the live
// state, never on the state captured when the timer was scheduled: a
// room repopulated in the interim survives, and firing on an already
// deleted room is a no-op.
func (s *RoomStore) expire(roomID domain.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rooms[roomID]
	if !ok {
		return
	}
	if len(st.participants) > 0 || !st.pendingDeletion {
		return
	}
	delete(s.rooms, roomID)
	log.Info().Str("module", "app.store").Str("room", string(roomID)).Msg("empty room expired")
}

// Locate resolves the room a connection belongs to together with its
// display name, in a single acquisition so a concurrent leave cannot
// slip between the route lookup and the snapshot.
func (s *RoomStore) Locate(conn domain.ConnID) (domain.Room, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roomID, ok := s.byConn[conn]
	if !ok {
		return domain.Room{}, "", false
	}
	st, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, "", false
	}
	name := ""
	for _, p := range st.participants {
		if p.ConnID == conn {
			name = p.DisplayName
			break
		}
	}
	return snapshotLocked(st), name, true
}

// RoomOf resolves which room a connection currently belongs to.
func (s *RoomStore) RoomOf(conn domain.ConnID) (domain.RoomID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roomID, ok := s.byConn[conn]
	return roomID, ok
}

// Snapshot returns the current membership of a room.
func (s *RoomStore) Snapshot(roomID domain.RoomID) (domain.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, false
	}
	return snapshotLocked(st), true
}

// Infos lists all live rooms for the diagnostics API.
func (s *RoomStore) Infos() []core.RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(s.rooms))
	for id, st := range s.rooms {
		out = append(out, core.RoomInfo{
			Room:         id,
			CreatedAt:    st.createdAt.UnixMilli(),
			Participants: len(st.participants),
		})
	}
	return out
}

func (s *RoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

func snapshotLocked(st *roomState) domain.Room {
	snap := domain.Room{
		ID:           st.id,
		CreatedAt:    st.createdAt,
		Participants: make([]domain.Participant, len(st.participants)),
	}
	copy(snap.Participants, st.participants)
	return snap
}

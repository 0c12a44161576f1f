package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelis/notedrop/internal/domain"
)

func newTestStore(ttl time.Duration) *RoomStore {
	return NewRoomStore(2, ttl)
}

func TestCreateValidatesName(t *testing.T) {
	s := newTestStore(time.Hour)

	_, err := s.Create("c1", "")
	assert.ErrorIs(t, err, domain.ErrNameInvalid)

	_, err = s.Create("c1", "   ")
	assert.ErrorIs(t, err, domain.ErrNameInvalid)

	long := make([]byte, domain.MaxDisplayNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = s.Create("c1", string(long))
	assert.ErrorIs(t, err, domain.ErrNameInvalid)

	assert.Equal(t, 0, s.Len())
}

func TestCreateAndJoin(t *testing.T) {
	s := newTestStore(time.Hour)

	snap, err := s.Create("x", "Ana")
	require.NoError(t, err)
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, "Ana", snap.Participants[0].DisplayName)
	assert.False(t, snap.CreatedAt.IsZero())

	_, err = s.Join(snap.ID, "y", "Ana")
	assert.ErrorIs(t, err, domain.ErrNameTaken)

	got, err := s.Join(snap.ID, "y", "Leo")
	require.NoError(t, err)
	require.Len(t, got.Participants, 2)
	// Join order is preserved.
	assert.Equal(t, "Ana", got.Participants[0].DisplayName)
	assert.Equal(t, "Leo", got.Participants[1].DisplayName)

	// Third participant exceeds the default capacity of two and the
	// failed join must not mutate membership.
	_, err = s.Join(snap.ID, "z", "Mia")
	assert.ErrorIs(t, err, domain.ErrRoomFull)
	cur, ok := s.Snapshot(snap.ID)
	require.True(t, ok)
	assert.Len(t, cur.Participants, 2)
}

func TestJoinUnknownRoom(t *testing.T) {
	s := newTestStore(time.Hour)
	_, err := s.Join("nope", "x", "Ana")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestBoundConnectionCannotCreateOrJoinAgain(t *testing.T) {
	s := newTestStore(time.Hour)

	snap, err := s.Create("x", "Ana")
	require.NoError(t, err)

	_, err = s.Create("x", "Other")
	assert.ErrorIs(t, err, domain.ErrAlreadyBound)

	other, err := s.Create("y", "Leo")
	require.NoError(t, err)
	_, err = s.Join(other.ID, "x", "Ana")
	assert.ErrorIs(t, err, domain.ErrAlreadyBound)

	roomID, ok := s.RoomOf("x")
	require.True(t, ok)
	assert.Equal(t, snap.ID, roomID)
}

func TestLeaveRemovesAndReindexes(t *testing.T) {
	s := newTestStore(time.Hour)

	snap, err := s.Create("x", "Ana")
	require.NoError(t, err)
	_, err = s.Join(snap.ID, "y", "Leo")
	require.NoError(t, err)

	got, ok := s.Leave("y")
	require.True(t, ok)
	require.Len(t, got.Participants, 1)
	assert.Equal(t, "Ana", got.Participants[0].DisplayName)

	_, ok = s.RoomOf("y")
	assert.False(t, ok)

	// Leaving twice is a no-op.
	_, ok = s.Leave("y")
	assert.False(t, ok)
}

func TestEmptyRoomExpires(t *testing.T) {
	s := newTestStore(20 * time.Millisecond)

	snap, err := s.Create("x", "Ana")
	require.NoError(t, err)

	got, ok := s.Leave("x")
	require.True(t, ok)
	assert.Empty(t, got.Participants)

	// Until the timer fires the room is still resolvable.
	_, ok = s.Snapshot(snap.ID)
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := s.Snapshot(snap.ID)
		return !ok
	}, time.Second, 10*time.Millisecond)

	_, err = s.Join(snap.ID, "y", "Leo")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, ok = s.Rejoin(snap.ID, "y", "Ana")
	assert.False(t, ok)
}

func TestRejoinWithinGraceKeepsRoom(t *testing.T) {
	s := newTestStore(30 * time.Millisecond)

	snap, err := s.Create("x", "Ana")
	require.NoError(t, err)

	_, ok := s.Leave("x")
	require.True(t, ok)

	got, ok := s.Rejoin(snap.ID, "x2", "Ana")
	require.True(t, ok)
	require.Len(t, got.Participants, 1)
	assert.Equal(t, domain.ConnID("x2"), got.Participants[0].ConnID)

	// The already-scheduled timer fires on live state and must not
	// delete a now-occupied room.
	time.Sleep(100 * time.Millisecond)
	cur, ok := s.Snapshot(snap.ID)
	require.True(t, ok)
	assert.Len(t, cur.Participants, 1)
}

func TestRejoinRebindsConnection(t *testing.T) {
	s := newTestStore(time.Hour)

	snap, err := s.Create("x", "Ana")
	require.NoError(t, err)
	_, err = s.Join(snap.ID, "y", "Leo")
	require.NoError(t, err)

	// Reconnect races ahead of the old socket's close: the slot is
	// rebound in place, no participant is appended.
	got, ok := s.Rejoin(snap.ID, "y2", "Leo")
	require.True(t, ok)
	require.Len(t, got.Participants, 2)
	assert.Equal(t, domain.ConnID("y2"), got.Participants[1].ConnID)

	// The stale connection's disconnect arrives afterwards and finds
	// nothing to remove.
	_, ok = s.Leave("y")
	assert.False(t, ok)
	cur, _ := s.Snapshot(snap.ID)
	assert.Len(t, cur.Participants, 2)
}

func TestRejoinCannotHijackPeerSlot(t *testing.T) {
	s := newTestStore(time.Hour)

	snap, err := s.Create("X", "Ana")
	require.NoError(t, err)
	_, err = s.Join(snap.ID, "Y", "Leo")
	require.NoError(t, err)

	// A connection that already holds a slot in the room must not be
	// able to rebind a peer's slot onto itself...
	_, ok := s.Rejoin(snap.ID, "X", "Leo")
	assert.False(t, ok)
	// ...nor claim a second slot under a fresh name.
	_, ok = s.Rejoin(snap.ID, "X", "Mia")
	assert.False(t, ok)

	cur, ok := s.Snapshot(snap.ID)
	require.True(t, ok)
	require.Len(t, cur.Participants, 2)
	assert.Equal(t, domain.ConnID("X"), cur.Participants[0].ConnID)
	assert.Equal(t, domain.ConnID("Y"), cur.Participants[1].ConnID)

	// Leo's live connection keeps its binding.
	roomID, ok := s.RoomOf("Y")
	require.True(t, ok)
	assert.Equal(t, snap.ID, roomID)
}

func TestLocate(t *testing.T) {
	s := newTestStore(time.Hour)

	snap, err := s.Create("X", "Ana")
	require.NoError(t, err)

	got, name, ok := s.Locate("X")
	require.True(t, ok)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, "Ana", name)

	_, _, ok = s.Locate("ghost")
	assert.False(t, ok)

	_, left := s.Leave("X")
	require.True(t, left)
	_, _, ok = s.Locate("X")
	assert.False(t, ok)
}

func TestRejoinIdempotent(t *testing.T) {
	s := newTestStore(time.Hour)

	snap, err := s.Create("x", "Ana")
	require.NoError(t, err)

	first, ok := s.Rejoin(snap.ID, "x", "Ana")
	require.True(t, ok)
	second, ok := s.Rejoin(snap.ID, "x", "Ana")
	require.True(t, ok)
	assert.Equal(t, first.Participants, second.Participants)
}

func TestRejoinMissesAreSoft(t *testing.T) {
	s := newTestStore(time.Hour)

	_, ok := s.Rejoin("nope", "x", "Ana")
	assert.False(t, ok)

	// A connection bound elsewhere cannot be rebound into another room.
	snapA, err := s.Create("x", "Ana")
	require.NoError(t, err)
	snapB, err := s.Create("y", "Leo")
	require.NoError(t, err)
	_, ok = s.Rejoin(snapB.ID, "x", "Leo")
	assert.False(t, ok)

	a, _ := s.Snapshot(snapA.ID)
	b, _ := s.Snapshot(snapB.ID)
	assert.Len(t, a.Participants, 1)
	assert.Len(t, b.Participants, 1)
}

func TestInfos(t *testing.T) {
	s := newTestStore(time.Hour)

	snap, err := s.Create("x", "Ana")
	require.NoError(t, err)
	_, err = s.Join(snap.ID, "y", "Leo")
	require.NoError(t, err)

	infos := s.Infos()
	require.Len(t, infos, 1)
	assert.Equal(t, snap.ID, infos[0].Room)
	assert.Equal(t, 2, infos[0].Participants)
}

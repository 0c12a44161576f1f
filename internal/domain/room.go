// Package domain contains entities without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxDisplayNameLen caps what clients can pick as a display name.
	MaxDisplayNameLen = 36

	// RoomIDLen is the length of a generated room token. Short enough to
	// type by hand, long enough not to collide in a single process.
	RoomIDLen = 8
)

var (
	ErrNameInvalid  = errors.New("display name invalid")
	ErrNameTaken    = errors.New("display name already taken in room")
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
	ErrAlreadyBound = errors.New("connection already bound to a room")
)

type (
	RoomID string
	ConnID string
)

// NewRoomID allocates a fresh room token.
func NewRoomID() RoomID {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return RoomID(id[:RoomIDLen])
}

// Participant is a named occupant of a room. ConnID is the current
// transport identity and is rewritten in place on rejoin.
type Participant struct {
	ConnID      ConnID
	DisplayName string
}

// Room is a value snapshot of a room's membership, in join order.
// Mutable state lives in the store; callers only ever see copies.
type Room struct {
	ID           RoomID
	CreatedAt    time.Time
	Participants []Participant
}

// ValidateDisplayName rejects blank and oversized names.
func ValidateDisplayName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameInvalid
	}
	if len(name) > MaxDisplayNameLen {
		return ErrNameInvalid
	}
	return nil
}

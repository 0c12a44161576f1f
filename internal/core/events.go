package core

import "github.com/avelis/notedrop/internal/domain"

// ParticipantDTO is a read-only view for the wire (no transport fields).
type ParticipantDTO struct {
	ID   domain.ConnID `json:"id"`
	Name string        `json:"name"`
}

// RoomUpdated is the full membership snapshot broadcast on every
// mutation; clients replace their state wholesale, there are no diffs.
type RoomUpdated struct {
	Type         string           `json:"type"`
	Room         domain.RoomID    `json:"room"`
	CreatedAt    int64            `json:"created_at"`
	Participants []ParticipantDTO `json:"participants"`
}

// MessageReceived carries a routed note to every member of the sender's
// room, the sender included.
type MessageReceived struct {
	Type       string             `json:"type"`
	Kind       domain.MessageKind `json:"kind"`
	Content    string             `json:"content"`
	SenderName string             `json:"sender_name"`
	Timestamp  int64              `json:"timestamp"`
}

// RoomInfo is the diagnostics view served by the HTTP API.
type RoomInfo struct {
	Room         domain.RoomID `json:"room"`
	CreatedAt    int64         `json:"created_at"`
	Participants int           `json:"participants"`
}

// NewRoomUpdated converts a room snapshot into its wire event.
func NewRoomUpdated(snap domain.Room) RoomUpdated {
	out := RoomUpdated{
		Type:         "room.updated",
		Room:         snap.ID,
		CreatedAt:    snap.CreatedAt.UnixMilli(),
		Participants: make([]ParticipantDTO, 0, len(snap.Participants)),
	}
	for _, p := range snap.Participants {
		out.Participants = append(out.Participants, ParticipantDTO{ID: p.ConnID, Name: p.DisplayName})
	}
	return out
}

// NewMessageReceived converts a routed message into its wire event.
func NewMessageReceived(msg domain.Message) MessageReceived {
	return MessageReceived{
		Type:       "message.received",
		Kind:       msg.Kind,
		Content:    msg.Content,
		SenderName: msg.SenderName,
		Timestamp:  msg.Timestamp.UnixMilli(),
	}
}

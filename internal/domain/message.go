package domain

import "time"

type MessageKind string

const (
	KindText    MessageKind = "text"
	KindSticker MessageKind = "sticker"
	KindDrawing MessageKind = "drawing"
)

func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindSticker, KindDrawing:
		return true
	}
	return false
}

// Message is an ephemeral note in transit. Content is opaque to the
// coordinator: raw text, a sticker identifier, or an encoded image.
type Message struct {
	Kind       MessageKind
	Content    string
	SenderName string
	Timestamp  time.Time
}

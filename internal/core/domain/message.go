package domain

import "time"

// MessageKind distinguishes text bodies from media URLs.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindVideo MessageKind = "video"
	KindVoice MessageKind = "voice"
)

// Valid reports whether k is a known message kind.
func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindVideo, KindVoice:
		return true
	}
	return false
}

// Message is the core aggregate. It is created exactly once by the delivery
// pipeline; afterwards only the delivered flag (pipeline) and the read
// flag/timestamp (read-receipt coordinator) mutate. Never deleted.
//
// Invariant: Read == true implies Delivered == true. Delivered reflects
// receiver presence at send time only and is never updated retroactively
// when the receiver comes online later.
type Message struct {
	ID         string      `json:"id" bson:"_id,omitempty"`
	SenderID   string      `json:"sender_id" bson:"sender_id"`
	ReceiverID string      `json:"receiver_id" bson:"receiver_id"`
	Kind       MessageKind `json:"kind" bson:"kind"`
	// Content is the text body for text messages, or the media URL otherwise.
	Content   string     `json:"content" bson:"content"`
	Thumbnail string     `json:"thumbnail,omitempty" bson:"thumbnail,omitempty"`
	Delivered bool       `json:"delivered" bson:"delivered"`
	Read      bool       `json:"read" bson:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty" bson:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
}

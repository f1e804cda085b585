package domain

import "time"

// Message is immutable once persisted; it is only ever created through the
// chat pipeline, which sanitizes the body before it gets here.
type Message struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"group_id"`
	AuthorID  int64     `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// EnrichedMessage carries the author's public display attributes for
// broadcast and history rendering.
type EnrichedMessage struct {
	Message
	AuthorName   string `json:"author_name"`
	AuthorAvatar string `json:"author_avatar,omitempty"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is the persisted form of a chat message. Exactly one of
// RecipientID (direct) or ChannelID (channel) is set.
type Message struct {
	ID          uuid.UUID  `json:"id"`
	Content     string     `json:"content"`
	SenderID    int64      `json:"sender_id"`
	RecipientID *int64     `json:"recipient_id,omitempty"`
	ChannelID   *int64     `json:"channel_id,omitempty"`
	IsDirect    bool       `json:"is_direct_message"`
	Lang        string     `json:"lang,omitempty"`
	Edited      bool       `json:"edited"`
	EditedAt    *time.Time `json:"edited_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// MessageView is the denormalized payload delivered to clients, with
// sender and recipient resolved to their public views.
type MessageView struct {
	ID        uuid.UUID  `json:"id"`
	Content   string     `json:"content"`
	Sender    UserView   `json:"sender"`
	Recipient *UserView  `json:"recipient,omitempty"`
	ChannelID *int64     `json:"channel_id,omitempty"`
	IsDirect  bool       `json:"is_direct_message"`
	Edited    bool       `json:"edited"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

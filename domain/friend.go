package domain

import "time"

// FriendRequest is a pending invitation; accepting it creates a
// symmetric friend edge and removes the request.
type FriendRequest struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	CreatedAt  time.Time `json:"created_at"`
}

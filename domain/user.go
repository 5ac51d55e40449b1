package domain

import (
	"fmt"
	"time"
)

// PresenceStatus is the persisted availability of a user.
// The lifecycle only ever writes Online and Offline; Away and Busy are
// client-set through the store layer.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
	StatusAway    PresenceStatus = "away"
	StatusBusy    PresenceStatus = "busy"
)

type User struct {
	ID           int64          `json:"id"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	Avatar       string         `json:"avatar"`
	Status       PresenceStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
}

// View strips credentials and keeps only what other clients may see.
func (u User) View() UserView {
	return UserView{
		ID:       u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
		Status:   u.Status,
	}
}

// UserView is the denormalized sender/recipient block embedded in
// message payloads.
type UserView struct {
	ID       int64          `json:"id"`
	Username string         `json:"username"`
	Avatar   string         `json:"avatar"`
	Status   PresenceStatus `json:"status"`
}

// DefaultAvatar mirrors the generated avatar every account starts with.
func DefaultAvatar(username string) string {
	return fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=%s", username)
}

package domain

import "time"

type ChannelType string

const (
	ChannelText  ChannelType = "text"
	ChannelVoice ChannelType = "voice"
)

type Channel struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        ChannelType `json:"channel_type"`
	IsPublic    bool        `json:"is_public"`
	CreatorID   int64       `json:"creator_id"`
	CreatedAt   time.Time   `json:"created_at"`
}

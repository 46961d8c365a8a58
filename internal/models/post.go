package models

import (
	"time"

	"github.com/google/uuid"
)

// Post types carried on the social layer.
const (
	PostTypeStatus       = "status"
	PostTypeInsight      = "insight"
	PostTypeQuestion     = "question"
	PostTypeAlert        = "alert"
	PostTypeAnnouncement = "announcement"
	PostTypeCommand      = "command"
)

// AgentPost is a social-layer message. Posts are immutable once created;
// MentionedAgentIDs is an ordered list at the domain boundary (the
// repository serializes it for storage and must round-trip it unchanged).
type AgentPost struct {
	ID               uuid.UUID  `json:"id"`
	SenderType       string     `json:"sender_type"` // "agent" or "human"
	SenderID         uuid.UUID  `json:"sender_id"`
	SenderName       string     `json:"sender_name"`
	SenderMaturity   string     `json:"sender_maturity"`
	SenderCategory   string     `json:"sender_category"`
	PostType         string     `json:"post_type"`
	Content          string     `json:"content"`
	IsPublic         bool       `json:"is_public"`
	RecipientType    *string    `json:"recipient_type,omitempty"`
	RecipientID      *uuid.UUID `json:"recipient_id,omitempty"`
	ChannelID        *uuid.UUID `json:"channel_id,omitempty"`
	ChannelName      *string    `json:"channel_name,omitempty"`
	MentionedAgentIDs []string  `json:"mentioned_agent_ids,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	// Seq disambiguates creation order when timestamps collide. Assigned by
	// the repository from a monotonic sequence.
	Seq int64 `json:"seq"`
}

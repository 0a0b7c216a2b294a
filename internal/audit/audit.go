// Package audit records what the system learned about a user and when,
// so profile changes can be traced back to the message that caused them.
package audit

import "time"

// ActorType identifies who performed an action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
)

// Action describes what was done.
type Action string

const (
	ActionInsightMerged    Action = "insight_merged"
	ActionProfileCreated   Action = "profile_created"
	ActionProfileRead      Action = "profile_read"
	ActionResponseDegraded Action = "response_degraded"
	ActionChatCreated      Action = "chat_created"
)

// Entry is a single audit trail record.
type Entry struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	ActorType        ActorType `json:"actor_type"`
	ActorID          string    `json:"actor_id"`
	Action           Action    `json:"action"`
	UserID           string    `json:"user_id"`
	Summary          string    `json:"summary"`
	AffectedEntities []string  `json:"affected_entities,omitempty"`
	ChatID           string    `json:"chat_id,omitempty"`
}

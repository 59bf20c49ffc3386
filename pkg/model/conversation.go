package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Sender identifies who authored a conversation turn.
type Sender string

const (
	// SenderUser is the human participant.
	SenderUser Sender = "user"
	// SenderTeammate is the conversational agent the user is talking to.
	SenderTeammate Sender = "teammate"
	// SenderGuardian is the alignment watcher. Its output must never feed
	// back into retrieval or judgment.
	SenderGuardian Sender = "guardian"
)

// Validate checks if the sender is one of the known tags.
func (s Sender) Validate() error {
	switch s {
	case SenderUser, SenderTeammate, SenderGuardian:
		return nil
	default:
		return goerr.New("invalid sender", goerr.V("sender", string(s)))
	}
}

// Label returns the sender name as rendered in prompts, e.g. "User".
func (s Sender) Label() string {
	switch s {
	case SenderUser:
		return "User"
	case SenderTeammate:
		return "Teammate"
	case SenderGuardian:
		return "Guardian"
	default:
		return string(s)
	}
}

// ConversationTurn is one utterance in a running conversation. Turns are
// ephemeral: they exist only in the caller's request and are never persisted.
type ConversationTurn struct {
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

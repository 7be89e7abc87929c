package model

import "time"

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	Id        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	FollowUps []string  `json:"suggestedFollowUp,omitempty"`
}

// ChatReply is the assistant side of one chat turn.
type ChatReply struct {
	Text      string
	FollowUps []string
}

// StarterPrompts are offered while a transcript is still empty.
var StarterPrompts = []string{
	"Résumez ce document",
	"Quels sont les points clés ?",
	"Expliquez le concept principal",
}

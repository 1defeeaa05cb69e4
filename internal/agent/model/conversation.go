package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// DefaultConversationID is used when the caller supplies no session id.
const DefaultConversationID = "default"

type ConversationRepository interface {
	// AddMessage appends messages to the conversation history in order.
	AddMessage(ctx context.Context, conversationID string, messages ...*schema.Message) error

	// LoadHistory retrieves the full conversation history for a conversation.
	LoadHistory(ctx context.Context, conversationID string) (*ConversationHistory, error)

	// ClearHistory removes all conversation history for a conversation.
	ClearHistory(ctx context.Context, conversationID string) error

	// GetMessageCount returns the number of messages in the conversation.
	GetMessageCount(ctx context.Context, conversationID string) (int, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ConversationID string
	Messages       []*schema.Message
}

// TurnLocker serializes turns per conversation. Lock blocks until the key is
// free or ctx is done; the returned func releases it.
type TurnLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// TranscriptEntry is one user or assistant utterance shown to a person.
type TranscriptEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

package conversations

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/ai-researcher/server/internal/agent/model"
)

// abortedPrefix starts every synthetic tool result written for a call that never ran.
const abortedPrefix = "Error: turn aborted: "

// MessagesManager is the session adapter between the loop and a
// ConversationRepository. The stored history is the loop checkpoint: user,
// assistant (with tool calls) and tool messages, never the system instruction.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
}

func NewMessagesManager(conversationRepo model.ConversationRepository) *MessagesManager {
	return &MessagesManager{conversationRepo: conversationRepo}
}

// StartTurn persists the user message and returns the working copy for the
// turn: the system instruction followed by the whole stored history.
func (mm *MessagesManager) StartTurn(ctx context.Context, conversationID, query, systemPrompt string) ([]*schema.Message, error) {
	if err := mm.conversationRepo.AddMessage(ctx, conversationID, schema.UserMessage(query)); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	history, err := mm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	messages := make([]*schema.Message, 0, len(history.Messages)+1)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	messages = append(messages, closeDanglingCalls(history.Messages)...)
	return messages, nil
}

// Save appends messages produced during a turn.
func (mm *MessagesManager) Save(ctx context.Context, conversationID string, messages ...*schema.Message) error {
	if err := mm.conversationRepo.AddMessage(ctx, conversationID, messages...); err != nil {
		return fmt.Errorf("save messages: %w", err)
	}
	return nil
}

// Transcript projects the stored history onto the user and assistant text a
// person would see.
func (mm *MessagesManager) Transcript(ctx context.Context, conversationID string) ([]model.TranscriptEntry, error) {
	history, err := mm.conversationRepo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	entries := make([]model.TranscriptEntry, 0, len(history.Messages))
	for _, m := range history.Messages {
		if m == nil || strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch m.Role {
		case schema.User, schema.Assistant:
			entries = append(entries, model.TranscriptEntry{Role: string(m.Role), Content: m.Content})
		}
	}
	return entries, nil
}

// Clear drops the conversation.
func (mm *MessagesManager) Clear(ctx context.Context, conversationID string) error {
	return mm.conversationRepo.ClearHistory(ctx, conversationID)
}

// AbortedToolResults answers every call with a synthetic error result so the
// history keeps one tool message per tool call.
func AbortedToolResults(calls []schema.ToolCall, reason string) []*schema.Message {
	results := make([]*schema.Message, 0, len(calls))
	for _, tc := range calls {
		results = append(results, schema.ToolMessage(abortedPrefix+reason, tc.ID, schema.WithToolName(tc.Function.Name)))
	}
	return results
}

// closeDanglingCalls rebuilds the tool results after every assistant tool-call
// message in call order. Calls left unanswered by an interrupted turn get a
// synthetic result; results matching no call are dropped.
func closeDanglingCalls(msgs []*schema.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for i := 0; i < len(msgs); i++ {
		m := msgs[i]
		if m == nil || m.Role == schema.Tool {
			continue
		}
		out = append(out, m)
		if m.Role != schema.Assistant || len(m.ToolCalls) == 0 {
			continue
		}

		byID := map[string]*schema.Message{}
		j := i + 1
		for ; j < len(msgs) && (msgs[j] == nil || msgs[j].Role == schema.Tool); j++ {
			if res := msgs[j]; res != nil {
				if _, seen := byID[res.ToolCallID]; !seen {
					byID[res.ToolCallID] = res
				}
			}
		}
		for _, tc := range m.ToolCalls {
			if res, ok := byID[tc.ID]; ok {
				out = append(out, res)
				continue
			}
			out = append(out, AbortedToolResults([]schema.ToolCall{tc}, "no result was recorded")...)
		}
		i = j - 1
	}
	return out
}

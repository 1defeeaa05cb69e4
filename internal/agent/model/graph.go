package model

import (
	"github.com/cloudwego/eino/schema"
)

// LoopState is the Graph Local State of one turn.
// Concurrency model:
//   - Registered via compose.WithGenLocalState; a fresh value per Invoke.
//   - Read and written only inside Eino state handlers (WithStatePreHandler,
//     WithStatePostHandler, compose.ProcessState), which Eino serializes.
//   - Persistence goes through MessagesManager, never through this struct.
type LoopState struct {
	Conversation []*schema.Message // working copy, append-only
}

// QueryInput represents the input for one turn.
type QueryInput struct {
	ConversationID string `json:"conversation_id"`
	Query          string `json:"query"`
}

// TurnResult is what a completed turn reports to the caller.
type TurnResult struct {
	TurnID           string   `json:"turn_id"`
	ConversationID   string   `json:"conversation_id"`
	Answer           string   `json:"response"`
	ToolCalls        []string `json:"tool_calls"`
	ArtifactFilename string   `json:"pdf_filename,omitempty"`
	CostUSD          float64  `json:"cost_usd,omitempty"`
}

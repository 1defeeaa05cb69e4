package nodes

import (
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// ensureToolCallIDs gives every call an ID so its result can be correlated.
// Gemini omits them on some responses.
func ensureToolCallIDs(msg *schema.Message) {
	for i := range msg.ToolCalls {
		if strings.TrimSpace(msg.ToolCalls[i].ID) == "" {
			msg.ToolCalls[i].ID = "call_" + uuid.NewString()
		}
	}
}

// lastToolCallNames maps call IDs to tool names for the most recent assistant
// message that requested tools.
func lastToolCallNames(conversation []*schema.Message) map[string]string {
	names := map[string]string{}
	for i := len(conversation) - 1; i >= 0; i-- {
		m := conversation[i]
		if m == nil || m.Role != schema.Assistant || len(m.ToolCalls) == 0 {
			continue
		}
		for _, tc := range m.ToolCalls {
			names[tc.ID] = tc.Function.Name
		}
		break
	}
	return names
}

package nodes

import (
	"github.com/cloudwego/eino/schema"
)

// Phase is a state of the reasoning/tool-execution machine.
type Phase int

const (
	PhaseReasoning Phase = iota
	PhaseToolExecution
	PhaseTerminal
)

func (p Phase) String() string {
	switch p {
	case PhaseReasoning:
		return "reasoning"
	case PhaseToolExecution:
		return "tool_execution"
	case PhaseTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Next returns the phase following from once it produced msg. Leaving
// reasoning depends only on whether msg carries tool calls, never on its text.
func Next(from Phase, msg *schema.Message) Phase {
	switch from {
	case PhaseReasoning:
		if msg != nil && len(msg.ToolCalls) > 0 {
			return PhaseToolExecution
		}
		return PhaseTerminal
	case PhaseToolExecution:
		return PhaseReasoning
	default:
		return PhaseTerminal
	}
}

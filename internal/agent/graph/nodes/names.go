package nodes

// Graph node keys.
const (
	NodeLoadConversation = "LoadConversation"
	NodeReasoning        = "Reasoning"
	NodeToolExecutor     = "ToolExecutor"
)

package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/ai-researcher/server/internal/agent/model"
)

//go:embed template/system_prompt.txt
var researcherSystemPrompt string

// RenderSystem renders the researcher system instruction via the Eino prompt
// component so prompt callbacks fire.
func RenderSystem(ctx context.Context, now time.Time) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(researcherSystemPrompt),
	)
	vars := map[string]any{
		"Today":      now.Format("January 2, 2006"),
		"SearchTool": model.ToolSearch,
		"ReadTool":   model.ToolReadDocument,
		"RenderTool": model.ToolRenderDocument,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return msgs[0].Content, nil
}

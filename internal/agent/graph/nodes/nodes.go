package nodes

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/ai-researcher/server/internal/agent/graph/conversations"
	"github.com/ai-researcher/server/internal/agent/graph/prompts"
	"github.com/ai-researcher/server/internal/agent/model"
	"github.com/ai-researcher/server/internal/render"
	logx "github.com/ai-researcher/server/pkg/logger"
)

// NewLoadConversationNode persists the user message and builds the working
// copy the reasoning model starts from.
func NewLoadConversationNode(mm *conversations.MessagesManager, now func() time.Time) *compose.Lambda {
	if now == nil {
		now = time.Now
	}
	return compose.InvokableLambda(func(ctx context.Context, input model.QueryInput) ([]*schema.Message, error) {
		systemPrompt, err := prompts.RenderSystem(ctx, now())
		if err != nil {
			return nil, fmt.Errorf("render system prompt: %w", err)
		}

		messages, err := mm.StartTurn(ctx, input.ConversationID, input.Query, systemPrompt)
		if err != nil {
			return nil, fmt.Errorf("error getting conversation context: %w", err)
		}

		logx.Ctx(ctx).Debug().Int("messages", len(messages)).Msg("Conversation loaded")
		return messages, nil
	})
}

// NewReasoningPreHandler feeds the whole working copy to the model. The input
// is the initial history on the first pass and the tool results afterwards.
func NewReasoningPreHandler() func(context.Context, []*schema.Message, *model.LoopState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.LoopState) ([]*schema.Message, error) {
		state.Conversation = append(state.Conversation, in...)
		logx.Ctx(ctx).Debug().Msg("AI thinking...")
		return state.Conversation, nil
	}
}

// NewReasoningPostHandler records the assistant message, persists it and
// reports its tool calls and text to the turn.
func NewReasoningPostHandler(
	mm *conversations.MessagesManager,
	modelName string,
) func(context.Context, *schema.Message, *model.LoopState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.LoopState) (*schema.Message, error) {
		if out == nil {
			return nil, fmt.Errorf("reasoning model returned no message")
		}
		turn := TurnFrom(ctx)

		ensureToolCallIDs(out)

		if cost, ok := model.CostOf(modelName, out); ok {
			turn.costUSD += cost.TotalCost
			logx.Ctx(ctx).Debug().
				Str("node", NodeReasoning).
				Str("model", cost.Model).
				Int("prompt_tokens", cost.PromptTokens).
				Int("completion_tokens", cost.CompletionTokens).
				Int("total_tokens", cost.TotalTokens).
				Float64("total_cost_usd", cost.TotalCost).
				Float64("turn_cost_usd", turn.costUSD).
				Msg("LLM usage")
		}

		state.Conversation = append(state.Conversation, out)
		if err := mm.Save(ctx, turn.ConversationID, out); err != nil {
			return nil, err
		}

		for _, tc := range out.ToolCalls {
			turn.toolCalls = append(turn.toolCalls, tc.Function.Name)
			turn.emit(model.ToolCallEvent(tc.Function.Name))
		}
		if text := strings.TrimSpace(out.Content); text != "" {
			turn.answer = out.Content
			turn.emit(model.ContentEvent(out.Content))
		}

		if len(out.ToolCalls) > 0 {
			logx.Ctx(ctx).Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		} else {
			logx.Ctx(ctx).Debug().Msg("AI response ready")
		}
		return out, nil
	}
}

// NewReasoningCondition routes on tool calls alone.
func NewReasoningCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		if Next(PhaseReasoning, input) == PhaseToolExecution {
			logx.Ctx(ctx).Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}
		logx.Ctx(ctx).Debug().Msg("No tool calls - continuing to end")
		return compose.END, nil
	}
}

// NewToolExecutorPreHandler enforces the iteration ceiling and rejects
// unregistered tool names before anything runs. A rejected round still gets
// one synthetic result per call so the stored history stays well formed.
func NewToolExecutorPreHandler(
	mm *conversations.MessagesManager,
	has func(name string) bool,
) func(context.Context, *schema.Message, *model.LoopState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.LoopState) (*schema.Message, error) {
		turn := TurnFrom(ctx)
		turn.iterations++

		logx.Ctx(ctx).Debug().
			Int("iteration", turn.iterations).
			Int("max_iterations", turn.MaxIterations).
			Msg("Tool execution attempt")

		var fatal error
		if turn.iterations > turn.MaxIterations {
			fatal = fmt.Errorf("%w: %d rounds of tool calls without a final answer", model.ErrIterationLimit, turn.MaxIterations)
		} else {
			for _, tc := range in.ToolCalls {
				if !has(tc.Function.Name) {
					fatal = fmt.Errorf("%w: %q", model.ErrUnknownTool, tc.Function.Name)
					break
				}
			}
		}
		if fatal == nil {
			return in, nil
		}

		results := conversations.AbortedToolResults(in.ToolCalls, fatal.Error())
		state.Conversation = append(state.Conversation, results...)
		if err := mm.Save(ctx, turn.ConversationID, results...); err != nil {
			logx.Ctx(ctx).Error().Err(err).Msg("Error saving aborted tool results")
		}
		turn.fatal = fatal
		logx.Ctx(ctx).Warn().Err(fatal).Msg("Turn aborted")
		return nil, fatal
	}
}

// NewToolExecutorPostHandler persists the tool results in call order and
// reports any compiled artifact.
func NewToolExecutorPostHandler(
	mm *conversations.MessagesManager,
) func(context.Context, []*schema.Message, *model.LoopState) ([]*schema.Message, error) {
	return func(ctx context.Context, out []*schema.Message, state *model.LoopState) ([]*schema.Message, error) {
		turn := TurnFrom(ctx)
		names := lastToolCallNames(state.Conversation)

		for _, res := range out {
			if res == nil {
				continue
			}
			if res.ToolName == "" {
				res.ToolName = names[res.ToolCallID]
			}
			if res.ToolName == model.ToolRenderDocument && render.IsArtifactResult(res.Content) {
				turn.artifact = filepath.Base(strings.TrimSpace(res.Content))
				turn.emit(model.ArtifactEvent(turn.artifact))
			}
		}

		if err := mm.Save(ctx, turn.ConversationID, out...); err != nil {
			return nil, err
		}
		logx.Ctx(ctx).Debug().Int("results", len(out)).Msg("Tool results recorded")
		return out, nil
	}
}

// NewToolArgumentsHandler turns an omitted argument object into an empty one.
func NewToolArgumentsHandler() func(context.Context, string, string) (string, error) {
	return func(_ context.Context, _ string, arguments string) (string, error) {
		if strings.TrimSpace(arguments) == "" {
			return "{}", nil
		}
		return arguments, nil
	}
}

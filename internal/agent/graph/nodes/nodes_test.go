package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-researcher/server/internal/agent/graph/conversations"
	"github.com/ai-researcher/server/internal/agent/model"
	"github.com/ai-researcher/server/internal/agent/repo"
)

func toolCall(id, name string) schema.ToolCall {
	return schema.ToolCall{ID: id, Function: schema.FunctionCall{Name: name, Arguments: "{}"}}
}

type recorder struct{ events []model.Event }

func (r *recorder) sink(ev model.Event) { r.events = append(r.events, ev) }

func newHarness(t *testing.T, maxIter int) (context.Context, *Turn, *recorder, *conversations.MessagesManager, model.ConversationRepository) {
	t.Helper()
	rec := &recorder{}
	turn := NewTurn("conv", maxIter, rec.sink)
	r := repo.NewMemoryConversationRepository()
	return WithTurn(context.Background(), turn), turn, rec, conversations.NewMessagesManager(r), r
}

func TestNextPhase(t *testing.T) {
	withCalls := schema.AssistantMessage("", []schema.ToolCall{toolCall("a", model.ToolSearch)})
	textAndCalls := schema.AssistantMessage("let me look", []schema.ToolCall{toolCall("a", model.ToolSearch)})

	assert.Equal(t, PhaseToolExecution, Next(PhaseReasoning, withCalls))
	assert.Equal(t, PhaseToolExecution, Next(PhaseReasoning, textAndCalls))
	assert.Equal(t, PhaseTerminal, Next(PhaseReasoning, schema.AssistantMessage("done", nil)))
	assert.Equal(t, PhaseTerminal, Next(PhaseReasoning, nil))
	assert.Equal(t, PhaseReasoning, Next(PhaseToolExecution, nil))
	assert.Equal(t, PhaseTerminal, Next(PhaseTerminal, withCalls))
	assert.Equal(t, "tool_execution", PhaseToolExecution.String())
}

func TestReasoningCondition(t *testing.T) {
	cond := NewReasoningCondition()
	next, err := cond(context.Background(), schema.AssistantMessage("", []schema.ToolCall{toolCall("a", model.ToolSearch)}))
	require.NoError(t, err)
	assert.Equal(t, NodeToolExecutor, next)

	next, err = cond(context.Background(), schema.AssistantMessage("answer", nil))
	require.NoError(t, err)
	assert.Equal(t, compose.END, next)
}

func TestReasoningPostHandlerRecordsMessage(t *testing.T) {
	ctx, turn, rec, mm, r := newHarness(t, 0)
	state := &model.LoopState{}

	out := schema.AssistantMessage("Searching first.", []schema.ToolCall{toolCall("", model.ToolSearch)})
	out.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 0, TotalTokens: 1_000_000}}

	got, err := NewReasoningPostHandler(mm, "gemini-2.5-flash")(ctx, out, state)
	require.NoError(t, err)

	require.Len(t, got.ToolCalls, 1)
	assert.NotEmpty(t, got.ToolCalls[0].ID)
	assert.Equal(t, []*schema.Message{out}, state.Conversation)
	assert.InDelta(t, 0.30, turn.Result().CostUSD, 1e-9)
	assert.Equal(t, []model.Event{
		model.ToolCallEvent(model.ToolSearch),
		model.ContentEvent("Searching first."),
	}, rec.events)

	count, err := r.GetMessageCount(ctx, "conv")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = NewReasoningPostHandler(mm, "x")(ctx, nil, state)
	assert.Error(t, err)
}

func TestToolExecutorPreHandlerIterationCeiling(t *testing.T) {
	ctx, turn, _, mm, r := newHarness(t, 2)
	state := &model.LoopState{}
	pre := NewToolExecutorPreHandler(mm, func(string) bool { return true })
	in := schema.AssistantMessage("", []schema.ToolCall{toolCall("a", model.ToolSearch)})

	for i := 0; i < 2; i++ {
		_, err := pre(ctx, in, state)
		require.NoError(t, err)
	}
	_, err := pre(ctx, in, state)
	require.ErrorIs(t, err, model.ErrIterationLimit)
	assert.ErrorIs(t, turn.Err(), model.ErrIterationLimit)
	assert.Equal(t, 3, turn.Iterations())

	history, err := r.LoadHistory(ctx, "conv")
	require.NoError(t, err)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "a", history.Messages[0].ToolCallID)
	assert.Contains(t, history.Messages[0].Content, "iteration limit exceeded")
}

func TestToolExecutorPreHandlerUnknownTool(t *testing.T) {
	ctx, turn, _, mm, r := newHarness(t, 0)
	state := &model.LoopState{}
	has := func(name string) bool { return name == model.ToolSearch }
	in := schema.AssistantMessage("", []schema.ToolCall{toolCall("a", model.ToolSearch), toolCall("b", "web_search")})

	_, err := NewToolExecutorPreHandler(mm, has)(ctx, in, state)
	require.ErrorIs(t, err, model.ErrUnknownTool)
	assert.True(t, errors.Is(turn.Err(), model.ErrUnknownTool))
	require.Len(t, state.Conversation, 2)

	history, err := r.LoadHistory(ctx, "conv")
	require.NoError(t, err)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "a", history.Messages[0].ToolCallID)
	assert.Equal(t, "b", history.Messages[1].ToolCallID)
}

func TestToolExecutorPostHandlerReportsArtifact(t *testing.T) {
	ctx, turn, rec, mm, _ := newHarness(t, 0)
	state := &model.LoopState{Conversation: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{toolCall("a", model.ToolSearch), toolCall("b", model.ToolRenderDocument)}),
	}}
	out := []*schema.Message{
		schema.ToolMessage("Found 1 papers", "a"),
		schema.ToolMessage("/srv/output/paper_20250101_120000.pdf", "b"),
	}

	got, err := NewToolExecutorPostHandler(mm)(ctx, out, state)
	require.NoError(t, err)
	assert.Equal(t, model.ToolSearch, got[0].ToolName)
	assert.Equal(t, model.ToolRenderDocument, got[1].ToolName)
	assert.Equal(t, "paper_20250101_120000.pdf", turn.Result().ArtifactFilename)
	assert.Equal(t, []model.Event{model.ArtifactEvent("paper_20250101_120000.pdf")}, rec.events)
}

func TestToolExecutorPostHandlerIgnoresPDFTextFromOtherTools(t *testing.T) {
	ctx, turn, rec, mm, _ := newHarness(t, 0)
	state := &model.LoopState{}
	out := []*schema.Message{schema.ToolMessage("see https://x/file.pdf", "a", schema.WithToolName(model.ToolReadDocument))}

	_, err := NewToolExecutorPostHandler(mm)(ctx, out, state)
	require.NoError(t, err)
	assert.Empty(t, turn.Result().ArtifactFilename)
	assert.Empty(t, rec.events)
}

func TestToolArgumentsHandler(t *testing.T) {
	h := NewToolArgumentsHandler()
	got, err := h(context.Background(), model.ToolSearch, "  ")
	require.NoError(t, err)
	assert.Equal(t, "{}", got)

	got, err = h(context.Background(), model.ToolSearch, `{"topic":"x"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"topic":"x"}`, got)
}

func TestTurnFromWithoutTurn(t *testing.T) {
	turn := TurnFrom(context.Background())
	require.NotNil(t, turn)
	assert.Equal(t, model.DefaultMaxIterations, turn.MaxIterations)
	assert.Empty(t, turn.Result().ToolCalls)
}

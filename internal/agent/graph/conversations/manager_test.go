package conversations

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-researcher/server/internal/agent/model"
	"github.com/ai-researcher/server/internal/agent/repo"
)

func call(id, name string) schema.ToolCall {
	return schema.ToolCall{ID: id, Function: schema.FunctionCall{Name: name, Arguments: "{}"}}
}

func TestStartTurnBuildsWorkingCopy(t *testing.T) {
	ctx := context.Background()
	r := repo.NewMemoryConversationRepository()
	mm := NewMessagesManager(r)

	require.NoError(t, mm.Save(ctx, "c", schema.UserMessage("first"), schema.AssistantMessage("hello", nil)))

	working, err := mm.StartTurn(ctx, "c", "second", "SYSTEM")
	require.NoError(t, err)

	require.Len(t, working, 4)
	assert.Equal(t, schema.System, working[0].Role)
	assert.Equal(t, "SYSTEM", working[0].Content)
	assert.Equal(t, "first", working[1].Content)
	assert.Equal(t, "second", working[3].Content)

	stored, err := r.LoadHistory(ctx, "c")
	require.NoError(t, err)
	require.Len(t, stored.Messages, 3)
	for _, m := range stored.Messages {
		assert.NotEqual(t, schema.System, m.Role)
	}
}

func TestTranscriptShowsOnlyUserAndAssistantText(t *testing.T) {
	ctx := context.Background()
	mm := NewMessagesManager(repo.NewMemoryConversationRepository())

	require.NoError(t, mm.Save(ctx, "c",
		schema.UserMessage("find papers"),
		schema.AssistantMessage("", []schema.ToolCall{call("call_1", model.ToolSearch)}),
		schema.ToolMessage("1. paper", "call_1", schema.WithToolName(model.ToolSearch)),
		schema.AssistantMessage("Here are the papers.", nil),
	))

	entries, err := mm.Transcript(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, []model.TranscriptEntry{
		{Role: "user", Content: "find papers"},
		{Role: "assistant", Content: "Here are the papers."},
	}, entries)

	require.NoError(t, mm.Clear(ctx, "c"))
	entries, err = mm.Transcript(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCloseDanglingCalls(t *testing.T) {
	assistant := schema.AssistantMessage("", []schema.ToolCall{call("a", model.ToolSearch), call("b", model.ToolReadDocument)})
	resB := schema.ToolMessage("read ok", "b")
	stray := schema.ToolMessage("stray", "zzz")

	got := closeDanglingCalls([]*schema.Message{
		schema.UserMessage("q"),
		assistant,
		resB,
		stray,
		schema.UserMessage("next"),
	})

	require.Len(t, got, 5)
	assert.Equal(t, "q", got[0].Content)
	assert.Same(t, assistant, got[1])
	assert.Equal(t, "a", got[2].ToolCallID)
	assert.Equal(t, abortedPrefix+"no result was recorded", got[2].Content)
	assert.Same(t, resB, got[3])
	assert.Equal(t, "next", got[4].Content)
}

func TestCloseDanglingCallsKeepsWellFormedHistory(t *testing.T) {
	history := []*schema.Message{
		schema.UserMessage("q"),
		schema.AssistantMessage("", []schema.ToolCall{call("a", model.ToolSearch), call("b", model.ToolSearch)}),
		schema.ToolMessage("ra", "a"),
		schema.ToolMessage("rb", "b"),
		schema.AssistantMessage("done", nil),
	}
	assert.Equal(t, history, closeDanglingCalls(history))
}

func TestAbortedToolResults(t *testing.T) {
	results := AbortedToolResults([]schema.ToolCall{call("x", "nope"), call("y", model.ToolSearch)}, "unknown tool requested")
	require.Len(t, results, 2)
	assert.Equal(t, schema.Tool, results[0].Role)
	assert.Equal(t, "x", results[0].ToolCallID)
	assert.Equal(t, "nope", results[0].ToolName)
	assert.Equal(t, "Error: turn aborted: unknown tool requested", results[1].Content)
}

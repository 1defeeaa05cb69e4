package model

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestCostOf(t *testing.T) {
	msg := &schema.Message{
		Role: schema.Assistant,
		ResponseMeta: &schema.ResponseMeta{Usage: &schema.TokenUsage{
			PromptTokens:     1_000_000,
			CompletionTokens: 2_000_000,
			TotalTokens:      3_000_000,
		}},
	}

	cost, ok := CostOf("gemini-2.5-flash", msg)
	assert.True(t, ok)
	assert.InDelta(t, 0.30, cost.InputCost, 1e-9)
	assert.InDelta(t, 5.00, cost.OutputCost, 1e-9)
	assert.InDelta(t, 5.30, cost.TotalCost, 1e-9)
	assert.Equal(t, 3_000_000, cost.TotalTokens)

	unknown, ok := CostOf("some-other-model", msg)
	assert.True(t, ok)
	assert.Zero(t, unknown.TotalCost)

	_, ok = CostOf("gemini-2.5-flash", schema.AssistantMessage("hi", nil))
	assert.False(t, ok)
}

func TestNormalizeMaxIterations(t *testing.T) {
	assert.Equal(t, DefaultMaxIterations, NormalizeMaxIterations(0))
	assert.Equal(t, DefaultMaxIterations, NormalizeMaxIterations(-3))
	assert.Equal(t, 4, NormalizeMaxIterations(4))
}

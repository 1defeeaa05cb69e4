package prompts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSystem(t *testing.T) {
	out, err := RenderSystem(context.Background(), time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, out, "Today is March 14, 2025.")
	assert.Contains(t, out, "1. search(topic)")
	assert.Contains(t, out, "2. read_document(url)")
	assert.Contains(t, out, "3. render_document(latex_content)")
	assert.Contains(t, out, `\documentclass[12pt]{article}`)
	assert.NotContains(t, out, "{{")
	assert.NotContains(t, out, "<no value>")
}

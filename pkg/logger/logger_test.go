package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/ai-researcher/server/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitProductionWritesJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(LoggerOpts{Environment: core.Production, Output: &buf})
	t.Cleanup(func() { Init() })

	Debug().Msg("hidden")
	Info().Str("conversation_id", "c1").Msg("visible")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "c1", entry["conversation_id"])
}

func TestInitDevelopmentLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	Init(LoggerOpts{Environment: core.Development, Output: &buf})
	t.Cleanup(func() { Init() })

	Debug().Msg("debug line")
	assert.Contains(t, buf.String(), "debug line")
}

func TestCtxCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	Init(LoggerOpts{Environment: core.Production, Output: &buf})
	t.Cleanup(func() { Init() })

	Ctx(context.Background()).Info().Msg("global")
	ctx := IntoContext(context.Background(), With().Str("turn_id", "t1").Logger())
	Ctx(ctx).Info().Msg("scoped")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var scoped map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &scoped))
	assert.Equal(t, "t1", scoped["turn_id"])
	assert.Equal(t, "scoped", scoped["message"])
}

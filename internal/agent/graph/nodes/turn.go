package nodes

import (
	"context"

	"github.com/google/uuid"

	"github.com/ai-researcher/server/internal/agent/model"
)

type turnKey struct{}

// Turn is the per-invocation bookkeeping that is not conversation state: the
// iteration count, the event sink and what the caller gets back. Handlers run
// one at a time, so it needs no locking.
type Turn struct {
	ID             string
	ConversationID string
	MaxIterations  int

	sink       model.EventSink
	iterations int
	toolCalls  []string
	answer     string
	artifact   string
	costUSD    float64
	fatal      error
}

// NewTurn starts a turn. sink may be nil.
func NewTurn(conversationID string, maxIterations int, sink model.EventSink) *Turn {
	return &Turn{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		MaxIterations:  model.NormalizeMaxIterations(maxIterations),
		sink:           sink,
		toolCalls:      []string{},
	}
}

func WithTurn(ctx context.Context, t *Turn) context.Context {
	return context.WithValue(ctx, turnKey{}, t)
}

// TurnFrom returns the turn carried by ctx. A context without one gets a
// detached turn so handlers stay usable in isolation.
func TurnFrom(ctx context.Context) *Turn {
	if t, ok := ctx.Value(turnKey{}).(*Turn); ok && t != nil {
		return t
	}
	return NewTurn(model.DefaultConversationID, 0, nil)
}

func (t *Turn) emit(ev model.Event) {
	if t.sink != nil {
		t.sink(ev)
	}
}

// Iterations is the number of tool-execution rounds started so far.
func (t *Turn) Iterations() int { return t.iterations }

// Err is the loop-fatal error that aborted the turn, if any.
func (t *Turn) Err() error { return t.fatal }

// Result summarizes a completed turn.
func (t *Turn) Result() model.TurnResult {
	calls := make([]string, len(t.toolCalls))
	copy(calls, t.toolCalls)
	return model.TurnResult{
		TurnID:           t.ID,
		ConversationID:   t.ConversationID,
		Answer:           t.answer,
		ToolCalls:        calls,
		ArtifactFilename: t.artifact,
		CostUSD:          t.costUSD,
	}
}

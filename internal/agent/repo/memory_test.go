package repo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryConversationRepository()

	require.NoError(t, r.AddMessage(ctx, "s1", schema.UserMessage("hi")))
	require.NoError(t, r.AddMessage(ctx, "s1",
		schema.AssistantMessage("", []schema.ToolCall{{ID: "call_1", Function: schema.FunctionCall{Name: "search", Arguments: `{"topic":"x"}`}}}),
		schema.ToolMessage("1. paper", "call_1", schema.WithToolName("search")),
	))
	require.NoError(t, r.AddMessage(ctx, "s2", schema.UserMessage("other")))

	h, err := r.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, h.Messages, 3)
	assert.Equal(t, schema.User, h.Messages[0].Role)
	assert.Equal(t, "call_1", h.Messages[2].ToolCallID)

	n, err := r.GetMessageCount(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, r.ClearHistory(ctx, "s1"))
	h, err = r.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, h.Messages)
}

func TestMemoryRepositoryLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryConversationRepository()
	require.NoError(t, r.AddMessage(ctx, "s", schema.UserMessage("a")))

	h, err := r.LoadHistory(ctx, "s")
	require.NoError(t, err)
	h.Messages = append(h.Messages[:0], schema.UserMessage("overwritten"))

	again, err := r.LoadHistory(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Messages[0].Content)
}

func TestMemoryTurnLockerSerializesKey(t *testing.T) {
	l := NewMemoryTurnLocker()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "same")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			active++
			maxSeen = max(maxSeen, active)
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, l.slots)
}

func TestMemoryTurnLockerIndependentKeys(t *testing.T) {
	l := NewMemoryTurnLocker()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	ctxB, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctxB, "b")
	require.NoError(t, err)
	unlockB()
}

func TestMemoryTurnLockerHonorsContext(t *testing.T) {
	l := NewMemoryTurnLocker()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // idempotent

	again, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	again()
	assert.Empty(t, l.slots)
}

func TestRefreshInterval(t *testing.T) {
	assert.Equal(t, 200*time.Second, refreshInterval(10*time.Minute))
	assert.Equal(t, 50*time.Millisecond, refreshInterval(150*time.Millisecond))
	assert.Equal(t, time.Millisecond, refreshInterval(time.Nanosecond))
}

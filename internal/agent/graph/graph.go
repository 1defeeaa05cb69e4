package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ai-researcher/server/internal/agent/graph/conversations"
	"github.com/ai-researcher/server/internal/agent/graph/nodes"
	"github.com/ai-researcher/server/internal/agent/graph/observers"
	"github.com/ai-researcher/server/internal/agent/graph/tools"
	"github.com/ai-researcher/server/internal/agent/model"
	"github.com/ai-researcher/server/internal/agent/repo"
	errx "github.com/ai-researcher/server/internal/core/error"
	logx "github.com/ai-researcher/server/pkg/logger"
)

// Config holds everything needed to compose the research loop end-to-end.
// This is a convenience layer over GraphConfig that also constructs the chat
// model and MessagesManager.
type Config struct {
	APIKey           string
	BaseURL          string
	Reasoning        model.ReasoningModelConfig
	Loop             model.LoopConfig
	Toolset          *tools.Toolset
	ConversationRepo model.ConversationRepository
	Locker           model.TurnLocker
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModel       einomodel.BaseChatModel
	ModelName       string
	Toolset         *tools.Toolset
	MessagesManager *conversations.MessagesManager
	MaxIterations   int
	// Now stamps the system instruction; time.Now when nil.
	Now func() time.Time
}

// GraphBuilder handles the construction of the research loop graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *schema.Message]
}

// BuildResearchGraph creates the Gemini reasoning model and returns a Runner
// over the compiled loop.
func BuildResearchGraph(ctx context.Context, cfg Config) (*Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}

	cm, err := nodes.NewReasoningChatModel(ctx, nodes.ChatModelConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Reasoning: cfg.Reasoning,
	})
	if err != nil {
		return nil, err
	}

	mm := conversations.NewMessagesManager(cfg.ConversationRepo)
	return NewRunner(ctx, &GraphConfig{
		ChatModel:       cm,
		ModelName:       cfg.Reasoning.Model,
		Toolset:         cfg.Toolset,
		MessagesManager: mm,
		MaxIterations:   cfg.Loop.MaxIterations,
	}, cfg.Locker)
}

// BuildGraph constructs and returns the compiled loop graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModel == nil {
		return nil, fmt.Errorf("chat model is not initialized")
	}
	if config.Toolset == nil {
		return nil, fmt.Errorf("toolset is nil")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.LoopState {
				return &model.LoopState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}
	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}
	return builder.compile(ctx)
}

// setupTools binds the toolset to the reasoning model and adds the tools node
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	bound, err := nodes.BindTools(b.config.ChatModel, b.config.Toolset.Infos())
	if err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools to reasoning model")
		return err
	}
	b.config.ChatModel = bound

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:                b.config.Toolset.Tools(),
		ExecuteSequentially:  true,
		ToolArgumentsHandler: nodes.NewToolArgumentsHandler(),
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	return b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.MessagesManager, b.config.Toolset.Has)),
		compose.WithStatePostHandler(nodes.NewToolExecutorPostHandler(b.config.MessagesManager)),
	)
}

// addNodes adds the conversation loader and the reasoning model
func (b *GraphBuilder) addNodes() error {
	if err := b.graph.AddLambdaNode(nodes.NodeLoadConversation,
		nodes.NewLoadConversationNode(b.config.MessagesManager, b.config.Now),
	); err != nil {
		return fmt.Errorf("add %s: %w", nodes.NodeLoadConversation, err)
	}

	if err := b.graph.AddChatModelNode(nodes.NodeReasoning, b.config.ChatModel,
		compose.WithStatePreHandler(nodes.NewReasoningPreHandler()),
		compose.WithStatePostHandler(nodes.NewReasoningPostHandler(b.config.MessagesManager, b.config.ModelName)),
	); err != nil {
		return fmt.Errorf("add %s: %w", nodes.NodeReasoning, err)
	}
	return nil
}

// addEdges creates the fixed connections; the exit from reasoning is a branch
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeLoadConversation},
		{nodes.NodeLoadConversation, nodes.NodeReasoning},
		{nodes.NodeToolExecutor, nodes.NodeReasoning},
	}
	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("add edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches routes reasoning output to the tools node or to the end
func (b *GraphBuilder) addBranches() error {
	decisionBranch := compose.NewGraphBranch(
		nodes.NewReasoningCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			compose.END:            true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeReasoning, decisionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding decision branch")
		return fmt.Errorf("error adding decision branch: %w", err)
	}
	return nil
}

// compile finalizes the graph. The iteration ceiling is enforced by the tools
// node; the step limit only backs it up.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	maxSteps := 2*model.NormalizeMaxIterations(b.config.MaxIterations) + 10

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Int("max_steps", maxSteps).Msg("Graph compiled successfully")
	return runnable, nil
}

// Runner executes turns against the compiled graph, one at a time per
// conversation.
type Runner struct {
	runnable      compose.Runnable[model.QueryInput, *schema.Message]
	mm            *conversations.MessagesManager
	locker        model.TurnLocker
	maxIterations int
}

// NewRunner compiles the graph. A nil locker serializes turns in-process.
func NewRunner(ctx context.Context, cfg *GraphConfig, locker model.TurnLocker) (*Runner, error) {
	runnable, err := BuildGraph(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if locker == nil {
		locker = repo.NewMemoryTurnLocker()
	}
	logx.Debug().Msg("Research graph built successfully")
	return &Runner{
		runnable:      runnable,
		mm:            cfg.MessagesManager,
		locker:        locker,
		maxIterations: cfg.MaxIterations,
	}, nil
}

// Invoke runs one turn to completion.
func (r *Runner) Invoke(ctx context.Context, in model.QueryInput) (*model.TurnResult, error) {
	return r.run(ctx, in, nil)
}

// Stream runs one turn and reports its progress to sink. The last event is
// always done or error.
func (r *Runner) Stream(ctx context.Context, in model.QueryInput, sink model.EventSink) (*model.TurnResult, error) {
	res, err := r.run(ctx, in, sink)
	if err != nil {
		sink(model.ErrorEvent(err.Error()))
		return nil, err
	}
	sink(model.DoneEvent())
	return res, nil
}

// Transcript returns the visible history of a conversation.
func (r *Runner) Transcript(ctx context.Context, conversationID string) ([]model.TranscriptEntry, error) {
	return r.mm.Transcript(ctx, conversationKey(conversationID))
}

// Clear drops a conversation once no turn is running on it.
func (r *Runner) Clear(ctx context.Context, conversationID string) error {
	id := conversationKey(conversationID)
	unlock, err := r.locker.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()
	return r.mm.Clear(ctx, id)
}

func (r *Runner) run(ctx context.Context, in model.QueryInput, sink model.EventSink) (*model.TurnResult, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, errx.BadRequest(model.ErrEmptyQuery)
	}
	id := conversationKey(in.ConversationID)

	unlock, err := r.locker.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lock conversation: %w", err)
	}
	defer unlock()

	turn := nodes.NewTurn(id, r.maxIterations, sink)
	ctx = nodes.WithTurn(ctx, turn)
	ctx = logx.IntoContext(ctx, logx.With().
		Str("turn_id", turn.ID).
		Str("conversation_id", id).
		Logger())

	logx.Ctx(ctx).Info().Int("query_len", len(query)).Msg("Turn started")

	_, err = r.runnable.Invoke(ctx, model.QueryInput{
		ConversationID: id,
		Query:          query,
	}, compose.WithCallbacks(observers.NewAllCallbacks()))
	if fatal := turn.Err(); fatal != nil {
		return nil, errx.TurnFailed(fatal)
	}
	if err != nil {
		logx.Ctx(ctx).Error().Err(err).Msg("Turn failed")
		return nil, fmt.Errorf("run turn: %w", err)
	}

	res := turn.Result()
	logx.Ctx(ctx).Info().
		Int("iterations", turn.Iterations()).
		Strs("tool_calls", res.ToolCalls).
		Float64("cost_usd", res.CostUSD).
		Msg("Turn completed")
	return &res, nil
}

func conversationKey(id string) string {
	if id = strings.TrimSpace(id); id == "" {
		return model.DefaultConversationID
	}
	return id
}

package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/ai-researcher/server/internal/agent/model"
	logx "github.com/ai-researcher/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey    string
	BaseURL   string
	Reasoning model.ReasoningModelConfig
}

// NewReasoningChatModel creates the Gemini model that drives the loop.
func NewReasoningChatModel(ctx context.Context, config ChatModelConfig) (*gemini.ChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	rc := config.Reasoning
	gc := &gemini.Config{
		Client:      client,
		Model:       rc.Model,
		Temperature: &rc.Temperature,
		MaxTokens:   &rc.MaxTokens,
	}
	if rc.ThinkingBudget > 0 {
		gc.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(rc.ThinkingBudget),
		}
	}

	chatModel, err := gemini.NewChatModel(ctx, gc)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating reasoning model")
		return nil, fmt.Errorf("error creating reasoning model: %w", err)
	}
	return chatModel, nil
}

// BindTools attaches the toolset declarations to a chat model.
func BindTools(cm einomodel.BaseChatModel, tools []*schema.ToolInfo) (einomodel.BaseChatModel, error) {
	switch m := cm.(type) {
	case einomodel.ToolCallingChatModel:
		bound, err := m.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("failed to bind tools: %w", err)
		}
		logx.Debug().Int("tools", len(tools)).Msg("Successfully bound tools to reasoning model")
		return bound, nil
	case einomodel.ChatModel:
		if err := m.BindTools(tools); err != nil {
			return nil, fmt.Errorf("failed to bind tools: %w", err)
		}
		logx.Debug().Int("tools", len(tools)).Msg("Successfully bound tools to reasoning model")
		return m, nil
	default:
		return nil, fmt.Errorf("chat model %T does not support tool calling", cm)
	}
}

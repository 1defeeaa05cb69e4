package model

import "time"

// ================ Config ================
type ReasoningModelConfig struct {
	Model       string  `envconfig:"REASONING_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"REASONING_MAX_TOKENS" default:"8192"`
	Temperature float32 `envconfig:"REASONING_TEMPERATURE" default:"0.3"`
	// ThinkingBudget caps the model's internal reasoning tokens; 0 disables thinking output.
	ThinkingBudget int32 `envconfig:"REASONING_THINKING_BUDGET" default:"2000"`
}

type LoopConfig struct {
	// MaxIterations is the number of tool-execution rounds allowed per turn.
	MaxIterations int `envconfig:"LOOP_MAX_ITERATIONS" default:"12"`
}

type ConversationConfig struct {
	TTL     time.Duration `envconfig:"CONVERSATION_TTL" default:"24h"`
	LockTTL time.Duration `envconfig:"CONVERSATION_LOCK_TTL" default:"10m"`
}

const DefaultMaxIterations = 12

// NormalizeMaxIterations returns a sane default when n is invalid.
func NormalizeMaxIterations(n int) int {
	if n <= 0 {
		return DefaultMaxIterations
	}
	return n
}

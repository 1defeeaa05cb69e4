package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	logx "github.com/ai-researcher/server/pkg/logger"
)

// textTool is an InvokableTool whose every outcome, failures included, is text
// for the model to read. It never returns a Go error.
type textTool[T any] struct {
	info *schema.ToolInfo
	args *argsSchema
	run  func(ctx context.Context, in T) string
}

func newTextTool[T any](name, desc string, params []param, run func(context.Context, T) string) (*textTool[T], error) {
	args, err := newArgsSchema(name, params)
	if err != nil {
		return nil, err
	}
	return &textTool[T]{
		info: &schema.ToolInfo{
			Name:        name,
			Desc:        desc,
			ParamsOneOf: paramsOneOf(params),
		},
		args: args,
		run:  run,
	}, nil
}

func (t *textTool[T]) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.info, nil
}

func (t *textTool[T]) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("tool_name", t.info.Name).Interface("panic", r).Msg("tool panicked")
			result = fmt.Sprintf("Error: %s failed unexpectedly: %v", t.info.Name, r)
		}
	}()

	var in T
	if err := t.args.decode(argumentsInJSON, &in); err != nil {
		logx.Warn().Err(err).Str("tool_name", t.info.Name).Str("arguments", argumentsInJSON).Msg("invalid tool arguments")
		return fmt.Sprintf("Error: invalid arguments for %s: %v", t.info.Name, err), nil
	}
	return t.run(ctx, in), nil
}

var _ tool.InvokableTool = (*textTool[struct{}])(nil)

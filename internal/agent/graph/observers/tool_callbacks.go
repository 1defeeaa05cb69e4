package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/tool"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/ai-researcher/server/pkg/logger"
)

// newToolHandler logs tool lifecycle events. Arguments and results are cut
// short; render sources and paper texts are large.
func newToolHandler() *callbackHelper.ToolCallbackHandler {
	return &callbackHelper.ToolCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *tool.CallbackInput) context.Context {
			ev := logx.Ctx(ctx).Debug().Str("tool_name", info.Name)
			if input != nil {
				ev = ev.Str("arguments", truncate(input.ArgumentsInJSON, 300))
			}
			ev.Msg("tool start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *tool.CallbackOutput) context.Context {
			ev := logx.Ctx(ctx).Debug().Str("tool_name", info.Name)
			if output != nil {
				ev = ev.Int("result_bytes", len(output.Response)).Str("result", truncate(output.Response, 300))
			}
			ev.Msg("tool end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Ctx(ctx).Error().Err(err).Str("tool_name", info.Name).Msg("tool error")
			return ctx
		},
	}
}

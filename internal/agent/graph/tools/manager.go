package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// Deps are the adapters behind the toolset.
type Deps struct {
	Searcher PaperSearcher
	Reader   DocumentReader
	Renderer Renderer
}

// Toolset is the fixed catalog of tools exposed to the reasoning model.
type Toolset struct {
	tools []tool.BaseTool
	infos []*schema.ToolInfo
	names map[string]bool
}

// NewToolset registers search, read_document and render_document.
func NewToolset(ctx context.Context, deps Deps) (*Toolset, error) {
	if deps.Searcher == nil || deps.Reader == nil || deps.Renderer == nil {
		return nil, fmt.Errorf("toolset dependencies are not fully initialized")
	}

	search, err := newSearchTool(deps.Searcher)
	if err != nil {
		return nil, err
	}
	read, err := newReadDocumentTool(deps.Reader)
	if err != nil {
		return nil, err
	}
	rnd, err := newRenderDocumentTool(deps.Renderer)
	if err != nil {
		return nil, err
	}

	ts := &Toolset{names: map[string]bool{}}
	for _, t := range []tool.BaseTool{search, read, rnd} {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		if ts.names[info.Name] {
			return nil, fmt.Errorf("duplicate tool name %q", info.Name)
		}
		ts.tools = append(ts.tools, t)
		ts.infos = append(ts.infos, info)
		ts.names[info.Name] = true
	}
	return ts, nil
}

// Tools returns the tools for the tools node.
func (ts *Toolset) Tools() []tool.BaseTool { return ts.tools }

// Infos returns the declarations bound to the chat model.
func (ts *Toolset) Infos() []*schema.ToolInfo { return ts.infos }

// Has reports whether name is a registered tool.
func (ts *Toolset) Has(name string) bool { return ts.names[name] }

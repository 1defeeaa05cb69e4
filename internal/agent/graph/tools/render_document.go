package tools

import (
	"context"

	"github.com/ai-researcher/server/internal/agent/model"
	"github.com/ai-researcher/server/internal/render"
)

// Renderer compiles markup into an artifact.
type Renderer interface {
	Render(ctx context.Context, markup string) render.Outcome
}

func newRenderDocumentTool(renderer Renderer) (*textTool[model.RenderDocumentArgs], error) {
	return newTextTool(model.ToolRenderDocument,
		"Render a complete LaTeX document to PDF. Pass the whole document, from \\documentclass "+
			"to \\end{document}. Returns the PDF path on success, or the compiler diagnostic to fix "+
			"and retry.",
		[]param{{Name: "latex_content", Desc: "The full LaTeX source of the document.", Required: true}},
		func(ctx context.Context, in model.RenderDocumentArgs) string {
			return renderer.Render(ctx, in.LatexContent).String()
		},
	)
}

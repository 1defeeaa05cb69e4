package model

// Toolset names exposed to the reasoning model.
const (
	ToolSearch         = "search"
	ToolReadDocument   = "read_document"
	ToolRenderDocument = "render_document"
)

// ToolNames lists the registered toolset in display order.
var ToolNames = []string{ToolSearch, ToolReadDocument, ToolRenderDocument}

type SearchArgs struct {
	Topic string `json:"topic"`
}

type ReadDocumentArgs struct {
	URL string `json:"url"`
}

type RenderDocumentArgs struct {
	LatexContent string `json:"latex_content"`
}

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/ai-researcher/server/internal/agent/model"
	logx "github.com/ai-researcher/server/pkg/logger"
)

// DocumentReader extracts readable text from a document locator.
type DocumentReader interface {
	Read(ctx context.Context, locator string) (string, error)
}

func newReadDocumentTool(reader DocumentReader) (*textTool[model.ReadDocumentArgs], error) {
	return newTextTool(model.ToolReadDocument,
		"Read a document (PDF or web page) from its URL and return its text. Use the PDF link "+
			"returned by search.",
		[]param{{Name: "url", Desc: "The http(s) URL of the document, e.g. https://arxiv.org/pdf/2501.00001v1.", Required: true}},
		func(ctx context.Context, in model.ReadDocumentArgs) string {
			locator := strings.TrimSpace(in.URL)
			text, err := reader.Read(ctx, locator)
			if err != nil {
				logx.Warn().Err(err).Str("url", locator).Msg("document read failed")
				return fmt.Sprintf("Error reading document: %v", err)
			}
			if strings.TrimSpace(text) == "" {
				return "Error reading document: no text could be extracted."
			}
			return text
		},
	)
}

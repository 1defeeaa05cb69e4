package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/ai-researcher/server/internal/agent/model"
	"github.com/ai-researcher/server/pkg/arxiv"
	logx "github.com/ai-researcher/server/pkg/logger"
)

// PaperSearcher finds papers by keywords.
type PaperSearcher interface {
	Search(ctx context.Context, topic string) ([]arxiv.Paper, error)
}

const summaryPreviewChars = 600

func newSearchTool(searcher PaperSearcher) (*textTool[model.SearchArgs], error) {
	return newTextTool(model.ToolSearch,
		"Search arXiv for recent research papers on a topic. Use plain keywords without quotes "+
			"or special characters (for example: diffusion models). Returns titles, ids, PDF links "+
			"and summaries.",
		[]param{{Name: "topic", Desc: "Plain keywords describing the research topic.", Required: true}},
		func(ctx context.Context, in model.SearchArgs) string {
			topic := strings.TrimSpace(in.Topic)
			papers, err := searcher.Search(ctx, topic)
			if err != nil {
				logx.Warn().Err(err).Str("topic", topic).Msg("paper search failed")
				return fmt.Sprintf("Error searching arXiv: %v", err)
			}
			return formatPapers(topic, papers)
		},
	)
}

func formatPapers(topic string, papers []arxiv.Paper) string {
	if len(papers) == 0 {
		return fmt.Sprintf("No papers found for %q. Try broader keywords.", topic)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d papers for %q:\n", len(papers), topic)
	for i, p := range papers {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, p.Title)
		fmt.Fprintf(&b, "   ID: %s\n", p.ID)
		if len(p.Authors) > 0 {
			fmt.Fprintf(&b, "   Authors: %s\n", strings.Join(p.Authors, ", "))
		}
		if !p.Published.IsZero() {
			fmt.Fprintf(&b, "   Published: %s\n", p.Published.Format("2006-01-02"))
		}
		fmt.Fprintf(&b, "   PDF: %s\n", p.PDFURL)
		fmt.Fprintf(&b, "   Summary: %s\n", preview(p.Summary, summaryPreviewChars))
	}
	return strings.TrimRight(b.String(), "\n")
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

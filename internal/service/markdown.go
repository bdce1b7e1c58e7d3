package service

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var summaryMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// RenderMarkdown converts a stored assessment summary to HTML for the
// provenance display endpoints. Unsafe rendering is intentional: the
// summaries carry raw <details> blocks that must survive.
func RenderMarkdown(markdown string) (string, error) {
	var out bytes.Buffer
	if err := summaryMarkdown.Convert([]byte(markdown), &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

// BalanceCollapsibleTags closes any <summary> and <details> tags the model
// left open, in that nesting order. Truncated completions otherwise leave
// the rest of the transcript swallowed inside a collapsible block.
func BalanceCollapsibleTags(text string) string {
	var sb strings.Builder
	sb.WriteString(text)
	openSummary := strings.Count(text, "<summary>") - strings.Count(text, "</summary>")
	for i := 0; i < openSummary; i++ {
		sb.WriteString("</summary>")
	}
	openDetails := strings.Count(text, "<details>") - strings.Count(text, "</details>")
	for i := 0; i < openDetails; i++ {
		sb.WriteString("\n\n</details>")
	}
	return sb.String()
}

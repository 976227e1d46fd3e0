package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdown converter shared by HTML exports.
//
//nolint:gochecknoglobals // goldmark.Markdown is safe for concurrent use
var converter = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// composeMarkdown lays the payload out as a markdown document.
func composeMarkdown(payload *Payload) []byte {
	var b strings.Builder

	b.WriteString("# Generated Content\n\n")

	if payload.SystemPrompt != "" {
		b.WriteString("## System Prompt\n\n")
		b.WriteString(payload.SystemPrompt)
		b.WriteString("\n\n")
	}

	b.WriteString("## Prompt\n\n")
	b.WriteString(payload.UserPrompt)
	b.WriteString("\n\n## Response\n\n")
	b.WriteString(payload.Content)
	b.WriteString("\n\n---\n\n")

	if payload.Provider != "" || payload.Model != "" {
		b.WriteString(fmt.Sprintf("- Model: %s/%s\n", payload.Provider, payload.Model))
	}
	if payload.Usage.TotalTokens > 0 {
		b.WriteString(fmt.Sprintf("- Tokens: %d\n", payload.Usage.TotalTokens))
	}
	generatedAt := payload.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}
	b.WriteString(fmt.Sprintf("- Generated: %s\n", generatedAt.Format(time.RFC3339)))

	return []byte(b.String())
}

// renderHTML converts the composed markdown into a standalone HTML document.
func renderHTML(payload *Payload) ([]byte, error) {
	var body bytes.Buffer
	if err := converter.Convert(composeMarkdown(payload), &body); err != nil {
		return nil, fmt.Errorf("markdown conversion failed: %w", err)
	}

	var doc bytes.Buffer
	doc.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	doc.WriteString("<title>Generated Content</title>\n</head>\n<body>\n")
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")
	return doc.Bytes(), nil
}

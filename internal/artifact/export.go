package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatYAML     Format = "yaml"
	FormatJSON     Format = "json"
)

// raw HTML in generated text stays escaped
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// ParseFormat accepts a format name or a common file extension
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", errors.Errorf("unsupported export format %q", s)
}

// PlanMarkdown renders a session plan as Markdown
func PlanMarkdown(p Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", p.SessionTitle)
	for i, block := range p.Blocks {
		fmt.Fprintf(&b, "\n## %d. %s\n\n", i+1, block.Title)
		meta := []string{}
		if block.Duration != "" {
			meta = append(meta, string(block.Duration))
		}
		if block.Type != "" {
			meta = append(meta, strings.ReplaceAll(block.Type, "_", " "))
		}
		if len(meta) > 0 {
			fmt.Fprintf(&b, "*%s*\n\n", strings.Join(meta, " · "))
		}
		if block.Activity != "" {
			fmt.Fprintf(&b, "%s\n", block.Activity)
		}
		if len(block.Questions) > 0 {
			b.WriteString("\n")
			for _, q := range block.Questions {
				fmt.Fprintf(&b, "- %s\n", q)
			}
		}
	}
	return b.String()
}

// SummaryMarkdown renders an AI summary as Markdown
func SummaryMarkdown(s Summary) string {
	var b strings.Builder
	b.WriteString("# Summary\n\n")
	for _, point := range s.Summary {
		fmt.Fprintf(&b, "- %s\n", point)
	}
	if len(s.KeyConcepts) > 0 {
		b.WriteString("\n## Key concepts\n\n")
		for _, c := range s.KeyConcepts {
			fmt.Fprintf(&b, "- **%s**: %s\n", c.Concept, c.Explanation)
		}
	}
	if len(s.DiscussionPrompts) > 0 {
		b.WriteString("\n## Discussion prompts\n\n")
		for i, q := range s.DiscussionPrompts {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
	}
	return b.String()
}

// ExportPlan renders a session plan in the given format
func ExportPlan(p Plan, f Format) ([]byte, error) {
	return export(p, p.SessionTitle, PlanMarkdown(p), f)
}

// ExportSummary renders a summary in the given format
func ExportSummary(s Summary, f Format) ([]byte, error) {
	return export(s, "Summary", SummaryMarkdown(s), f)
}

func export(v interface{}, title, markdown string, f Format) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return []byte(markdown), nil
	case FormatHTML:
		return renderHTML(title, markdown)
	case FormatYAML:
		out, err := yaml.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode yaml")
		}
		return out, nil
	case FormatJSON:
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode json")
		}
		return out, nil
	}
	return nil, errors.Errorf("unsupported export format %q", f)
}

func renderHTML(title, markdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := mdRenderer.Convert([]byte(markdown), &body); err != nil {
		return nil, errors.Wrap(err, "failed to render markdown")
	}

	var doc bytes.Buffer
	doc.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&doc, "<title>%s</title>\n", html.EscapeString(title))
	doc.WriteString("<style>@media print { body { margin: 1.5cm; } } body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }</style>\n")
	doc.WriteString("</head>\n<body>\n")
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")
	return doc.Bytes(), nil
}

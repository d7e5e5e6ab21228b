package format

import (
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// Markdown implements Format for Markdown files. Markup is dropped and
// each heading, paragraph and list item becomes its own paragraph; code
// blocks and raw HTML are skipped.
type Markdown struct{}

func init() {
	Register(&Markdown{})
}

func (f *Markdown) Name() string         { return "Markdown" }
func (f *Markdown) Type() string         { return "md" }
func (f *Markdown) Extensions() []string { return []string{".md", ".markdown"} }

func (f *Markdown) Extract(filename string) (string, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return markdownText(src), nil
}

func markdownText(src []byte) string {
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(src))

	var blocks []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		case ast.KindHeading, ast.KindParagraph, ast.KindTextBlock:
			blocks = append(blocks, inlineText(n, src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return joinBlocks(blocks)
}

// inlineText concatenates the text leaves under a block node.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.AutoLink:
			b.Write(t.Label(src))
		case *ast.RawHTML:
		default:
			b.WriteString(inlineText(c, src))
		}
	}
	return strings.TrimSpace(b.String())
}

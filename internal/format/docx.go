package format

import (
	"fmt"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCX implements Format for Word documents. Each paragraph of the body
// becomes a paragraph of text.
type DOCX struct{}

func init() {
	Register(&DOCX{})
}

func (f *DOCX) Name() string         { return "DOCX" }
func (f *DOCX) Type() string         { return "docx" }
func (f *DOCX) Extensions() []string { return []string{".docx"} }

func (f *DOCX) Extract(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", err
	}
	doc, err := docx.Parse(file, info.Size())
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}

	var paras []string
	for _, item := range doc.Document.Body.Items {
		if p, ok := item.(*docx.Paragraph); ok {
			paras = append(paras, paragraphText(p))
		}
	}
	return joinBlocks(paras), nil
}

func paragraphText(p *docx.Paragraph) string {
	var b strings.Builder
	for _, child := range p.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				b.WriteString(t.Text)
			}
		}
	}
	return b.String()
}

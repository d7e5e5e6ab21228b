package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EPUB implements Format for EPUB files.
type EPUB struct{}

func init() {
	Register(&EPUB{})
}

func (f *EPUB) Name() string         { return "EPUB" }
func (f *EPUB) Type() string         { return "epub" }
func (f *EPUB) Extensions() []string { return []string{".epub"} }

// Extract returns the text of every spine section in reading order,
// sections separated by blank lines.
func (f *EPUB) Extract(filename string) (string, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return "", fmt.Errorf("open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return "", fmt.Errorf("no rootfiles found in epub")
	}

	book := rc.Rootfiles[0]
	var sections []string
	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			continue
		}
		sections = append(sections, htmlText(string(data)))
	}
	return joinBlocks(sections), nil
}

// blockAtoms are the elements that end a paragraph.
var blockAtoms = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Blockquote: true, atom.Pre: true, atom.Tr: true,
	atom.Dt: true, atom.Dd: true, atom.Figcaption: true, atom.Hr: true,
}

// htmlText flattens an XHTML section to text, one paragraph per block
// element. Head, script and style content is skipped.
func htmlText(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}

	var blocks []string
	var cur strings.Builder
	flush := func() {
		blocks = append(blocks, strings.Join(strings.Fields(cur.String()), " "))
		cur.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Head, atom.Script, atom.Style:
				return
			case atom.Br:
				cur.WriteString(" ")
				return
			}
		}

		block := n.Type == html.ElementNode && blockAtoms[n.DataAtom]
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(doc)
	flush()
	return joinBlocks(blocks)
}

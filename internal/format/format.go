// Package format extracts plain text from the document types florida can
// import. Each type is a Format registered at init; ExtractText picks one
// by extension, then by sniffing the file's first bytes, and falls back to
// plain text.
package format

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format defines a file format reader for extracting text.
type Format interface {
	// Name is the human label used in errors, e.g. "PDF".
	Name() string
	// Type is the source type tag stored with a document, e.g. "pdf".
	Type() string
	Extensions() []string
	Extract(filename string) (string, error)
}

// ExtractError reports that a file could not be parsed by its format.
type ExtractError struct {
	Type string
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("failed to parse %s file: %v", e.Type, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

var registry []Format

// Register adds a format reader to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// ByType returns the registered format with the given type tag.
func ByType(typ string) (Format, bool) {
	for _, f := range registry {
		if f.Type() == typ {
			return f, true
		}
	}
	return nil, false
}

// Detect chooses the format for filename: a registered extension wins,
// otherwise the leading bytes are sniffed. Unknown files are plain text.
func Detect(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f, nil
			}
		}
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return Sniff(head[:n]), nil
}

// Sniff identifies a format from the start of a file.
func Sniff(head []byte) Format {
	typ := "txt"
	switch {
	case bytes.HasPrefix(head, []byte("%PDF-")):
		typ = "pdf"
	case bytes.HasPrefix(head, []byte("PK\x03\x04")):
		switch {
		case bytes.Contains(head, []byte("application/epub+zip")):
			typ = "epub"
		case bytes.Contains(head, []byte("[Content_Types].xml")), bytes.Contains(head, []byte("word/")):
			typ = "docx"
		}
	}
	f, ok := ByType(typ)
	if !ok {
		return &Text{}
	}
	return f
}

// ExtractText detects the format of filename and extracts its text.
// Parse failures are returned as *ExtractError naming the format.
func ExtractText(filename string) (string, Format, error) {
	if _, err := os.Stat(filename); err != nil {
		return "", nil, err
	}
	f, err := Detect(filename)
	if err != nil {
		return "", nil, err
	}
	s, err := f.Extract(filename)
	if err != nil {
		return "", f, &ExtractError{Type: f.Name(), Err: err}
	}
	return s, f, nil
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}

// joinBlocks joins non-empty text blocks with blank lines so each becomes
// a paragraph.
func joinBlocks(blocks []string) string {
	kept := blocks[:0:0]
	for _, b := range blocks {
		if b = strings.TrimSpace(b); b != "" {
			kept = append(kept, b)
		}
	}
	return strings.Join(kept, "\n\n")
}

package format

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"
)

// Text implements Format for plain text files.
type Text struct{}

func init() {
	Register(&Text{})
}

func (f *Text) Name() string         { return "plain text" }
func (f *Text) Type() string         { return "txt" }
func (f *Text) Extensions() []string { return []string{".txt", ".text"} }

func (f *Text) Extract(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", fmt.Errorf("not valid UTF-8 text")
	}
	return string(data), nil
}

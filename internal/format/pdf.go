package format

import (
	"errors"
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"rsc.io/pdf"
)

// PDF implements Format for PDF files. Pages are extracted with
// ledongthuc/pdf; when that fails the rsc.io/pdf content stream reader is
// tried. Pages are separated by blank lines.
type PDF struct{}

func init() {
	Register(&PDF{})
}

func (f *PDF) Name() string         { return "PDF" }
func (f *PDF) Type() string         { return "pdf" }
func (f *PDF) Extensions() []string { return []string{".pdf"} }

func (f *PDF) Extract(filename string) (string, error) {
	s, err := plainPDFText(filename)
	if err == nil {
		return s, nil
	}
	s, ferr := contentPDFText(filename)
	if ferr != nil {
		return "", errors.Join(err, ferr)
	}
	return s, nil
}

// Both libraries panic on some malformed files.
func recoverPDF(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed pdf: %v", r)
	}
}

func plainPDFText(path string) (s string, err error) {
	defer recoverPDF(&err)

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}
	return joinBlocks(pages), nil
}

func contentPDFText(path string) (s string, err error) {
	defer recoverPDF(&err)

	doc, err := pdf.Open(path)
	if err != nil {
		return "", err
	}

	var pages []string
	for i := 1; i <= doc.NumPage(); i++ {
		p := doc.Page(i)
		if p.V.IsNull() {
			continue
		}
		var parts []string
		for _, t := range p.Content().Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			parts = append(parts, t.S)
		}
		pages = append(pages, strings.Join(parts, " "))
	}
	return joinBlocks(pages), nil
}

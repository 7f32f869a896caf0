package ingest

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Page is the plain text of one document page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// PageReader extracts per-page text from a source file
type PageReader interface {
	ReadPages(path string) ([]Page, error)
}

// PDFReader reads page text with ledongthuc/pdf. Embedded images are not extracted.
type PDFReader struct{}

// ReadPages returns every page in order, including pages without text
func (PDFReader) ReadPages(path string) ([]Page, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	total := rdr.NumPage()
	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		p := rdr.Page(i)
		if p.V.IsNull() {
			pages = append(pages, Page{Number: i})
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read text of page %d: %w", i, err)
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}

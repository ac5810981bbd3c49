package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageSeparator joins pages in ExtractPDFText output.
const PageSeparator = "\f"

var ErrNotPDF = errors.New("extractor: payload is not a pdf")

// ExtractPDFText returns the plain text of every page joined with form feeds
// and the native page count. A page that fails to decode is left empty.
func ExtractPDFText(data []byte) (text string, pages int, err error) {
	if len(data) < 5 || string(data[:5]) != "%PDF-" {
		return "", 0, ErrNotPDF
	}

	defer func() {
		// The pdf reader panics on some malformed xref tables.
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("pdf reader: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("pdf reader: %w", err)
	}

	pages = r.NumPage()
	parts := make([]string, pages)
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= pages; i++ {
		parts[i-1] = pageText(r.Page(i), fonts)
	}
	return strings.Join(parts, PageSeparator), pages, nil
}

func pageText(p pdf.Page, fonts map[string]*pdf.Font) (out string) {
	defer func() {
		if recover() != nil {
			out = ""
		}
	}()
	if p.V.IsNull() {
		return ""
	}
	for _, name := range p.Fonts() {
		if _, ok := fonts[name]; !ok {
			f := p.Font(name)
			fonts[name] = &f
		}
	}
	txt, err := p.GetPlainText(fonts)
	if err != nil {
		return ""
	}
	return txt
}

// Package extractor turns an uploaded payload into either a passthrough
// binary for vision-capable models or plain text. It never fails: anything
// it cannot read becomes empty text.
package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"mime"
	"strings"
)

type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
	KindText  Kind = "text"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeDOC  = "application/msword"
)

// Result is one of pdf-passthrough, image-passthrough or extracted text.
// Data is only set for passthrough kinds.
type Result struct {
	Kind     Kind
	MimeType string
	Data     []byte
	Text     string
}

// IsPassthrough reports whether the payload should be handed to the model as-is.
func (r Result) IsPassthrough() bool {
	return r.Kind == KindPDF || r.Kind == KindImage
}

func Extract(data []byte, mimeType string) Result {
	mt := normalizeMime(mimeType)

	switch {
	case mt == MimePDF:
		return Result{Kind: KindPDF, MimeType: mt, Data: data}
	case strings.HasPrefix(mt, "image/"):
		return Result{Kind: KindImage, MimeType: mt, Data: data}
	case mt == MimeDOCX || mt == MimeDOC:
		return Result{Kind: KindText, MimeType: mt, Text: extractDOCX(data)}
	case mt == "text/plain" || mt == "text/markdown" || mt == "text/csv":
		return Result{Kind: KindText, MimeType: mt, Text: strings.ToValidUTF8(string(data), "�")}
	default:
		return Result{Kind: KindText, MimeType: mt}
	}
}

func normalizeMime(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mt
}

// extractDOCX reads word/document.xml, one line per <w:p>. Legacy binary
// .doc files fail the zip open and come back empty.
func extractDOCX(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return ""
	}

	rc, err := doc.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return ""
	}

	return paragraphsFromXML(body)
}

func paragraphsFromXML(body []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var out, para strings.Builder
	flush := func() {
		if line := strings.TrimSpace(para.String()); line != "" {
			if out.Len() > 0 {
				out.WriteString("\n")
			}
			out.WriteString(line)
		}
		para.Reset()
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "t":
				var v string
				if dec.DecodeElement(&v, &se) == nil {
					para.WriteString(v)
				}
			case "tab":
				para.WriteString("\t")
			case "br":
				para.WriteString("\n")
			}
		case xml.EndElement:
			if se.Name.Local == "p" {
				flush()
			}
		}
	}
	flush()
	return out.String()
}

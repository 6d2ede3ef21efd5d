/*
extract - Document text extraction

PURPOSE:
  Turns an uploaded contract file into plain text for field extraction.
  PDFs are read natively and fall back to OCR when they look scanned;
  Word documents are read from their OOXML body.

DESIGN:
  - Router picks an Extractor from the content type, then the extension
  - OCR backends are optional and tried in order (OCRChain)
  - Every failure is an *ExtractionError carrying a Kind

SEE ALSO:
  - pdf.go, docx.go: format readers
  - textract.go, azure.go: OCR backends
*/
package extract

import (
	"context"
	"path/filepath"
	"strings"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeDOC  = "application/msword"
)

// Document is an uploaded file.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte

	// Pages is the page count when known (PDF only), 0 otherwise.
	Pages int
}

// Extractor produces plain text from a document.
type Extractor interface {
	Extract(ctx context.Context, doc Document) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, doc Document) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, doc Document) (string, error) {
	return f(ctx, doc)
}

// Router dispatches documents to the extractor for their format.
type Router struct {
	PDF  Extractor
	Word Extractor
}

// NewRouter builds a router with the default readers. ocr may be nil.
func NewRouter(ocr OCR) *Router {
	return &Router{
		PDF:  NewPDFExtractor(ocr),
		Word: DocxExtractor{},
	}
}

// Extract implements Extractor.
func (r *Router) Extract(ctx context.Context, doc Document) (string, error) {
	var ex Extractor
	switch DetectType(doc) {
	case MimePDF:
		ex = r.PDF
	case MimeDOCX, MimeDOC:
		ex = r.Word
	}
	if ex == nil {
		return "", newError(KindUnsupportedType, doc, ErrUnsupportedType)
	}
	return ex.Extract(ctx, doc)
}

// DetectType normalizes the declared content type, falling back to the
// file extension when the type is missing or generic.
func DetectType(doc Document) string {
	ct := strings.ToLower(strings.TrimSpace(doc.ContentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case MimePDF, MimeDOCX, MimeDOC:
		return ct
	}

	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	case ".doc":
		return MimeDOC
	}
	return ct
}

package extract

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MinNativeText is the amount of trimmed text below which a PDF is treated
// as a scanned image.
const MinNativeText = 50

// PDFExtractor reads the text layer of a PDF and falls back to OCR for
// scanned or partially scanned documents.
type PDFExtractor struct {
	OCR OCR

	readPages func(data []byte) ([]string, error)
}

// NewPDFExtractor returns a PDF reader. ocr may be nil.
func NewPDFExtractor(ocr OCR) *PDFExtractor {
	return &PDFExtractor{OCR: ocr, readPages: nativePages}
}

// Extract implements Extractor.
func (e *PDFExtractor) Extract(ctx context.Context, doc Document) (string, error) {
	pages, err := e.readPages(doc.Data)
	if err != nil {
		return "", newError(KindParseFailed, doc, err)
	}

	withText := 0
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			withText++
		}
	}
	native := strings.TrimSpace(strings.Join(pages, "\n"))

	scanned := len(native) < MinNativeText
	truncated := !scanned && withText*2 < len(pages)
	if !scanned && !truncated {
		return native, nil
	}

	if e.OCR == nil {
		if truncated {
			log.Printf("[Extract] %s: %d of %d pages have text, no OCR configured", doc.Filename, withText, len(pages))
			return native, nil
		}
		return "", newError(KindScanned, doc, ErrOCRUnavailable)
	}

	log.Printf("[Extract] %s: running OCR (scanned=%v, pages with text %d/%d)", doc.Filename, scanned, withText, len(pages))
	doc.Pages = len(pages)
	ocrText, err := e.OCR.Recognize(ctx, doc)
	if err != nil {
		if truncated {
			log.Printf("[Extract] %s: OCR failed, keeping native text: %v", doc.Filename, err)
			return native, nil
		}
		return "", newError(KindOCRFailed, doc, err)
	}
	ocrText = strings.TrimSpace(ocrText)

	if len(ocrText) > len(native) {
		return ocrText, nil
	}
	if native == "" {
		return "", newError(KindEmpty, doc, ErrEmptyText)
	}
	return native, nil
}

// nativePages returns the plain text of each page.
func nativePages(data []byte) (pages []string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

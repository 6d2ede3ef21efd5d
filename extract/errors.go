package extract

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrOCRUnavailable   = errors.New("document appears to be scanned and no OCR backend is configured")
	ErrEmptyText        = errors.New("no text could be extracted from the document")
	ErrDocumentTooLarge = errors.New("document exceeds the OCR tier limits")
)

// Kind classifies an extraction failure.
type Kind string

const (
	KindUnsupportedType Kind = "unsupported_type"
	KindParseFailed     Kind = "parse_failed"
	KindScanned         Kind = "scanned"
	KindOCRFailed       Kind = "ocr_failed"
	KindEmpty           Kind = "empty"
)

// ExtractionError reports why a document yielded no usable text.
type ExtractionError struct {
	Kind     Kind
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("text extraction failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("text extraction failed for %s (%s): %v", e.Filename, e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func newError(kind Kind, doc Document, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Filename: doc.Filename, Err: err}
}

// IsExtractionError reports whether err came out of this package.
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}

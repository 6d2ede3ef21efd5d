package extract

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// OCR recognizes text in an image-only document.
type OCR interface {
	Name() string
	Recognize(ctx context.Context, doc Document) (string, error)
}

// OCRChain tries each backend in order and returns the first non-empty text.
type OCRChain []OCR

func (c OCRChain) Name() string {
	names := make([]string, len(c))
	for i, o := range c {
		names[i] = o.Name()
	}
	return strings.Join(names, ",")
}

// Recognize implements OCR. When every backend fails the returned error
// carries all of their failures.
func (c OCRChain) Recognize(ctx context.Context, doc Document) (string, error) {
	if len(c) == 0 {
		return "", ErrOCRUnavailable
	}

	var errs *multierror.Error
	for _, o := range c {
		text, err := o.Recognize(ctx, doc)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err == nil {
			err = ErrEmptyText
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", errors.Join(ctxErr, err)
		}
		log.Printf("[OCR] %s failed for %s: %v", o.Name(), doc.Filename, err)
		errs = multierror.Append(errs, err)
	}
	return "", errs.ErrorOrNil()
}

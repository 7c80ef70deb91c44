package files

import (
	"context"
	"fmt"

	"github.com/cuongbtq/printdesk/internal/domain"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFPageCounter reads page counts with pdfcpu
type PDFPageCounter struct{}

// PageCount returns the number of pages of the PDF at path
func (PDFPageCounter) PageCount(ctx context.Context, path string) (n int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// pdfcpu can panic on badly broken input
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%w: %s: %v", domain.ErrPdfRead, path, r)
		}
	}()

	n, err = api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrPdfRead, path, err)
	}
	return n, nil
}

// Package pdfcheck validates guideline files before they are uploaded,
// so an unreadable document fails fast instead of burning a backend job.
package pdfcheck

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Validate checks that path names a readable PDF with at least one page.
func Validate(path string) (err error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return fmt.Errorf("%s: not a PDF file", filepath.Base(path))
	}

	// The parser panics on some corrupt cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: unreadable PDF: %v", filepath.Base(path), r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("%s: unreadable PDF: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if reader.NumPage() < 1 {
		return fmt.Errorf("%s: PDF has no pages", filepath.Base(path))
	}
	return nil
}

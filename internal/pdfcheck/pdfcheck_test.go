package pdfcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalPDF builds the smallest one-page PDF the parser accepts.
func minimalPDF(t *testing.T) string {
	t.Helper()

	header := "%PDF-1.4\n"
	objects := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n",
	}

	body := header
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = len(body)
		body += obj
	}

	xrefPos := len(body)
	body += fmt.Sprintf("xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		body += fmt.Sprintf("%010d 00000 n \n", off)
	}
	body += fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefPos)

	path := filepath.Join(t.TempDir(), "guideline.pdf")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestValidateAcceptsPDF(t *testing.T) {
	assert.NoError(t, Validate(minimalPDF(t)))
}

func TestValidateRejectsWrongExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guideline.docx")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0644))

	err := Validate(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a PDF file")
}

func TestValidateRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 garbage with no xref"), 0644))

	assert.Error(t, Validate(path))
}

func TestValidateRejectsMissingFile(t *testing.T) {
	assert.Error(t, Validate(filepath.Join(t.TempDir(), "missing.pdf")))
}

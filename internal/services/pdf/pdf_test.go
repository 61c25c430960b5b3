package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestPDF writes a minimal but valid PDF with the given number of empty
// pages, computing the xref offsets as it goes.
func writeTestPDF(t *testing.T, path string, pages int) {
	t.Helper()

	var buf bytes.Buffer
	var offsets []int

	buf.WriteString("%PDF-1.4\n")

	addObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	kids := make([]string, pages)
	for i := 0; i < pages; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
	}

	addObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	addObj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
		strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		addObj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << >> >>\nendobj\n", 3+i))
	}

	xrefPos := buf.Len()
	size := len(offsets) + 1
	buf.WriteString(fmt.Sprintf("xref\n0 %d\n", size))
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}
	buf.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		size, xrefPos))

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"JEAN DUPONT", "JEAN_DUPONT"},
		{"MARIE-CLAIRE MARTIN", "MARIE-CLAIRE_MARTIN"},
		{"O'BRIEN", "OBRIEN"},
		{"  DUPONT  ", "DUPONT"},
		{"DUPONT/../../etc", "DUPONT..etc"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeFilename(tt.in), "SafeFilename(%q)", tt.in)
	}
}

func TestOutputFilename(t *testing.T) {
	assert.Equal(t, "JEAN_DUPONT_2025_08.pdf", OutputFilename("JEAN DUPONT", "2025_08"))
}

func TestValidatePDF(t *testing.T) {
	assert.True(t, ValidatePDF([]byte("%PDF-1.4\nrest")))
	assert.False(t, ValidatePDF([]byte("PK\x03\x04 definitely a zip")))
	assert.False(t, ValidatePDF(nil))
}

func TestWriteSubset_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.pdf")
	writeTestPDF(t, src, 8)

	out, err := WriteSubset(src, dir, "JEAN_DUPONT_2025_08.pdf", []int{2, 5, 7})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "JEAN_DUPONT_2025_08.pdf"), out)

	// Reading the subset back yields exactly 3 pages.
	count, err := api.PageCountFile(out)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestWriteSubset_NoPages(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.pdf")
	writeTestPDF(t, src, 2)

	_, err := WriteSubset(src, dir, "EMPTY.pdf", nil)
	assert.Error(t, err)
}

func TestProtect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payslip.pdf")
	writeTestPDF(t, path, 2)

	require.NoError(t, Protect(path, "1001"))

	// The right password opens it.
	conf := relaxedConf()
	conf.UserPW = "1001"
	assert.NoError(t, api.ValidateFile(path, conf))

	// Without the password the file refuses to open.
	assert.Error(t, api.ValidateFile(path, relaxedConf()))
}

func TestPageTexts_PageCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "source.pdf")
	writeTestPDF(t, path, 4)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	texts, err := PageTexts(data)
	require.NoError(t, err)
	assert.Len(t, texts, 4)
}

// Package pdftest builds small, valid PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Bytes returns a PDF with the given number of pages. Page i carries a
// filled bar whose width is 10*i points, so extracted ranges can be told
// apart by their content streams.
func Bytes(pages int) []byte {
	var (
		buf     bytes.Buffer
		offsets []int
	)
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	// 1: catalog, 2: page tree, then a page and its content stream per page.
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	var kids bytes.Buffer
	for i := 0; i < pages; i++ {
		fmt.Fprintf(&kids, "%d 0 R ", 3+2*i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /Resources << >> /MediaBox [0 0 612 792] >>", kids.String(), pages))
	for i := 0; i < pages; i++ {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Contents %d 0 R >>", 4+2*i))
		content := fmt.Sprintf("q 0 0 0 rg 20 20 %d 10 re f Q", 10*(i+1))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// WriteBlankPDF writes a PDF with the given number of pages to path.
func WriteBlankPDF(path string, pages int) error {
	return os.WriteFile(path, Bytes(pages), 0o644)
}

// Write creates dir/name with the given number of pages and returns its path.
func Write(tb testing.TB, dir, name string, pages int) string {
	tb.Helper()
	p := filepath.Join(dir, name)
	if err := WriteBlankPDF(p, pages); err != nil {
		tb.Fatalf("write %s: %v", p, err)
	}
	return p
}

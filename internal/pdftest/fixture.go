// Package pdftest builds small PDF documents for tests and reads back the
// page identity markers they carry.
//
// Every generated page has a MediaBox of [0 0 width 400]; callers pick a
// distinct width per page so that page order survives a round trip through
// trimming and merging and can be checked with PageWidths.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageHeight is the fixed height of every generated page.
const PageHeight = 400

// Bytes returns a valid PDF with one page per width.
func Bytes(widths ...int) []byte {
	var buf bytes.Buffer
	n := len(widths)
	offsets := make([]int, 0, 2+2*n)

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")

	var kids bytes.Buffer
	for i := range widths {
		fmt.Fprintf(&kids, "%d 0 R ", 3+2*i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), n))

	for i, w := range widths {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << >> /Contents %d 0 R >>", w, PageHeight, 4+2*i))
		content := fmt.Sprintf("%d 0 m %d %d l S", 0, w, PageHeight)
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

// Write stores a generated PDF at dir/name and returns its path.
func Write(t testing.TB, dir, name string, widths ...int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, Bytes(widths...), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", p, err)
	}
	return p
}

// Widths returns count consecutive widths starting at base, e.g. base+0, base+1, ...
func Widths(base, count int) []int {
	out := make([]int, count)
	for i := range out {
		out[i] = base + i
	}
	return out
}

// PageWidths reads the MediaBox width of every page of the PDF at path.
func PageWidths(t testing.TB, path string) []int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	dims, err := api.PageDims(f, conf)
	if err != nil {
		t.Fatalf("page dims %s: %v", path, err)
	}
	out := make([]int, len(dims))
	for i, d := range dims {
		out[i] = int(d.Width + 0.5)
	}
	return out
}

// DisableConfigDir keeps pdfcpu from creating its user config directory
// during tests.
func DisableConfigDir() { api.DisableConfigDir() }

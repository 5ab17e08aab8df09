package pdf

import (
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/local/pdfsplitter/internal/split"
)

// PageCount returns the number of pages of the PDF at path.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n, err := api.PageCount(f, model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("pdf page count failed: %w", err)
	}
	return n, nil
}

// Extractor copies page ranges into new PDF documents with pdfcpu.
// The source is opened and parsed for every call; a parsed context is
// never shared between extractions.
type Extractor struct {
	conf *model.Configuration
}

func NewExtractor() *Extractor {
	return &Extractor{conf: model.NewDefaultConfiguration()}
}

// ExtractRange writes pages r.Start..r.End of src to w as a standalone PDF.
func (x *Extractor) ExtractRange(src string, r split.PageRange, w io.Writer) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, x.conf)
	if err != nil {
		return fmt.Errorf("read pdf: %w", err)
	}
	if err := split.ValidateRange(r, ctx.PageCount); err != nil {
		return err
	}

	pages := make([]int, 0, r.Pages())
	for p := r.Start; p <= r.End; p++ {
		pages = append(pages, p)
	}
	out, err := pdfcpu.ExtractPages(ctx, pages, false)
	if err != nil {
		return fmt.Errorf("extract pages: %w", err)
	}
	if err := api.WriteContext(out, w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

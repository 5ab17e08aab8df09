package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/rs/zerolog/log"
)

// DefaultDPI renders at twice the PDF base resolution of 72 DPI.
const DefaultDPI = 144

// Doc abstracts a rasterizable PDF document.
type Doc interface {
	NumPage() int
	ImageDPI(pageNumber int, dpi float64) (*image.RGBA, error)
	Close() error
}

// Opener abstracts opening a PDF path into a Doc.
type Opener interface {
	Open(path string) (Doc, error)
}

// defaultOpener is provided in render_fitz.go using go-fitz.
var defaultOpener Opener

// PageImage is one rendered page, numbered from 1.
type PageImage struct {
	Number int
	PNG    []byte
	Width  int
	Height int
}

// ErrTooManyPages is returned when a document exceeds the render limit.
var ErrTooManyPages = errors.New("too many pages to render")

// Renderer turns PDF pages into PNG images for the classifier.
type Renderer struct {
	dpi      float64
	maxPages int
	opener   Opener
}

// NewRenderer returns a renderer at dpi. maxPages <= 0 disables the limit.
func NewRenderer(dpi float64, maxPages int) *Renderer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Renderer{dpi: dpi, maxPages: maxPages, opener: defaultOpener}
}

// WithOpener swaps the document backend.
func (r *Renderer) WithOpener(o Opener) *Renderer {
	r.opener = o
	return r
}

// Render rasterizes every page of the PDF at path in page order.
func (r *Renderer) Render(path string) ([]PageImage, error) {
	if r.opener == nil {
		return nil, errors.New("no PDF opener configured")
	}
	doc, err := r.opener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if r.maxPages > 0 && total > r.maxPages {
		return nil, fmt.Errorf("%w: %d pages, limit %d", ErrTooManyPages, total, r.maxPages)
	}

	out := make([]PageImage, 0, total)
	for i := 0; i < total; i++ {
		img, err := doc.ImageDPI(i, r.dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode page %d: %w", i+1, err)
		}
		b := img.Bounds()
		out = append(out, PageImage{Number: i + 1, PNG: buf.Bytes(), Width: b.Dx(), Height: b.Dy()})
	}
	log.Debug().Str("file", path).Int("pages", total).Float64("dpi", r.dpi).Msg("rendered pages")
	return out, nil
}

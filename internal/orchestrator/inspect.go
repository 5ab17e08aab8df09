package orchestrator

import (
	"github.com/rs/zerolog/log"

	"github.com/local/pdfsplitter/internal/filetype"
	"github.com/local/pdfsplitter/internal/pdf"
	"github.com/local/pdfsplitter/internal/split"
)

// Inspector builds split.SourceDocument values from files on disk. The
// kind comes from magic bytes, page count and hash only for PDFs.
type Inspector struct {
	detector  *filetype.Detector
	pageCount func(string) (int, error)
	hash      func(string) (string, error)
}

func NewInspector() *Inspector {
	return &Inspector{detector: filetype.New(), pageCount: pdf.PageCount, hash: pdf.ContentHash}
}

// Inspect fails only when the file cannot be read at all. A PDF that
// pdfcpu cannot parse is returned with zero pages.
func (i *Inspector) Inspect(path string) (split.SourceDocument, error) {
	info, err := i.detector.Detect(path)
	if err != nil {
		return split.SourceDocument{}, err
	}
	doc := split.SourceDocument{Path: path, Kind: info.Kind}
	if doc.Kind != split.KindPDF {
		return doc, nil
	}
	n, err := i.pageCount(path)
	if err != nil {
		log.Warn().Err(err).Str("source", path).Msg("pdf page count failed")
		return doc, nil
	}
	doc.TotalPages = n
	if h, err := i.hash(path); err == nil {
		doc.ContentHash = h
	}
	log.Debug().Str("source", path).Int("pages", n).Str("hash", doc.ContentHash).Msg("source inspected")
	return doc, nil
}

package filetype

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfsplitter/internal/split"
)

// Info contains detected file type information
type Info struct {
	MIMEType  string
	Extension string
	Kind      split.Kind
}

// Detector handles file type detection using magic bytes
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// Detect detects the actual file type using magic bytes, not filename.
// A file named report.pdf holding a PNG is an image.
func (d *Detector) Detect(filePath string) (*Info, error) {
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}
	info := &Info{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
		Kind:      kindOf(mtype),
	}
	log.Debug().Str("mime", info.MIMEType).Str("kind", string(info.Kind)).Str("file", filePath).Msg("detected file type")
	return info, nil
}

func kindOf(m *mimetype.MIME) split.Kind {
	switch {
	case m.Is("application/pdf"):
		return split.KindPDF
	case strings.HasPrefix(m.String(), "image/"):
		return split.KindImage
	}
	return split.KindOther
}

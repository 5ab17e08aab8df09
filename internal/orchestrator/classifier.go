package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfsplitter/internal/ai"
	"github.com/local/pdfsplitter/internal/pdf"
	"github.com/local/pdfsplitter/internal/split"
)

// PageRenderer rasterizes a PDF. *pdf.Renderer satisfies it.
type PageRenderer interface {
	Render(path string) ([]pdf.PageImage, error)
}

// PageClassifier renders a source PDF and asks the ai client where its
// logical documents start and end.
type PageClassifier struct {
	renderer PageRenderer
	client   ai.Client
}

func NewPageClassifier(r PageRenderer, c ai.Client) *PageClassifier {
	return &PageClassifier{renderer: r, client: c}
}

// Classify returns the labels and the usage spent. Usage is set even when
// the provider call failed after billing tokens.
func (p *PageClassifier) Classify(ctx context.Context, src split.SourceDocument) (split.Classification, error) {
	start := time.Now()
	pages, err := p.renderer.Render(src.Path)
	if err != nil {
		return split.Classification{}, fmt.Errorf("render pages: %w", err)
	}
	images := make([]ai.Image, 0, len(pages))
	for _, pg := range pages {
		images = append(images, ai.Image{Page: pg.Number, MIME: "image/png", Data: pg.PNG})
	}
	jobID := JobIDFrom(ctx)
	log.Debug().Str("job_id", jobID).Str("source", src.Path).Int("pages", len(images)).
		Dur("render", time.Since(start)).Msg("pages rendered for classification")

	resp, err := p.client.Classify(ctx, ai.Request{
		JobID:      jobID,
		Source:     src.Path,
		TotalPages: src.TotalPages,
		Prompt:     ai.BuildPrompt(src.TotalPages),
		Images:     images,
	})
	cls := split.Classification{Usage: split.Usage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}}
	var ve *ai.ValidationError
	if errors.As(err, &ve) {
		return cls, fmt.Errorf("%w: %v", split.ErrMalformedClassification, err)
	}
	if err != nil {
		return cls, err
	}
	for _, d := range resp.Documents {
		cls.Labels = append(cls.Labels, split.PageLabel{
			Pages:             d.PageNumbers,
			SuggestedFilename: d.SuggestedFilename,
			DocumentType:      d.DocumentType,
			Confidence:        d.Confidence,
		})
	}
	log.Info().Str("job_id", jobID).Str("source", src.Path).Str("provider", resp.Provider).
		Str("model", resp.Model).Int("documents", len(cls.Labels)).
		Int64("total_tokens", cls.Usage.TotalTokens).Dur("duration", time.Since(start)).
		Msg("classification received")
	return cls, nil
}

package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Image is one rendered page sent to a provider.
type Image struct {
	Page int
	MIME string
	Data []byte
}

// Request represents a page classification request for one PDF.
type Request struct {
	JobID      string
	Source     string
	TotalPages int
	Model      string
	Timeout    time.Duration
	Prompt     string
	Images     []Image
}

// Document is one logical document found by the classifier.
type Document struct {
	PageNumbers       []int   `json:"page_numbers"`
	SuggestedFilename string  `json:"suggested_filename"`
	DocumentType      string  `json:"document_type"`
	Confidence        float64 `json:"confidence"`
}

// Classification is the structured answer of a provider.
type Classification struct {
	Documents          []Document `json:"documents"`
	AnalysisConfidence float64    `json:"analysis_confidence"`
}

// Usage is the token accounting of one provider call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

type Response struct {
	Classification
	Usage    Usage
	Provider string
	Model    string
}

// Client interface for providers like OpenAI, Anthropic.
type Client interface {
	Name() string
	Classify(ctx context.Context, req Request) (Response, error)
}

var (
	ErrRateLimited    = errors.New("rate_limited")
	ErrContentRefused = errors.New("content_refused")
	ErrMissingAPIKey  = errors.New("missing api key")
)

func IsRateLimited(err error) bool    { return errors.Is(err, ErrRateLimited) }
func IsContentRefused(err error) bool { return errors.Is(err, ErrContentRefused) }

// HTTPError represents an HTTP status error from a provider.
type HTTPError struct {
	StatusCode int
	Body       string
	Provider   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.Provider, e.Body)
}

// ValidationError is returned when a provider answer does not match the
// classification schema. It is never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

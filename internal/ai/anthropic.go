package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const anthropicURL = "https://api.anthropic.com"

type AnthropicClient struct {
	http    *http.Client
	apiKey  string
	baseURL string
}

// NewAnthropicClient builds a client. baseURL is optional.
func NewAnthropicClient(apiKey, baseURL string) *AnthropicClient {
	if baseURL == "" {
		baseURL = anthropicURL
	}
	return &AnthropicClient{http: &http.Client{}, apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *AnthropicClient) Name() string { return "anthropic" }

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicBlock struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicMsgReq struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMsgResp struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

func (c *AnthropicClient) Classify(ctx context.Context, req Request) (Response, error) {
	if c.apiKey == "" {
		return Response{}, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	blocks := make([]anthropicBlock, 0, len(req.Images)+1)
	for _, img := range req.Images {
		mime := img.MIME
		if mime == "" {
			mime = "image/png"
		}
		blocks = append(blocks, anthropicBlock{Type: "image", Source: &anthropicSource{
			Type: "base64", MediaType: mime, Data: base64.StdEncoding.EncodeToString(img.Data),
		}})
	}
	blocks = append(blocks, anthropicBlock{Type: "text", Text: req.Prompt + "\n\nJSON schema:\n" + schemaText()})

	payload := anthropicMsgReq{Model: req.Model, MaxTokens: 4096, Messages: []anthropicMessage{{Role: "user", Content: blocks}}}
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return Response{}, fmt.Errorf("anthropic: %w", ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Response{}, &HTTPError{StatusCode: resp.StatusCode, Body: string(b), Provider: c.Name()}
	}

	var r anthropicMsgResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Response{}, err
	}
	out := Response{
		Provider: c.Name(),
		Model:    req.Model,
		Usage: Usage{
			InputTokens:  r.Usage.InputTokens,
			OutputTokens: r.Usage.OutputTokens,
			TotalTokens:  r.Usage.InputTokens + r.Usage.OutputTokens,
		},
	}
	if r.StopReason == "refusal" {
		return out, fmt.Errorf("anthropic: %w", ErrContentRefused)
	}
	var text strings.Builder
	for _, b := range r.Content {
		if b.Type == "text" {
			text.WriteString(b.Text)
		}
	}
	if text.Len() == 0 {
		return out, errors.New("anthropic: no text content")
	}
	cls, err := ParseClassification(text.String())
	if err != nil {
		return out, err
	}
	out.Classification = cls
	return out, nil
}

func schemaText() string {
	b, _ := json.Marshal(classificationSchema)
	return string(b)
}

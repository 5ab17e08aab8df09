package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

// OpenAIClient classifies pages through the OpenAI Responses API with a
// JSON schema output format.
type OpenAIClient struct {
	client openai.Client
	apiKey string
}

// NewOpenAIClient builds a client. baseURL is optional.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{client: openai.NewClient(opts...), apiKey: apiKey}
}

func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) Classify(ctx context.Context, req Request) (Response, error) {
	if c.apiKey == "" {
		return Response{}, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	content := responses.ResponseInputMessageContentListParam{
		responses.ResponseInputContentParamOfInputText(req.Prompt),
	}
	for _, img := range req.Images {
		content = append(content, responses.ResponseInputContentUnionParam{
			OfInputImage: &responses.ResponseInputImageParam{
				Detail:   responses.ResponseInputImageDetailHigh,
				ImageURL: openai.String(dataURL(img)),
			},
		})
	}

	response, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: shared.ChatModel(req.Model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(content, "user"),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigParamOfJSONSchema("page_classification", classificationSchema),
		},
	})
	if err != nil {
		return Response{}, c.mapError(err)
	}

	out := Response{
		Provider: c.Name(),
		Model:    req.Model,
		Usage: Usage{
			InputTokens:  response.Usage.InputTokens,
			OutputTokens: response.Usage.OutputTokens,
			TotalTokens:  response.Usage.TotalTokens,
		},
	}
	text := response.OutputText()
	if text == "" {
		return out, fmt.Errorf("openai: empty output: %w", ErrContentRefused)
	}
	cls, err := ParseClassification(text)
	if err != nil {
		return out, err
	}
	out.Classification = cls
	return out, nil
}

func (c *OpenAIClient) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("openai: %w", ErrRateLimited)
		}
		return &HTTPError{StatusCode: apiErr.StatusCode, Body: apiErr.Message, Provider: c.Name()}
	}
	return err
}

func dataURL(img Image) string {
	mime := img.MIME
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// ABOUTME: OpenAI Chat Completions adapter with base URL support for compatible providers.
// ABOUTME: Targets OpenRouter by default; any /v1/chat/completions endpoint works.

package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenRouterBaseURL is the OpenRouter OpenAI-compatible endpoint.
const DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

const defaultMaxTokens = 1024

// OpenRouterAdapter implements ProviderAdapter using the OpenAI Chat
// Completions API with a custom base URL. This uses /v1/chat/completions,
// the standard endpoint supported by all OpenAI-compatible providers,
// and carries both text and image content parts.
type OpenRouterAdapter struct {
	client openai.Client
	name   string
}

// NewOpenRouterAdapter creates a Chat Completions adapter. An empty baseURL
// selects OpenRouter.
func NewOpenRouterAdapter(apiKey, baseURL string) *OpenRouterAdapter {
	if baseURL == "" {
		baseURL = DefaultOpenRouterBaseURL
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	}
	return &OpenRouterAdapter{
		client: openai.NewClient(opts...),
		name:   "openrouter",
	}
}

func (a *OpenRouterAdapter) Name() string { return a.name }

// Complete sends a completion request and returns the unified response.
func (a *OpenRouterAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.Model == "" {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "request model must not be empty"}}
	}

	resp, err := a.client.Chat.Completions.New(ctx, convertRequest(req))
	if err != nil {
		return nil, a.classifyError(err)
	}

	return convertResponse(a.name, resp), nil
}

func (a *OpenRouterAdapter) Close() error { return nil }

// classifyError maps openai-go API errors onto the client error hierarchy so
// the retry middleware can distinguish transient failures from terminal ones.
func (a *OpenRouterAdapter) classifyError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return providerErrorFromStatus(a.name, apierr.StatusCode,
			fmt.Sprintf("%s request failed (status %d)", a.name, apierr.StatusCode), err)
	}
	// Transport-level failures (DNS, reset, timeout) are worth one more try.
	return &ProviderError{
		SDKError:  SDKError{Message: a.name + " request failed", Cause: err},
		Provider:  a.name,
		Retryable: true,
	}
}

// convertRequest converts a unified Request to OpenAI ChatCompletionNewParams.
func convertRequest(req Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: req.Model,
	}

	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	params.MaxCompletionTokens = openai.Int(int64(maxTokens))

	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	var messages []openai.ChatCompletionMessageParamUnion
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.TextContent()))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.TextContent()))
		case RoleUser:
			messages = append(messages, convertUserMessage(msg))
		}
	}
	params.Messages = messages

	return params
}

// convertUserMessage converts a user message, preserving image parts.
func convertUserMessage(msg Message) openai.ChatCompletionMessageParamUnion {
	hasImage := false
	for _, part := range msg.Content {
		if part.Kind == ContentImage && part.Image != nil {
			hasImage = true
			break
		}
	}

	if !hasImage {
		return openai.UserMessage(msg.TextContent())
	}

	var parts []openai.ChatCompletionContentPartUnionParam
	for _, part := range msg.Content {
		switch part.Kind {
		case ContentText:
			parts = append(parts, openai.TextContentPart(part.Text))
		case ContentImage:
			if part.Image == nil {
				continue
			}
			imageURL := openai.ChatCompletionContentPartImageImageURLParam{
				URL: imageDataURL(part.Image),
			}
			if part.Image.Detail != "" {
				imageURL.Detail = part.Image.Detail
			}
			parts = append(parts, openai.ImageContentPart(imageURL))
		}
	}

	return openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: parts,
			},
		},
	}
}

// imageDataURL encodes raw image bytes as a data: URL for the image_url part.
func imageDataURL(img *ImageData) string {
	mediaType := img.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(img.Data))
}

// convertResponse converts an OpenAI ChatCompletion to a unified Response.
func convertResponse(provider string, resp *openai.ChatCompletion) *Response {
	result := &Response{
		ID:       resp.ID,
		Model:    resp.Model,
		Provider: provider,
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}

	if len(resp.Choices) == 0 {
		result.FinishReason = FinishReason{Reason: FinishOther}
		return result
	}

	choice := resp.Choices[0]
	result.Message = AssistantMessage(choice.Message.Content)
	result.FinishReason = convertFinishReason(choice.FinishReason)
	return result
}

func convertFinishReason(raw string) FinishReason {
	fr := FinishReason{Raw: raw}
	switch raw {
	case "stop":
		fr.Reason = FinishStop
	case "length":
		fr.Reason = FinishLength
	case "content_filter":
		fr.Reason = FinishContentFilter
	default:
		fr.Reason = FinishOther
	}
	return fr
}

// Compile-time interface assertion.
var _ ProviderAdapter = (*OpenRouterAdapter)(nil)

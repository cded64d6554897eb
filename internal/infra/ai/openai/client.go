package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/bryanwahyu/scamguard/internal/domain/analysis"
	"github.com/bryanwahyu/scamguard/internal/infra/ai/prompt"
)

const (
	maxTokens    = 2048
	defaultModel = "gpt-4o-mini"
)

type Client struct {
	*openai.Client
	Model string
}

// NewClient builds a client; baseURL is optional and points the client at a
// compatible endpoint.
func NewClient(apiKey, model, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

// Generate sends one chat completion. OpenAI has no search grounding, so
// the response never carries grounding chunks.
func (c *Client) Generate(ctx context.Context, in analysis.Request) (analysis.RawResponse, error) {
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	req := openai.ChatCompletionRequest{
		Model:          model,
		ResponseFormat: responseFormat(in.Schema),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: in.SystemInstruction},
			userMessage(in.Parts),
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return analysis.RawResponse{}, fmt.Errorf("%w: %v", analysis.ErrQuotaExceeded, err)
		}
		return analysis.RawResponse{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return analysis.RawResponse{}, errors.New("chat completion returned no choices")
	}
	return analysis.RawResponse{Text: resp.Choices[0].Message.Content}, nil
}

func userMessage(parts []analysis.Part) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	for _, p := range parts {
		if p.Image != nil {
			msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: prompt.DataURI(*p.Image)},
			})
			continue
		}
		msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: p.Text,
		})
	}
	return msg
}

func responseFormat(s *analysis.Schema) *openai.ChatCompletionResponseFormat {
	if s == nil {
		return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	def := toDefinition(s)
	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   "analysis_result",
			Schema: &def,
		},
	}
}

func toDefinition(s *analysis.Schema) jsonschema.Definition {
	def := jsonschema.Definition{
		Type:        jsonschema.DataType(s.Type),
		Description: s.Description,
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		def.Properties = make(map[string]jsonschema.Definition, len(s.Properties))
		for name, p := range s.Properties {
			def.Properties[name] = toDefinition(p)
		}
	}
	if s.Items != nil {
		items := toDefinition(s.Items)
		def.Items = &items
	}
	return def
}

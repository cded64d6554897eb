package gemini

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/bryanwahyu/scamguard/internal/domain/analysis"
)

const defaultModel = "gemini-3-flash-preview"

// generator is the slice of *genai.Models the client needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	models generator
	Model  string
}

// NewClient builds a Gemini API client. An empty key is not rejected here;
// the API refuses the call and that surfaces as a generate failure.
func NewClient(ctx context.Context, apiKey, model, baseURL string, httpClient *http.Client) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{models: cli.Models, Model: model}, nil
}

func (c *Client) Generate(ctx context.Context, in analysis.Request) (analysis.RawResponse, error) {
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	resp, err := c.models.GenerateContent(ctx, model, toContents(in.Parts), toConfig(in))
	if err != nil {
		return analysis.RawResponse{}, fmt.Errorf("generate content: %w", err)
	}
	return fromResponse(resp), nil
}

func toContents(parts []analysis.Part) []*genai.Content {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.Image != nil {
			out = append(out, &genai.Part{InlineData: &genai.Blob{MIMEType: p.Image.MIMEType, Data: p.Image.Data}})
			continue
		}
		out = append(out, &genai.Part{Text: p.Text})
	}
	return []*genai.Content{{Role: genai.RoleUser, Parts: out}}
}

func toConfig(in analysis.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toSchema(in.Schema),
	}
	if in.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: in.SystemInstruction}}}
	}
	if in.WebSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

func toSchema(s *analysis.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        schemaType(s.Type),
		Description: s.Description,
		Required:    s.Required,
		Items:       toSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toSchema(p)
		}
	}
	return out
}

func schemaType(t string) genai.Type {
	switch t {
	case analysis.TypeObject:
		return genai.TypeObject
	case analysis.TypeArray:
		return genai.TypeArray
	default:
		return genai.TypeString
	}
}

func fromResponse(resp *genai.GenerateContentResponse) analysis.RawResponse {
	if resp == nil {
		return analysis.RawResponse{}
	}
	raw := analysis.RawResponse{Text: resp.Text()}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].GroundingMetadata == nil {
		return raw
	}
	for _, ch := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if ch == nil {
			continue
		}
		var gc analysis.GroundingChunk
		if ch.Web != nil {
			gc.Web = &analysis.WebChunk{Title: ch.Web.Title, URI: ch.Web.URI}
		}
		raw.Chunks = append(raw.Chunks, gc)
	}
	return raw
}

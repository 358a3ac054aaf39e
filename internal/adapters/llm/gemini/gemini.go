// Package gemini sends classification requests through the Google GenAI SDK,
// either to the Gemini API with a key or to Vertex AI with a project.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/okian/bingo/internal/domain/classify"
)

// Defaults for the Vertex AI backend.
const (
	DefaultRegion = "europe-west1"
	DefaultModel  = "gemini-2.5-flash"
)

// Errors returned by the transport.
var (
	ErrMissingCredentials = errors.New("gemini: api key or project id is required")
	ErrEmptyResponse      = errors.New("gemini: empty response")
)

// Config selects the backend. A non-empty APIKey uses the Gemini API,
// otherwise ProjectID and Region select Vertex AI with default credentials.
type Config struct {
	APIKey    string
	ProjectID string
	Region    string
}

// Transport implements classify.Transport over genai.
type Transport struct {
	client *genai.Client
}

var _ classify.Transport = (*Transport)(nil)

// New creates the underlying genai client.
func New(ctx context.Context, cfg Config) (*Transport, error) {
	cc := &genai.ClientConfig{}
	switch {
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.ProjectID != "":
		region := cfg.Region
		if region == "" {
			region = DefaultRegion
		}
		cc.Project = cfg.ProjectID
		cc.Location = region
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, ErrMissingCredentials
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Transport{client: client}, nil
}

// Complete runs GenerateContent with the system prompt as instruction and a
// JSON response schema.
func (t *Transport) Complete(ctx context.Context, req classify.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(req.Temperature),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    Schema(req.Schema),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := t.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(req.User, genai.RoleUser)},
		cfg,
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Schema converts a JSON schema map into the genai subset. Keys genai has no
// field for, such as additionalProperties, are dropped.
func Schema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}
	if typ, ok := m["type"].(string); ok {
		s.Type = schemaType(typ)
	}
	if desc, ok := m["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.Properties[name] = Schema(pm)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = Schema(items)
	}
	switch req := m["required"].(type) {
	case []string:
		s.Required = append([]string(nil), req...)
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	return s
}

func schemaType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}

package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/datar-psa/evalclient/api"
)

// Generator wraps a genai.Client to implement the LLMGenerator interface
type Generator struct {
	client    *genai.Client
	modelName string
}

// NewGenerator creates a new Gemini generator
// client: genai.Client from google.golang.org/genai
// modelName: the model to use (e.g., "gemini-2.5-flash")
func NewGenerator(client *genai.Client, modelName string) *Generator {
	return &Generator{
		client:    client,
		modelName: modelName,
	}
}

// ModelName returns the model the generator calls
func (g *Generator) ModelName() string {
	return g.modelName
}

// StructuredGenerate implements LLMGenerator.StructuredGenerate
// The model is asked for application/json output constrained by schema.
func (g *Generator) StructuredGenerate(ctx context.Context, prompt string, schema map[string]any) (*api.Generation, error) {
	content := &genai.Content{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: prompt},
		},
	}

	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.modelName,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			ResponseMIMEType:   "application/json",
			ResponseJsonSchema: schema,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned")
	}

	if resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no parts in response")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(resp.Text()), &data); err != nil {
		return nil, fmt.Errorf("failed to parse structured response: %w", err)
	}

	gen := &api.Generation{Data: data}
	if usage := resp.UsageMetadata; usage != nil {
		gen.PromptTokens = int(usage.PromptTokenCount)
		gen.OutputTokens = int(usage.CandidatesTokenCount)
	}
	return gen, nil
}

// Verify that Generator implements LLMGenerator
var _ api.LLMGenerator = (*Generator)(nil)

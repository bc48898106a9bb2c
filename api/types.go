package api

import "context"

// Generation is the structured output of a single LLM call together with its token accounting
type Generation struct {
	// Data is the JSON object produced by the model
	Data map[string]any
	// PromptTokens is the number of tokens sent to the model
	PromptTokens int
	// OutputTokens is the number of tokens produced by the model
	OutputTokens int
}

// LLMGenerator is an interface for generating structured output using an LLM
// This interface must be implemented by library consumers
// A Gemini implementation is provided in the gemini subpackage
type LLMGenerator interface {
	// StructuredGenerate generates structured data based on the provided prompt and JSON schema
	// schema must be a valid JSON schema (map[string]any)
	StructuredGenerate(ctx context.Context, prompt string, schema map[string]any) (*Generation, error)
}

// EvalRequest describes one evaluation: a model response to judge against the named metrics.
//
// Fields usage conventions:
// - Input:     the prompt given to the model under test (required)
// - Response:  the response produced by the model under test (required)
// - Metrics:   metric names to evaluate, e.g. "recall" (at least one)
// - Context:   retrieved context the response should be grounded in (optional)
// - Reference: a reference answer (optional)
// - Model:     evaluator model to use; the service default when empty
type EvalRequest struct {
	Input     string   `json:"input" validate:"required"`
	Response  string   `json:"response" validate:"required"`
	Metrics   []string `json:"metrics" validate:"required,min=1,dive,required"`
	Context   string   `json:"context,omitempty"`
	Reference string   `json:"reference,omitempty"`
	Model     string   `json:"model,omitempty"`
}

// Evaluator produces an Evaluation for a request.
// The HTTP client and the local LLM judge both implement it.
type Evaluator interface {
	Evaluate(ctx context.Context, req EvalRequest) (*Evaluation, error)
}

// Score represents the result of an evaluation
type Score struct {
	// Name identifies the scorer that produced this result
	Name string
	// Score is a value between 0 and 1, where 1 is the best possible score
	Score float64
	// Metadata contains additional information about the scoring process
	Metadata map[string]any
	// Error contains any error that occurred during scoring
	Error error
}

// ScoreInputs carries inputs for scoring across different scorers.
//
// Fields usage conventions:
// - Output:   the actual output produced by the model (required for most scorers)
// - Expected: the reference/expected output (optional depending on scorer)
// - Input:    the original prompt/context/question given to the model (optional)
type ScoreInputs struct {
	Output   string
	Expected string
	Input    string
}

// Scorer evaluates the quality of an output
type Scorer interface {
	// Score evaluates the output and returns a score
	// in: container for output/expected/input depending on scorer needs
	Score(ctx context.Context, in ScoreInputs) Score
}

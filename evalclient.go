// Package evalclient decodes responses from a hosted LLM-evaluation service and runs evaluations
// either remotely or locally with Gemini acting as the judge.
//
//	judge, err := evalclient.NewAtlaJudge()
//	ev, err := judge.Evaluate(ctx, evalclient.EvalRequest{
//		Input:     "What is the capital of France?",
//		Response:  "Paris",
//		Reference: "Paris",
//		Metrics:   []string{"recall"},
//	})
package evalclient

import (
	"context"

	"google.golang.org/genai"

	"github.com/datar-psa/evalclient/api"
	"github.com/datar-psa/evalclient/client"
	"github.com/datar-psa/evalclient/gemini"
	"github.com/datar-psa/evalclient/heuristic"
	"github.com/datar-psa/evalclient/llmjudge"
)

type Evaluation = api.Evaluation
type Evaluations = api.Evaluations
type Usage = api.Usage
type Critique = api.Critique
type CritiqueKind = api.CritiqueKind
type EvalRequest = api.EvalRequest
type Evaluator = api.Evaluator
type LLMGenerator = api.LLMGenerator

type Score = api.Score
type ScoreInputs = api.ScoreInputs
type Scorer = api.Scorer

// DecodeEvaluation decodes a JSON response body into an Evaluation
func DecodeEvaluation(data []byte) (*Evaluation, error) {
	return api.DecodeEvaluation(data)
}

// EvaluationFromMap builds an Evaluation from an already decoded JSON object
func EvaluationFromMap(m map[string]any) (*Evaluation, error) {
	return api.EvaluationFromMap(m)
}

// Judge wraps an Evaluator and exposes convenient constructors for scorers built on it.
// The hosted client and the local LLM judge are interchangeable behind it.
type Judge struct {
	evaluator api.Evaluator
}

// JudgeOptions configures Judge creation
type JudgeOptions struct {
	evaluator api.Evaluator
}

// WithEvaluator sets the evaluator for the judge
func WithEvaluator(ev api.Evaluator) func(*JudgeOptions) {
	return func(opts *JudgeOptions) {
		opts.evaluator = ev
	}
}

// NewJudge creates a new Judge wrapper using functional options.
func NewJudge(opts ...func(*JudgeOptions)) *Judge {
	options := &JudgeOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return &Judge{evaluator: options.evaluator}
}

// NewAtlaJudge creates a Judge that calls the hosted evaluation endpoint.
// Without client.WithAPIKey the key is read from ATLA_API_KEY.
func NewAtlaJudge(opts ...func(*client.Options)) (*Judge, error) {
	c, err := client.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewJudge(WithEvaluator(c)), nil
}

// GeminiOptions configures Gemini Judge creation
type GeminiOptions struct {
	genaiClient *genai.Client
	modelName   string
	judge       llmjudge.JudgeOptions
}

// WithGenaiClient sets the Gemini client for the judge
func WithGenaiClient(client *genai.Client) func(*GeminiOptions) {
	return func(opts *GeminiOptions) {
		opts.genaiClient = client
	}
}

// WithModelName sets the model name for the judge
func WithModelName(modelName string) func(*GeminiOptions) {
	return func(opts *GeminiOptions) {
		opts.modelName = modelName
	}
}

// WithMetricDefinitions adds metric definitions to, or overrides built-in ones of, the local judge
func WithMetricDefinitions(defs ...llmjudge.MetricDefinition) func(*GeminiOptions) {
	return func(opts *GeminiOptions) {
		opts.judge.Metrics = append(opts.judge.Metrics, defs...)
	}
}

// WithJudgeOptions replaces the local judge settings; metric definitions added earlier are kept
func WithJudgeOptions(judgeOpts llmjudge.JudgeOptions) func(*GeminiOptions) {
	return func(opts *GeminiOptions) {
		judgeOpts.Metrics = append(opts.judge.Metrics, judgeOpts.Metrics...)
		opts.judge = judgeOpts
	}
}

// NewGeminiJudge creates a Judge that evaluates locally using Gemini.
// Example model: "publishers/google/models/gemini-2.5-flash".
func NewGeminiJudge(opts ...func(*GeminiOptions)) *Judge {
	options := &GeminiOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var judgeOptions []func(*JudgeOptions)

	// Only add an evaluator if genaiClient and modelName are provided
	if options.genaiClient != nil && options.modelName != "" {
		judgeOpts := options.judge
		if judgeOpts.ModelName == "" {
			judgeOpts.ModelName = options.modelName
		}
		generator := gemini.NewGenerator(options.genaiClient, options.modelName)
		judgeOptions = append(judgeOptions, WithEvaluator(llmjudge.NewJudge(generator, judgeOpts)))
	}

	return NewJudge(judgeOptions...)
}

// Evaluate runs req through the configured evaluator
func (j *Judge) Evaluate(ctx context.Context, req EvalRequest) (*Evaluation, error) {
	if j.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return j.evaluator.Evaluate(ctx, req)
}

type EvaluationOptions = llmjudge.EvaluationOptions

// Evaluation returns a scorer that blends the judge's metric scores into [0,1].
func (j *Judge) Evaluation(opts EvaluationOptions) api.Scorer {
	return llmjudge.Evaluation(j.evaluator, opts)
}

// Heuristic exposes convenient constructors for heuristic scorers.
type Heuristic struct{}

// NewHeuristic creates a new Heuristic.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

type SchemaMatchOptions = heuristic.SchemaMatchOptions

// SchemaMatch returns a scorer that checks if the output is a well-formed evaluation response.
func (h *Heuristic) SchemaMatch(opts SchemaMatchOptions) api.Scorer {
	return heuristic.SchemaMatch(opts)
}

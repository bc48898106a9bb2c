// Package llmjudge evaluates responses locally with an LLM and adapts evaluators to the Scorer contract.
package llmjudge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/datar-psa/evalclient/api"
)

// DefaultMaxConcurrency bounds how many metrics are judged at once
const DefaultMaxConcurrency = 4

// JudgeOptions configures a Judge
type JudgeOptions struct {
	// ModelName is reported as Evaluation.Model
	ModelName string
	// Metrics adds definitions or replaces built-in ones with the same name
	Metrics []MetricDefinition
	// MaxConcurrency limits parallel LLM calls; DefaultMaxConcurrency when 0
	MaxConcurrency int
	// Logger defaults to zap.NewNop()
	Logger *zap.Logger
	// Now and NewID default to time.Now and uuid.NewString
	Now   func() time.Time
	NewID func() string
}

// Judge scores each requested metric with one structured LLM call and assembles the
// results into an api.Evaluation shaped like the hosted service's response.
type Judge struct {
	llm         api.LLMGenerator
	modelName   string
	metrics     map[string]MetricDefinition
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

// NewJudge creates a Judge backed by llm
func NewJudge(llm api.LLMGenerator, opts JudgeOptions) *Judge {
	metrics := make(map[string]MetricDefinition, len(DefaultMetrics)+len(opts.Metrics))
	for _, def := range DefaultMetrics {
		metrics[def.Name] = def
	}
	for _, def := range opts.Metrics {
		metrics[def.Name] = def
	}

	j := &Judge{
		llm:         llm,
		modelName:   opts.ModelName,
		metrics:     metrics,
		concurrency: opts.MaxConcurrency,
		logger:      opts.Logger,
		now:         opts.Now,
		newID:       opts.NewID,
	}
	if j.concurrency <= 0 {
		j.concurrency = DefaultMaxConcurrency
	}
	if j.logger == nil {
		j.logger = zap.NewNop()
	}
	if j.now == nil {
		j.now = time.Now
	}
	if j.newID == nil {
		j.newID = uuid.NewString
	}
	return j
}

// verdict is the object the LLM must return for each metric
type verdict struct {
	Critique string `json:"critique" validate:"required"`
	Score    *int   `json:"score" validate:"required,min=1,max=5"`
}

var validate = validator.New()

var verdictSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"critique": map[string]any{
			"type":        "string",
			"description": "Step-by-step justification for the score",
		},
		"score": map[string]any{
			"type":        "integer",
			"minimum":     api.MinScore,
			"maximum":     api.MaxScore,
			"description": "Score from 1 (worst) to 5 (best)",
		},
	},
	"required": []string{"critique", "score"},
}

var promptTemplate = template.Must(template.New("judge").Parse(`You are an expert evaluator of AI assistant responses.

Metric: {{.Metric.Name}}
Criterion: {{.Metric.Description}}

[BEGIN DATA]
[Input]: {{.Request.Input}}
{{- if .Request.Context}}
[Context]: {{.Request.Context}}
{{- end}}
{{- if .Request.Reference}}
[Reference]: {{.Request.Reference}}
{{- end}}
[Response]: {{.Request.Response}}
[END DATA]

Write a short critique explaining how the response meets the criterion, then give an integer score from 1 to 5.`))

type metricResult struct {
	name       string
	evaluation api.Evaluations
	generation *api.Generation
}

// Evaluate implements api.Evaluator
func (j *Judge) Evaluate(ctx context.Context, req api.EvalRequest) (*api.Evaluation, error) {
	if j.llm == nil {
		return nil, errors.New("LLM generator is required")
	}
	if err := api.ValidateEvalRequest(req); err != nil {
		return nil, err
	}

	defs, err := j.resolve(req)
	if err != nil {
		return nil, err
	}

	results := make([]metricResult, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for i, def := range defs {
		g.Go(func() error {
			res, err := j.judge(gctx, def, req)
			if err != nil {
				return fmt.Errorf("metric %s: %w", def.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		j.logger.Warn("evaluation failed", zap.Error(err))
		return nil, err
	}

	ev := &api.Evaluation{
		Evaluations: make(map[string]api.Evaluations, len(results)),
		Model:       j.modelName,
	}
	for _, res := range results {
		ev.Evaluations[res.name] = res.evaluation
		ev.Usage.PromptTokens += res.generation.PromptTokens
		ev.Usage.EvaluationTokens += res.generation.OutputTokens
	}
	ev.Usage.TotalTokens = ev.Usage.PromptTokens + ev.Usage.EvaluationTokens

	id := j.newID()
	created := j.now().Unix()
	ev.ID = &id
	ev.Created = &created

	j.logger.Debug("evaluation completed",
		zap.String("id", id),
		zap.Strings("metrics", ev.Metrics()),
		zap.Int("total_tokens", ev.Usage.TotalTokens),
	)
	return ev, nil
}

// resolve looks up each requested metric once, in request order
func (j *Judge) resolve(req api.EvalRequest) ([]MetricDefinition, error) {
	seen := make(map[string]bool, len(req.Metrics))
	defs := make([]MetricDefinition, 0, len(req.Metrics))
	for _, name := range req.Metrics {
		if seen[name] {
			continue
		}
		seen[name] = true

		def, ok := j.metrics[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", api.ErrUnknownMetric, name)
		}
		if def.RequiresContext && req.Context == "" {
			return nil, fmt.Errorf("%w: metric %s requires context", api.ErrInvalidRequest, name)
		}
		if def.RequiresReference && req.Reference == "" {
			return nil, fmt.Errorf("%w: metric %s requires reference", api.ErrInvalidRequest, name)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (j *Judge) judge(ctx context.Context, def MetricDefinition, req api.EvalRequest) (metricResult, error) {
	var prompt bytes.Buffer
	data := struct {
		Metric  MetricDefinition
		Request api.EvalRequest
	}{def, req}
	if err := promptTemplate.Execute(&prompt, data); err != nil {
		return metricResult{}, fmt.Errorf("failed to render prompt: %w", err)
	}

	gen, err := j.llm.StructuredGenerate(ctx, prompt.String(), verdictSchema)
	if err != nil {
		return metricResult{}, fmt.Errorf("%w: %w", api.ErrLLMGenerationFailed, err)
	}
	if gen == nil {
		return metricResult{}, fmt.Errorf("%w: generator returned no output", api.ErrLLMGenerationFailed)
	}

	v, err := parseVerdict(gen.Data)
	if err != nil {
		j.logger.Debug("judge returned an unusable verdict", zap.String("metric", def.Name), zap.Any("raw_response", gen.Data))
		return metricResult{}, err
	}

	return metricResult{
		name: def.Name,
		evaluation: api.Evaluations{
			Critique: api.StringCritique(v.Critique),
			Score:    *v.Score,
		},
		generation: gen,
	}, nil
}

// parseVerdict checks the LLM output against the verdict shape. Scores must be integers in 1..5.
func parseVerdict(data map[string]any) (verdict, error) {
	var v verdict
	raw, err := json.Marshal(data)
	if err != nil {
		return v, fmt.Errorf("invalid judge response: %w", err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("invalid judge response: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return v, fmt.Errorf("invalid judge response: %w", err)
	}
	return v, nil
}

// Verify that Judge implements api.Evaluator
var _ api.Evaluator = (*Judge)(nil)

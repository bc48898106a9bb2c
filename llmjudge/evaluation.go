package llmjudge

import (
	"context"
	"errors"
	"fmt"

	"github.com/datar-psa/evalclient/api"
)

// EvaluationOptions configures the Evaluation scorer
type EvaluationOptions struct {
	// Metrics to request, e.g. []string{"recall", "precision"}
	Metrics []string
	// Weights per metric. A metric with weight 0 is reported but excluded from the score.
	// If no metric has a positive weight, all metrics are weighted equally.
	Weights map[string]float64
	// Context is sent as EvalRequest.Context since ScoreInputs has no such field
	Context string
	// Model selects the evaluator model; the evaluator default when empty
	Model string
}

// Evaluation returns a scorer that runs ev and blends the per-metric scores into [0,1].
// Each 1..5 metric score s is normalized to (s-1)/4 and clamped, so out-of-range scores
// from the service cannot push the result outside [0,1].
// Input maps to EvalRequest.Input, Output to Response and Expected to Reference.
func Evaluation(ev api.Evaluator, opts EvaluationOptions) api.Scorer {
	return &evaluationScorer{
		ev:   ev,
		opts: opts,
	}
}

type evaluationScorer struct {
	ev   api.Evaluator
	opts EvaluationOptions
}

func (s *evaluationScorer) Score(ctx context.Context, in api.ScoreInputs) api.Score {
	result := api.Score{
		Name:     "Evaluation",
		Metadata: make(map[string]any),
	}

	if s.ev == nil {
		result.Error = errors.New("evaluator is required")
		return result
	}

	req := api.EvalRequest{
		Input:     in.Input,
		Response:  in.Output,
		Reference: in.Expected,
		Context:   s.opts.Context,
		Metrics:   s.opts.Metrics,
		Model:     s.opts.Model,
	}

	ev, err := s.ev.Evaluate(ctx, req)
	if err != nil {
		if errors.Is(err, api.ErrInvalidRequest) || errors.Is(err, api.ErrUnknownMetric) {
			result.Error = err
		} else {
			result.Error = fmt.Errorf("%w: %w", api.ErrLLMGenerationFailed, err)
		}
		return result
	}

	metrics := ev.Metrics()
	weights := normalizeWeights(metrics, s.opts.Weights)

	finalScore := 0.0
	for _, name := range metrics {
		res := ev.Evaluations[name]
		normalized := NormalizeScore(res.Score)
		finalScore += weights[name] * normalized

		result.Metadata[name+".score"] = normalized
		result.Metadata[name+".raw_score"] = res.Score
		result.Metadata[name+".critique"] = res.Critique.Text()
		result.Metadata["weights."+name] = weights[name]
	}

	result.Score = finalScore
	result.Metadata["model"] = ev.Model
	if ev.ID != nil {
		result.Metadata["id"] = *ev.ID
	}
	result.Metadata["usage.prompt_tokens"] = ev.Usage.PromptTokens
	result.Metadata["usage.evaluation_tokens"] = ev.Usage.EvaluationTokens
	result.Metadata["usage.total_tokens"] = ev.Usage.TotalTokens
	return result
}

// NormalizeScore maps a 1..5 metric score onto [0,1]
func NormalizeScore(score int) float64 {
	n := float64(score-api.MinScore) / float64(api.MaxScore-api.MinScore)
	return min(max(n, 0), 1)
}

// normalizeWeights returns weights summing to 1 over metrics
func normalizeWeights(metrics []string, weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(metrics))
	sum := 0.0
	for _, name := range metrics {
		if w := weights[name]; w > 0 {
			out[name] = w
			sum += w
		}
	}

	if sum == 0 {
		for _, name := range metrics {
			out[name] = 1 / float64(len(metrics))
		}
		return out
	}

	for _, name := range metrics {
		out[name] /= sum
	}
	return out
}

// Package heuristic contains scorers that need no LLM or network access.
package heuristic

import (
	"context"
	"errors"

	"github.com/datar-psa/evalclient/api"
)

// SchemaMatchOptions configures the SchemaMatch scorer
type SchemaMatchOptions struct {
	// RequiredMetrics must all be present in the evaluations object
	RequiredMetrics []string
	// ConsistentUsage requires total_tokens to equal evaluation_tokens + prompt_tokens
	ConsistentUsage bool
	// ConventionalRange requires every score to lie within 1..5
	ConventionalRange bool
}

// SchemaMatch returns a scorer that checks whether Output is a well-formed evaluation response.
// It is meant for grading models or fixtures that are supposed to emit the service's response format.
// The score is 1 when Output decodes and meets every enabled check, 0 otherwise.
func SchemaMatch(opts SchemaMatchOptions) api.Scorer {
	return &schemaMatchScorer{opts: opts}
}

type schemaMatchScorer struct {
	opts SchemaMatchOptions
}

func (s *schemaMatchScorer) Score(ctx context.Context, in api.ScoreInputs) api.Score {
	result := api.Score{
		Name:     "SchemaMatch",
		Metadata: make(map[string]any),
	}

	ev, err := api.DecodeEvaluation([]byte(in.Output))
	if err != nil {
		var schemaErr *api.SchemaValidationError
		if errors.As(err, &schemaErr) {
			result.Metadata["field"] = schemaErr.Field
			result.Metadata["reason"] = schemaErr.Reason
		}
		result.Metadata["valid"] = false
		return result
	}

	result.Metadata["valid"] = true
	result.Metadata["metrics"] = ev.Metrics()

	var missing []string
	for _, name := range s.opts.RequiredMetrics {
		if _, ok := ev.Evaluations[name]; !ok {
			missing = append(missing, name)
		}
	}
	result.Metadata["missing_metrics"] = missing

	usageOK := !s.opts.ConsistentUsage || ev.Usage.Consistent()
	result.Metadata["usage_consistent"] = ev.Usage.Consistent()

	rangeOK := true
	var outOfRange []string
	for _, name := range ev.Metrics() {
		if !ev.Evaluations[name].InConventionalRange() {
			outOfRange = append(outOfRange, name)
		}
	}
	if s.opts.ConventionalRange && len(outOfRange) > 0 {
		rangeOK = false
	}
	result.Metadata["out_of_range"] = outOfRange

	if len(missing) == 0 && usageOK && rangeOK {
		result.Score = 1.0
	}
	return result
}

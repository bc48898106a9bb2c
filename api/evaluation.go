package api

import (
	"encoding/json"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Evaluation is the response object returned by the evaluation endpoint.
// Values are built once by DecodeEvaluation and should be treated as read-only.
type Evaluation struct {
	// Evaluations maps each requested metric (e.g. "recall") to its result
	Evaluations map[string]Evaluations `json:"evaluations"`
	// Model is the model version that performed the evaluation
	Model string `json:"model"`
	// Usage is the billing and rate-limit token accounting
	Usage Usage `json:"usage"`
	// ID uniquely identifies the evaluation; nil when the service did not send one
	ID *string `json:"id,omitempty"`
	// Created is the Unix timestamp of when the evaluation was created; nil when absent
	Created *int64 `json:"created,omitempty"`
}

// Evaluations is the result for a single metric.
type Evaluations struct {
	// Critique is the evaluator's explanation of the score
	Critique Critique `json:"critique"`
	// Score is conventionally between 1 and 5
	Score int `json:"score"`
}

// Usage is the token accounting for one evaluation. The service bills on evaluation tokens.
type Usage struct {
	// EvaluationTokens is the number of tokens produced by the model during the evaluation
	EvaluationTokens int `json:"evaluation_tokens"`
	// PromptTokens is the number of tokens passed via the input, response, context and reference fields
	PromptTokens int `json:"prompt_tokens"`
	// TotalTokens is the total number of tokens used in both the prompt and evaluation
	TotalTokens int `json:"total_tokens"`
}

// Conventional score bounds used by the evaluation service
const (
	MinScore = 1
	MaxScore = 5
)

// Metrics returns the evaluated metric names in sorted order
func (e *Evaluation) Metrics() []string {
	return slices.Sorted(maps.Keys(e.Evaluations))
}

// CreatedAt converts Created to a time; ok is false when the service omitted it
func (e *Evaluation) CreatedAt() (t time.Time, ok bool) {
	if e.Created == nil {
		return time.Time{}, false
	}
	return time.Unix(*e.Created, 0).UTC(), true
}

// InConventionalRange reports whether the score lies within [MinScore, MaxScore].
// Decoding does not enforce the range.
func (e Evaluations) InConventionalRange() bool {
	return e.Score >= MinScore && e.Score <= MaxScore
}

// Consistent reports whether TotalTokens equals EvaluationTokens + PromptTokens.
// This is a contract of the remote service and is never checked during decoding.
func (u Usage) Consistent() bool {
	return u.TotalTokens == u.EvaluationTokens+u.PromptTokens
}

// DecodeEvaluation decodes a JSON response body into an Evaluation.
//
// Keys are matched exactly; a key differing from a known field only by case is an unknown
// field and is ignored. Missing, null or wrong-typed required fields produce a
// *SchemaValidationError naming the dotted JSON path. The critique union never fails (see Critique).
func DecodeEvaluation(data []byte) (*Evaluation, error) {
	if !gjson.ValidBytes(data) {
		return nil, schemaErrorf("", "invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, schemaErrorf("", "expected a JSON object, got %s", jsonKind(doc))
	}
	return decodeEvaluation(newObject("", doc))
}

// EvaluationFromMap builds an Evaluation from an already decoded JSON object,
// applying the same rules as DecodeEvaluation.
func EvaluationFromMap(m map[string]any) (*Evaluation, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, schemaError("", "payload is not JSON encodable", err)
	}
	return DecodeEvaluation(data)
}

// UnmarshalJSON decodes and validates the payload with DecodeEvaluation
func (e *Evaluation) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeEvaluation(data)
	if err != nil {
		return err
	}
	*e = *decoded
	return nil
}

func decodeEvaluation(doc object) (*Evaluation, error) {
	evaluations, err := doc.object("evaluations")
	if err != nil {
		return nil, err
	}
	results := make(map[string]Evaluations, len(evaluations.fields))
	for _, metric := range evaluations.keys {
		res, err := evaluations.object(metric)
		if err != nil {
			return nil, err
		}
		score, err := res.integer("score")
		if err != nil {
			return nil, err
		}
		critique, ok := res.fields["critique"]
		if !ok {
			return nil, schemaErrorf(res.path("critique"), "field required")
		}
		results[metric] = Evaluations{
			Critique: parseCritique([]byte(critique.Raw)),
			Score:    int(score),
		}
	}

	model, err := doc.text("model")
	if err != nil {
		return nil, err
	}

	usageObj, err := doc.object("usage")
	if err != nil {
		return nil, err
	}
	var usage Usage
	for _, counter := range []struct {
		key string
		dst *int
	}{
		{"evaluation_tokens", &usage.EvaluationTokens},
		{"prompt_tokens", &usage.PromptTokens},
		{"total_tokens", &usage.TotalTokens},
	} {
		n, err := usageObj.integer(counter.key)
		if err != nil {
			return nil, err
		}
		*counter.dst = int(n)
	}

	ev := &Evaluation{
		Evaluations: results,
		Model:       model,
		Usage:       usage,
	}
	if v, ok := doc.optional("id"); ok {
		if v.Type != gjson.String {
			return nil, schemaErrorf(doc.path("id"), "expected string, got %s", jsonKind(v))
		}
		id := v.Str
		ev.ID = &id
	}
	if v, ok := doc.optional("created"); ok {
		created, err := asInteger(doc.path("created"), v)
		if err != nil {
			return nil, err
		}
		ev.Created = &created
	}
	return ev, nil
}

// object is a JSON object whose members are looked up by exact key.
// Duplicate keys keep the last value; keys lists each distinct key in document order.
type object struct {
	prefix string
	fields map[string]gjson.Result
	keys   []string
}

func newObject(prefix string, r gjson.Result) object {
	o := object{prefix: prefix, fields: make(map[string]gjson.Result)}
	r.ForEach(func(k, v gjson.Result) bool {
		if _, seen := o.fields[k.Str]; !seen {
			o.keys = append(o.keys, k.Str)
		}
		o.fields[k.Str] = v
		return true
	})
	return o
}

func (o object) path(key string) string {
	if o.prefix == "" {
		return key
	}
	return o.prefix + "." + key
}

// optional returns the member unless it is absent or null
func (o object) optional(key string) (gjson.Result, bool) {
	v, ok := o.fields[key]
	if !ok || v.Type == gjson.Null {
		return gjson.Result{}, false
	}
	return v, true
}

func (o object) required(key string) (gjson.Result, error) {
	v, ok := o.optional(key)
	if !ok {
		return v, schemaErrorf(o.path(key), "field required")
	}
	return v, nil
}

func (o object) object(key string) (object, error) {
	v, err := o.required(key)
	if err != nil {
		return object{}, err
	}
	if !v.IsObject() {
		return object{}, schemaErrorf(o.path(key), "expected object, got %s", jsonKind(v))
	}
	return newObject(o.path(key), v), nil
}

func (o object) text(key string) (string, error) {
	v, err := o.required(key)
	if err != nil {
		return "", err
	}
	if v.Type != gjson.String {
		return "", schemaErrorf(o.path(key), "expected string, got %s", jsonKind(v))
	}
	return v.Str, nil
}

func (o object) integer(key string) (int64, error) {
	v, err := o.required(key)
	if err != nil {
		return 0, err
	}
	return asInteger(o.path(key), v)
}

// asInteger accepts integer literals and integral numbers such as 3.0 or 3e2.
// Strings and fractional numbers are rejected.
func asInteger(path string, v gjson.Result) (int64, error) {
	if v.Type != gjson.Number {
		return 0, schemaErrorf(path, "expected integer, got %s", jsonKind(v))
	}
	if n, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
		return n, nil
	}
	f := v.Num
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, schemaErrorf(path, "expected integer, got number %s", v.Raw)
	}
	return int64(f), nil
}

func jsonKind(r gjson.Result) string {
	switch {
	case r.IsArray():
		return "array"
	case r.IsObject():
		return "object"
	case r.Type == gjson.True, r.Type == gjson.False:
		return "boolean"
	default:
		return strings.ToLower(r.Type.String())
	}
}

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"slices"
	"strconv"

	"github.com/tidwall/gjson"
)

// CritiqueKind tags which shape a Critique holds
type CritiqueKind int

const (
	// CritiqueOpaque holds any JSON value that matches none of the other shapes
	CritiqueOpaque CritiqueKind = iota
	CritiqueString
	CritiqueNumber
	CritiqueIntList
	CritiqueStringList
)

func (k CritiqueKind) String() string {
	switch k {
	case CritiqueString:
		return "string"
	case CritiqueNumber:
		return "number"
	case CritiqueIntList:
		return "int_list"
	case CritiqueStringList:
		return "string_list"
	default:
		return "opaque"
	}
}

// Critique is the evaluator's explanation for a metric score.
//
// The service documents it as a string, a number, a list of integers or a list of strings,
// and reserves the right to send anything else. Shapes are matched in that order; an empty
// list is an int list. Values matching no shape are kept verbatim as CritiqueOpaque so
// decoding never fails on server-side drift.
type Critique struct {
	kind   CritiqueKind
	text   string
	number float64
	ints   []int64
	strs   []string
	raw    json.RawMessage
}

// StringCritique returns a textual critique
func StringCritique(s string) Critique {
	return Critique{kind: CritiqueString, text: s}
}

// NumberCritique returns a numeric critique
func NumberCritique(n float64) Critique {
	return Critique{kind: CritiqueNumber, number: n}
}

// IntListCritique returns a critique holding a list of integers
func IntListCritique(values ...int64) Critique {
	return Critique{kind: CritiqueIntList, ints: append([]int64{}, values...)}
}

// StringListCritique returns a critique holding a list of strings
func StringListCritique(values ...string) Critique {
	return Critique{kind: CritiqueStringList, strs: append([]string{}, values...)}
}

// OpaqueCritique keeps raw as-is without classifying it. raw must be valid JSON.
func OpaqueCritique(raw json.RawMessage) Critique {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return Critique{kind: CritiqueOpaque, raw: bytes.Clone(raw)}
	}
	return Critique{kind: CritiqueOpaque, raw: buf.Bytes()}
}

// ParseCritique classifies a JSON value into one of the critique shapes.
// It only fails when raw is not valid JSON.
func ParseCritique(raw []byte) (Critique, error) {
	if !gjson.ValidBytes(raw) {
		return Critique{}, errors.New("critique: invalid JSON")
	}
	return parseCritique(raw), nil
}

func parseCritique(raw []byte) Critique {
	r := gjson.ParseBytes(raw)
	switch {
	case r.Type == gjson.String:
		return StringCritique(r.Str)
	case r.Type == gjson.Number && !math.IsInf(r.Num, 0):
		return NumberCritique(r.Num)
	case r.IsArray():
		elems := r.Array()
		if ints, ok := intElements(elems); ok {
			return IntListCritique(ints...)
		}
		if strs, ok := stringElements(elems); ok {
			return StringListCritique(strs...)
		}
	}
	return OpaqueCritique(raw)
}

func intElements(elems []gjson.Result) ([]int64, bool) {
	ints := make([]int64, 0, len(elems))
	for _, e := range elems {
		if e.Type != gjson.Number {
			return nil, false
		}
		n, err := strconv.ParseInt(e.Raw, 10, 64)
		if err != nil {
			return nil, false
		}
		ints = append(ints, n)
	}
	return ints, true
}

func stringElements(elems []gjson.Result) ([]string, bool) {
	strs := make([]string, 0, len(elems))
	for _, e := range elems {
		if e.Type != gjson.String {
			return nil, false
		}
		strs = append(strs, e.Str)
	}
	return strs, true
}

// Kind reports which shape the critique holds
func (c Critique) Kind() CritiqueKind { return c.kind }

// AsString returns the text of a CritiqueString
func (c Critique) AsString() (string, bool) {
	return c.text, c.kind == CritiqueString
}

// AsNumber returns the value of a CritiqueNumber
func (c Critique) AsNumber() (float64, bool) {
	return c.number, c.kind == CritiqueNumber
}

// AsIntList returns a copy of the values of a CritiqueIntList
func (c Critique) AsIntList() ([]int64, bool) {
	if c.kind != CritiqueIntList {
		return nil, false
	}
	return slices.Clone(c.ints), true
}

// AsStringList returns a copy of the values of a CritiqueStringList
func (c Critique) AsStringList() ([]string, bool) {
	if c.kind != CritiqueStringList {
		return nil, false
	}
	return slices.Clone(c.strs), true
}

// Raw returns the compact JSON encoding of the critique, whatever its kind
func (c Critique) Raw() json.RawMessage {
	data, err := c.MarshalJSON()
	if err != nil {
		return nil
	}
	return data
}

// Value returns the critique as a plain Go value: string, float64, []int64, []string,
// or for opaque critiques the result of decoding the raw JSON into an any.
func (c Critique) Value() any {
	switch c.kind {
	case CritiqueString:
		return c.text
	case CritiqueNumber:
		return c.number
	case CritiqueIntList:
		return slices.Clone(c.ints)
	case CritiqueStringList:
		return slices.Clone(c.strs)
	}
	if len(c.raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(c.raw, &v); err != nil {
		return nil
	}
	return v
}

// Text renders the critique for display: strings as-is, everything else as compact JSON
func (c Critique) Text() string {
	switch c.kind {
	case CritiqueString:
		return c.text
	case CritiqueNumber:
		return strconv.FormatFloat(c.number, 'f', -1, 64)
	}
	return string(c.Raw())
}

func (c Critique) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case CritiqueString:
		return json.Marshal(c.text)
	case CritiqueNumber:
		return json.Marshal(c.number)
	case CritiqueIntList:
		if c.ints == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.ints)
	case CritiqueStringList:
		if c.strs == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.strs)
	}
	if len(c.raw) == 0 {
		return []byte("null"), nil
	}
	return c.raw, nil
}

func (c *Critique) UnmarshalJSON(data []byte) error {
	parsed, err := ParseCritique(data)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

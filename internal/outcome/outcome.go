// Package outcome turns raw model text into typed game payloads.
//
// Every parse goes through the same three steps: decode the whole text, decode the
// greedy {...} span, fall back to a fixed payload. The Kind of the result tells which
// step produced the value, so a masked failure is never mistaken for real output.
package outcome

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Kind reports which parsing step produced a value.
type Kind int

const (
	// Parsed: the whole text was a JSON object.
	Parsed Kind = iota
	// Recovered: a JSON object was extracted from surrounding noise.
	Recovered
	// Defaulted: nothing decodable was found, the fallback payload was used.
	Defaulted
)

func (k Kind) String() string {
	switch k {
	case Parsed:
		return "parsed"
	case Recovered:
		return "recovered"
	case Defaulted:
		return "defaulted"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Result wraps a parsed value with its provenance.
// Err is set only for Defaulted results and explains why decoding failed.
type Result[T any] struct {
	Value T
	Kind  Kind
	Err   error
}

var (
	// ErrNoJSONObject is returned in Result.Err when the text contains no {...} span.
	ErrNoJSONObject = errors.New("no JSON object found in model output")

	// Жадный поиск: от первой { до последней }
	objectSpan = regexp.MustCompile(`(?s)\{.*\}`)

	parseResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geopolitics_outcome_parse_total",
			Help: "Model output parse results by payload and kind.",
		},
		[]string{"payload", "kind"},
	)
)

// object holds the top-level fields of a decoded JSON object.
type object map[string]json.RawMessage

// decode runs the parse → recover → default pipeline. Only the top-level object has
// to be valid JSON: fields are decoded one by one afterwards.
func decode(payload, raw string) (object, Kind, error) {
	obj, kind, err := decodeSteps(raw)
	parseResults.WithLabelValues(payload, kind.String()).Inc()
	return obj, kind, err
}

func decodeSteps(raw string) (object, Kind, error) {
	obj, firstErr := decodeObject([]byte(raw))
	if firstErr == nil {
		return obj, Parsed, nil
	}

	span := objectSpan.FindString(raw)
	if span == "" {
		return nil, Defaulted, fmt.Errorf("%w: %v", ErrNoJSONObject, firstErr)
	}

	obj, err := decodeObject([]byte(span))
	if err != nil {
		return nil, Defaulted, fmt.Errorf("extracted span is not valid JSON: %w", err)
	}
	return obj, Recovered, nil
}

// decodeObject принимает только JSON-объект верхнего уровня.
func decodeObject(data []byte) (object, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("top-level value is not a JSON object")
	}
	var obj object
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// field decodes one field. A missing field or one of the wrong type yields the zero value.
func field[T any](obj object, key string) T {
	var v T
	data, ok := obj[key]
	if !ok {
		return v
	}
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero
	}
	return v
}

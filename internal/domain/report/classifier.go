package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Avii12105/medlab/internal/domain/catalog"
	"github.com/Avii12105/medlab/internal/platform/apperr"
)

// Status is the clinical flag stamped on a report item.
type Status string

const (
	StatusLow    Status = "LOW"
	StatusNormal Status = "NORMAL"
	StatusHigh   Status = "HIGH"
)

// RawValue is a result exactly as a client sent it: a JSON number or a JSON
// string. It is only interpreted once the test it belongs to is known.
type RawValue []byte

// Num and Text build raw values from Go values.
func Num(v float64) RawValue {
	return RawValue(strconv.FormatFloat(v, 'g', -1, 64))
}

func Text(s string) RawValue {
	b, _ := json.Marshal(s)
	return RawValue(b)
}

func (r RawValue) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *RawValue) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// IsZero reports whether no value was supplied.
func (r RawValue) IsZero() bool {
	t := bytes.TrimSpace(r)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// ResultValue is a parsed result. Kind says which field is meaningful; it is
// serialized as a JSON number for NUMERIC and a JSON string for TEXTUAL, and
// that JSON type is how a stored value remembers its kind.
type ResultValue struct {
	Kind   catalog.ResultType
	Number float64
	Text   string
}

func (v ResultValue) String() string {
	if v.Kind == catalog.ResultNumeric {
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	}
	return v.Text
}

func (v ResultValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case catalog.ResultNumeric:
		return json.Marshal(v.Number)
	case catalog.ResultTextual:
		return json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
}

func (v *ResultValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ResultValue{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = ResultValue{Kind: catalog.ResultTextual, Text: s}
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("result value must be a number or a string: %w", err)
		}
		*v = ResultValue{Kind: catalog.ResultNumeric, Number: f}
	}
	return nil
}

// Raw converts a stored value back into client form, for re-parsing against
// a different test.
func (v ResultValue) Raw() RawValue {
	b, _ := v.MarshalJSON()
	return RawValue(b)
}

// ParseResult interprets raw according to the test's result type. NUMERIC
// tests take a JSON number or a numeric string; TEXTUAL tests take any
// non-empty string, and a bare number is kept as its literal text.
func ParseResult(test *catalog.Test, raw RawValue) (ResultValue, error) {
	if raw.IsZero() {
		return ResultValue{}, apperr.Validation("resultValue is required")
	}
	data := bytes.TrimSpace(raw)

	var (
		text     string
		isString = data[0] == '"'
	)
	if isString {
		if err := json.Unmarshal(data, &text); err != nil {
			return ResultValue{}, apperr.Validation("malformed result value: %v", err)
		}
		text = strings.TrimSpace(text)
	} else {
		text = string(data)
	}

	switch test.ResultType {
	case catalog.ResultTextual:
		if text == "" {
			return ResultValue{}, apperr.Validation("resultValue is required")
		}
		if !isString {
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				return ResultValue{}, apperr.Validation("result value for test %s must be a string", test.Name)
			}
		}
		return ResultValue{Kind: catalog.ResultTextual, Text: text}, nil
	default:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return ResultValue{}, apperr.Validation("result value %q for test %s is not a number", text, test.Name)
		}
		return ResultValue{Kind: catalog.ResultNumeric, Number: f}, nil
	}
}

// StatusFor flags a parsed value against the test's reference range. The
// range is inclusive; a missing bound is not checked. Textual results are
// always NORMAL.
func StatusFor(test *catalog.Test, v ResultValue) Status {
	if test.ResultType == catalog.ResultTextual || v.Kind != catalog.ResultNumeric {
		return StatusNormal
	}
	if test.NormalMin != nil && v.Number < *test.NormalMin {
		return StatusLow
	}
	if test.NormalMax != nil && v.Number > *test.NormalMax {
		return StatusHigh
	}
	return StatusNormal
}

// Classify parses raw for test and derives its status.
func Classify(test *catalog.Test, raw RawValue) (ResultValue, Status, error) {
	v, err := ParseResult(test, raw)
	if err != nil {
		return ResultValue{}, "", err
	}
	return v, StatusFor(test, v), nil
}

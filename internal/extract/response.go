package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Response is the decoded model output: Valid, ValidList or Malformed.
type Response interface {
	isResponse()
}

// Valid is a JSON object.
type Valid struct {
	Fields map[string]any
}

// ValidList is a JSON array, the expected shape of a batch answer.
type ValidList struct {
	Items []any
}

// Malformed is model text that is not a JSON object or array.
type Malformed struct {
	Raw string
	Err error
}

func (Valid) isResponse()     {}
func (ValidList) isResponse() {}
func (Malformed) isResponse() {}

var (
	errEmptyResponse = errors.New("empty model response")
	errNotContainer  = errors.New("model response is not a JSON object or array")

	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	pyLiteral     = regexp.MustCompile(`\b(None|True|False)\b`)
)

// Parse decodes raw strictly and falls back to a single Repair.
func Parse(raw string) Response {
	first := Decode(raw)
	strict, ok := first.(Malformed)
	if !ok {
		return first
	}
	repaired := Repair(raw)
	if m, bad := repaired.(Malformed); bad {
		m.Err = fmt.Errorf("strict: %v; repaired: %w", strict.Err, m.Err)
		return m
	}
	return repaired
}

// Decode accepts raw only if, after trimming whitespace and a surrounding
// markdown fence, it is exactly one JSON object or array.
func Decode(raw string) Response {
	candidate := stripFence(strings.TrimSpace(raw))
	if candidate == "" {
		return Malformed{Raw: raw, Err: errEmptyResponse}
	}
	v, err := decodeOne(candidate)
	if err != nil {
		return Malformed{Raw: raw, Err: err}
	}
	return classify(raw, v)
}

// Repair makes one bounded attempt at recovering JSON from chatty or sloppy
// output. It first isolates the first balanced object or array. If that still
// does not decode, Python literals and trailing commas are fixed, and only
// then are single quotes rewritten, so apostrophes inside double-quoted values
// survive.
func Repair(raw string) Response {
	trimmed := stripFence(strings.TrimSpace(raw))
	if trimmed == "" {
		return Malformed{Raw: raw, Err: errEmptyResponse}
	}

	candidate, ok := findJSONValue(trimmed)
	if ok {
		if v, err := decodeOne(candidate); err == nil {
			return classify(raw, v)
		}
	} else {
		candidate = trimmed
	}

	if v, err := decodeOne(relaxSyntax(candidate)); err == nil {
		return classify(raw, v)
	}

	relaxed := relaxSyntax(strings.ReplaceAll(candidate, "'", `"`))
	if inner, ok := findJSONValue(relaxed); ok {
		relaxed = inner
	}
	v, err := decodeOne(relaxed)
	if err != nil {
		return Malformed{Raw: raw, Err: err}
	}
	return classify(raw, v)
}

func classify(raw string, v any) Response {
	switch val := v.(type) {
	case map[string]any:
		return Valid{Fields: val}
	case []any:
		return ValidList{Items: val}
	default:
		return Malformed{Raw: raw, Err: errNotContainer}
	}
}

func decodeOne(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if err := ensureEOF(dec); err != nil {
		return nil, err
	}
	return v, nil
}

func ensureEOF(dec *json.Decoder) error {
	var extra any
	if err := dec.Decode(&extra); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return errors.New("unexpected trailing data after JSON value")
}

// stripFence removes a ```json ... ``` wrapper.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := s[3:]
	end := strings.LastIndex(body, "```")
	if end == -1 {
		return s
	}
	body = body[:end]
	if idx := strings.Index(body, "\n"); idx != -1 {
		body = body[idx+1:]
	}
	return strings.TrimSpace(body)
}

// findJSONValue returns the first balanced {...} or [...] span, skipping
// brackets inside double-quoted strings.
func findJSONValue(input string) (string, bool) {
	start := -1
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' && start >= 0 {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{', '[':
			if start < 0 {
				start = i
			}
			stack = append(stack, ch)
		case '}', ']':
			if len(stack) == 0 {
				continue
			}
			open := stack[len(stack)-1]
			if (open == '{') != (ch == '}') {
				// Mismatched close; give up on this span.
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return input[start : i+1], true
			}
		}
	}
	return "", false
}

// relaxSyntax turns Python literals into JSON ones and drops trailing commas.
func relaxSyntax(s string) string {
	s = pyLiteral.ReplaceAllStringFunc(s, func(m string) string {
		switch m {
		case "None":
			return "null"
		case "True":
			return "true"
		default:
			return "false"
		}
	})
	return trailingComma.ReplaceAllString(s, "$1")
}

// compact renders a response for debug logs.
func compact(r Response) string {
	switch v := r.(type) {
	case Malformed:
		return v.Raw
	case Valid:
		b, _ := json.Marshal(v.Fields)
		return string(b)
	case ValidList:
		b, _ := json.Marshal(v.Items)
		return string(b)
	}
	return ""
}

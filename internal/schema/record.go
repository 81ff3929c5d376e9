package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Record holds exactly one value per schema field, in schema order.
// Fields with no usable value hold Sentinel.
type Record struct {
	schema *Schema
	values []string
}

// Empty returns a record with every field set to Sentinel.
func (s *Schema) Empty() Record {
	values := make([]string, len(s.fields))
	for i := range values {
		values[i] = Sentinel
	}
	return Record{schema: s, values: values}
}

// Normalize repairs an arbitrary key/value mapping into a Record. It is total:
// unknown keys are dropped, missing keys become Sentinel, and values of any
// JSON shape are reduced to strings. Exact key matches are applied before
// looser aliases so "provider_npi" wins over "Provider NPI" when both appear.
// Normalizing a record's own Map() yields the same record.
func (s *Schema) Normalize(fields map[string]any) Record {
	rec := s.Empty()

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	filled := make([]bool, len(s.fields))
	for _, exact := range []bool{true, false} {
		for _, name := range names {
			i, ok := s.Lookup(name)
			if !ok || filled[i] || s.IsKey(i, name) != exact {
				continue
			}
			value, ok := valueString(fields[name])
			if !ok {
				continue
			}
			rec.values[i] = value
			filled[i] = true
		}
	}

	return rec
}

// valueString reduces one decoded JSON value to cell text. The boolean is
// false when the value carries no information.
func valueString(v any) (string, bool) {
	var out string
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		out = strings.TrimSpace(val)
	case json.Number:
		out = val.String()
	case float64:
		out = strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		out = strconv.FormatBool(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := valueString(item); ok {
				parts = append(parts, s)
			}
		}
		out = strings.Join(parts, ", ")
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return valueString(items)
	case map[string]any:
		if len(val) == 0 {
			return "", false
		}
		b, err := json.Marshal(val)
		if err != nil {
			return "", false
		}
		out = string(b)
	default:
		out = strings.TrimSpace(fmt.Sprint(val))
	}

	if out == "" || strings.EqualFold(out, Sentinel) {
		return "", false
	}
	return out, true
}

// Schema returns the schema the record was built from.
func (r Record) Schema() *Schema { return r.schema }

// Values returns the field values in schema order.
func (r Record) Values() []string {
	out := make([]string, len(r.values))
	copy(out, r.values)
	return out
}

// At returns the value of field i.
func (r Record) At(i int) string { return r.values[i] }

// Get returns the value for a key or column title.
func (r Record) Get(name string) (string, bool) {
	if r.schema == nil {
		return "", false
	}
	i, ok := r.schema.Lookup(name)
	if !ok {
		return "", false
	}
	return r.values[i], true
}

// Map returns the record keyed by JSON key.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for i, v := range r.values {
		out[r.schema.fields[i].Key] = v
	}
	return out
}

// Found counts the fields that hold a real value.
func (r Record) Found() int {
	n := 0
	for _, v := range r.values {
		if v != Sentinel {
			n++
		}
	}
	return n
}

// Package schema defines the roster attribute schema and the normalized record
// every extracted email is reduced to before it reaches the spreadsheet.
package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Sentinel is written for every field the extractor could not determine.
const Sentinel = "Information not found"

// Field is one roster column.
type Field struct {
	Key    string // JSON key the model must return
	Column string // Spreadsheet column title
	Hint   string // Value format shown to the model
}

// Schema is the fixed, ordered set of fields. It is built once at startup and
// never mutated; share the pointer freely.
type Schema struct {
	fields []Field
	index  map[string]int
}

var (
	parenSuffix = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	nonAlnum    = regexp.MustCompile(`[^a-z0-9]+`)
)

// NormalizeName folds a key or column title into the form used for lookups:
// lower case, runs of anything that is not a letter or digit collapsed to "_".
func NormalizeName(name string) string {
	n := nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	return strings.Trim(n, "_")
}

// New builds a schema from fields in column order. Keys must be unique and
// every alias of one field must not collide with another field.
func New(fields ...Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema needs at least one field")
	}

	s := &Schema{
		fields: make([]Field, len(fields)),
		index:  make(map[string]int),
	}
	copy(s.fields, fields)

	for i, f := range s.fields {
		if NormalizeName(f.Key) == "" {
			return nil, fmt.Errorf("field %d has an empty key", i)
		}
		if f.Column == "" {
			s.fields[i].Column = f.Key
		}
		for _, alias := range aliases(s.fields[i]) {
			if prev, ok := s.index[alias]; ok && prev != i {
				return nil, fmt.Errorf("field %q collides with %q on %q", f.Key, s.fields[prev].Key, alias)
			}
			s.index[alias] = i
		}
	}

	return s, nil
}

// MustNew is New for package-level schemas.
func MustNew(fields ...Field) *Schema {
	s, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func aliases(f Field) []string {
	out := []string{NormalizeName(f.Key), NormalizeName(f.Column)}
	if stripped := NormalizeName(parenSuffix.ReplaceAllString(f.Column, "")); stripped != "" {
		out = append(out, stripped)
	}
	return out
}

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Fields returns a copy of the fields in column order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the field at position i.
func (s *Schema) Field(i int) Field { return s.fields[i] }

// Keys returns the JSON keys in column order.
func (s *Schema) Keys() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Key
	}
	return out
}

// Lookup resolves a key or column title to its field position. Matching is
// case-insensitive and ignores punctuation; a trailing parenthesised note
// ("Line Of Business (Medicare/Commercial/Medical)") is optional.
func (s *Schema) Lookup(name string) (int, bool) {
	if i, ok := s.index[NormalizeName(name)]; ok {
		return i, true
	}
	stripped := NormalizeName(parenSuffix.ReplaceAllString(name, ""))
	if stripped == "" {
		return -1, false
	}
	i, ok := s.index[stripped]
	if !ok {
		return -1, false
	}
	return i, true
}

// IsKey reports whether name is exactly the JSON key of field i.
func (s *Schema) IsKey(i int, name string) bool {
	return s.fields[i].Key == name
}

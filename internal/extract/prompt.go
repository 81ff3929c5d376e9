package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"rosterx/internal/schema"
)

const promptHeader = `You are a STRUCTURED-EXTRACTION model. Extract values from the %s below and RETURN STRICT JSON ONLY (no commentary).
If a value cannot be found, set it exactly to "%s".
Dates must be normalized to MM/DD/YYYY when possible.
%s with the following keys and value formats (exact keys must be used):

%s
`

const fence = `"""`

var emailBlock = regexp.MustCompile(`(?s)EMAIL(?: (\d+))?:\n"""\n(.*?)\n"""`)

// BuildPrompt renders the single-email prompt.
func BuildPrompt(s *schema.Schema, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, promptHeader, "EMAIL", schema.Sentinel, "Return a JSON object", schemaJSON(s))
	b.WriteString("\nEMAIL:\n")
	writeBlock(&b, text)
	b.WriteString("\nIMPORTANT: Return only valid JSON (a single JSON object) and nothing else.\n")
	return b.String()
}

// BuildBatchPrompt renders one prompt for several emails. The model is asked
// for a JSON array with one object per email, in order.
func BuildBatchPrompt(s *schema.Schema, texts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, promptHeader, fmt.Sprintf("%d EMAILS", len(texts)), schema.Sentinel,
		"For every email, build a JSON object", schemaJSON(s))
	for i, text := range texts {
		fmt.Fprintf(&b, "\nEMAIL %d:\n", i+1)
		writeBlock(&b, text)
	}
	fmt.Fprintf(&b, "\nIMPORTANT: Return only a valid JSON array of exactly %d objects, one per email, in the same order as the emails, and nothing else.\n", len(texts))
	return b.String()
}

// SplitPrompt recovers the email texts from a prompt built by BuildPrompt or
// BuildBatchPrompt. batch reports whether the prompt asked for an array.
func SplitPrompt(prompt string) (texts []string, batch bool) {
	for _, m := range emailBlock.FindAllStringSubmatch(prompt, -1) {
		if m[1] != "" {
			batch = true
		}
		texts = append(texts, m[2])
	}
	return texts, batch
}

func writeBlock(b *strings.Builder, text string) {
	b.WriteString(fence)
	b.WriteByte('\n')
	b.WriteString(strings.ReplaceAll(text, fence, "'''"))
	b.WriteByte('\n')
	b.WriteString(fence)
	b.WriteByte('\n')
}

// schemaJSON renders the fields as an indented JSON object in column order.
func schemaJSON(s *schema.Schema) string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, f := range s.Fields() {
		hint := f.Hint
		if hint == "" {
			hint = "string"
		}
		b.WriteString("  ")
		b.WriteString(quote(f.Key))
		b.WriteString(": ")
		b.WriteString(quote(hint + " or '" + schema.Sentinel + "'"))
		if i < s.Len()-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}")
	return b.String()
}

func quote(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		return strconv.Quote(s)
	}
	return string(out)
}

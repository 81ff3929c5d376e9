package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"rosterx/internal/schema"
)

// RulesGenerator answers extraction prompts offline with regular expressions.
// It understands only prompts built by this package and the roster schema
// keys; keys it has no rule for come back as the sentinel.
type RulesGenerator struct {
	schema *schema.Schema
	rules  []fieldRule
}

// fieldRule fills one key from the first submatch of re.
type fieldRule struct {
	key   string
	re    *regexp.Regexp
	clean func(string) string
}

const datePattern = `(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`
const phonePattern = `(\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4})`

var (
	npiMention    = regexp.MustCompile(`(?i)\b(group\s+)?npi\b[^\d\n]{0,12}(\d{10})\b`)
	termVerb      = regexp.MustCompile(`(?i)\b(terminat\w*|term\s+(?:date|reason)|remov\w*|disenroll\w*)`)
	updateVerb    = regexp.MustCompile(`(?i)\b(updat\w*|chang\w*|correct\w*)\b`)
	addVerb       = regexp.MustCompile(`(?i)\b(add|adding|added|onboard\w*|new\s+provider)\b`)
	updatedThing  = regexp.MustCompile(`(?i)\b(?:update|change|correct)\w*\s+(?:the\s+|their\s+|his\s+|her\s+)?(address|phone(?:\s+number)?|fax(?:\s+number)?|specialty|name|tin|npi|license|line\s+of\s+business)\b`)
	businessLines = regexp.MustCompile(`(?i)\b(medicare|commercial|medical)\b`)
	nonDigit      = regexp.MustCompile(`\D`)
	designation   = regexp.MustCompile(`(?i),?\s*\b(md|do|np|pa-c|pa|rn|dds|phd|lcsw|mph)\b\.?$`)
)

func digits(s string) string { return nonDigit.ReplaceAllString(s, "") }

func trimValue(s string) string {
	return strings.Trim(strings.TrimSpace(s), " .,;:")
}

// usDate rewrites M/D/YY or M-D-YYYY as MM/DD/YYYY.
func usDate(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return s
	}
	year := parts[2]
	if len(year) == 2 {
		year = "20" + year
	}
	return pad2(parts[0]) + "/" + pad2(parts[1]) + "/" + year
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func personName(s string) string {
	return trimValue(designation.ReplaceAllString(trimValue(s), ""))
}

// NewRulesGenerator builds the offline generator for s.
func NewRulesGenerator(s *schema.Schema) *RulesGenerator {
	return &RulesGenerator{
		schema: s,
		rules: []fieldRule{
			{key: "effective_date", re: regexp.MustCompile(`(?i)\beffective(?:\s+date)?\W{0,5}(?:on\s+|as\s+of\s+)?` + datePattern), clean: usDate},
			{key: "term_date", re: regexp.MustCompile(`(?i)\bterm(?:ination)?\s+date\W{0,5}` + datePattern), clean: usDate},
			{key: "term_reason", re: regexp.MustCompile(`(?i)\b(?:term(?:ination)?\s+reason|reason\s+for\s+termination)\s*[:\-]\s*([^.\n]+)`), clean: trimValue},
			{key: "provider_name", re: regexp.MustCompile(`(?i)\bprovider\s+name\s*[:\-]\s*([^\n,]+)`), clean: personName},
			{key: "provider_name", re: regexp.MustCompile(`\b(?:Dr\.?|Doctor)\s+([A-Z][a-zA-Z'\-]+(?:\s+[A-Z]\.)?(?:\s+[A-Z][a-zA-Z'\-]+)+)`), clean: personName},
			{key: "provider_specialty", re: regexp.MustCompile(`(?i)\bspecialty\s*[:\-]\s*([^\n.,;]+)`), clean: trimValue},
			{key: "state_license", re: regexp.MustCompile(`(?i)\blicense(?:\s*(?:no\.?|number|#))?\s*[:#\-]\s*([A-Za-z0-9\-]+)`), clean: trimValue},
			{key: "organization_name", re: regexp.MustCompile(`(?i)\b(?:organization(?:\s+name)?|group\s+name|practice(?:\s+name)?)\s*[:\-]\s*([^\n]+)`), clean: trimValue},
			{key: "tin", re: regexp.MustCompile(`(?i)\b(?:tin\b|tax\s*id(?:\s*(?:no\.?|number))?)\W{0,5}(\d{2}-?\d{7})\b`), clean: digits},
			{key: "complete_address", re: regexp.MustCompile(`(?i)\baddress\s*[:\-]\s*([^\n]+)`), clean: trimValue},
			{key: "phone_number", re: regexp.MustCompile(`(?i)\b(?:phone|tel(?:ephone)?)(?:\s+number)?\W{0,5}` + phonePattern), clean: digits},
			{key: "fax_number", re: regexp.MustCompile(`(?i)\bfax(?:\s+number)?\W{0,5}` + phonePattern), clean: digits},
			{key: "ppg_id", re: regexp.MustCompile(`(?i)\bppg(?:\s*id)?\s*[:#\-]?\s*([A-Za-z0-9\-]*\d[A-Za-z0-9\-]*(?:\s*,\s*[A-Za-z0-9\-]+)*)`), clean: trimValue},
		},
	}
}

// Generate implements llm.Generator. It answers with one object for a single
// email prompt and an array for a batch prompt.
func (g *RulesGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	texts, batch := SplitPrompt(prompt)
	if len(texts) == 0 {
		return "", fmt.Errorf("rules: prompt has no email block")
	}

	answers := make([]map[string]string, len(texts))
	for i, text := range texts {
		answers[i] = g.Fields(text)
	}

	var out []byte
	var err error
	if batch {
		out, err = json.Marshal(answers)
	} else {
		out, err = json.Marshal(answers[0])
	}
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Fields applies every rule to text. Every schema key is present.
func (g *RulesGenerator) Fields(text string) map[string]string {
	out := make(map[string]string, g.schema.Len())
	for _, key := range g.schema.Keys() {
		out[key] = schema.Sentinel
	}
	set := func(key, value string) {
		if _, known := out[key]; !known || value == "" || out[key] != schema.Sentinel {
			return
		}
		out[key] = value
	}

	for _, r := range g.rules {
		if m := r.re.FindStringSubmatch(text); m != nil {
			set(r.key, r.clean(m[1]))
		}
	}

	for _, m := range npiMention.FindAllStringSubmatch(text, -1) {
		if m[1] != "" {
			set("group_npi", m[2])
		} else {
			set("provider_npi", m[2])
		}
	}

	switch {
	case termVerb.MatchString(text):
		set("transaction_type", "Term")
	case updateVerb.MatchString(text):
		set("transaction_type", "Update")
		if m := updatedThing.FindStringSubmatch(text); m != nil {
			set("transaction_attribute", titleWords(m[1]))
		}
	case addVerb.MatchString(text):
		set("transaction_type", "Add")
	}

	if m := businessLines.FindStringSubmatch(text); m != nil {
		set("line_of_business", titleWords(m[1]))
	}

	return out
}

func titleWords(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

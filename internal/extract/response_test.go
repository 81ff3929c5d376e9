package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string // "valid", "list", "malformed"
	}{
		{"object", `{"tin":"123"}`, "valid"},
		{"padded object", "\n  {\"tin\":\"123\"}  \n", "valid"},
		{"fenced", "```json\n{\"tin\":\"123\"}\n```", "valid"},
		{"array", `[{"tin":"1"},{"tin":"2"}]`, "list"},
		{"empty", "   ", "malformed"},
		{"prose", "I could not find anything.", "malformed"},
		{"chatty", `Sure! {"tin":"123"}`, "malformed"},
		{"scalar", `"just a string"`, "malformed"},
		{"two objects", `{"a":1}{"b":2}`, "malformed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kind(Decode(tt.raw)))
		})
	}
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		key  string
		val  any
	}{
		{"chatty prefix and suffix", "Here is the JSON:\n{\"tin\": \"123\"}\nLet me know!", "valid", "tin", "123"},
		{"brace inside string", `Result: {"complete_address": "Suite {4}", "tin": "9"} done`, "valid", "complete_address", "Suite {4}"},
		{"single quotes", `{'provider_name': 'Jane Doe'}`, "valid", "provider_name", "Jane Doe"},
		{"trailing comma", `{"provider_npi": "1234567890",}`, "valid", "provider_npi", "1234567890"},
		{"python literals", `{'term_reason': None, 'ok': True,}`, "valid", "ok", true},
		{"apostrophe with trailing comma", `{"provider_name": "Mary O'Brien", "tin": "123",}`, "valid", "provider_name", "Mary O'Brien"},
		{"apostrophe with trailing comma in prose", "Sure! {\"provider_name\": \"Mary O'Brien\", \"tin\": \"123\",} Hope this helps.", "valid", "provider_name", "Mary O'Brien"},
		{"apostrophe with python literal", `{"complete_address": "St John's Rd", "group_npi": None}`, "valid", "complete_address", "St John's Rd"},
		{"array in prose", `Answer: [{"tin":"1"}] end`, "list", "", nil},
		{"unbalanced", `{"tin": "123"`, "malformed", "", nil},
		{"no json at all", `nothing here`, "malformed", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Repair(tt.raw)
			require.Equal(t, tt.want, kind(got))
			if tt.key != "" {
				assert.Equal(t, tt.val, got.(Valid).Fields[tt.key])
			}
		})
	}
}

func TestParse_StrictFirst(t *testing.T) {
	// Valid JSON containing an apostrophe must not go through quote rewriting.
	got := Parse(`{"provider_name": "Pat O'Brien"}`)
	require.IsType(t, Valid{}, got)
	assert.Equal(t, "Pat O'Brien", got.(Valid).Fields["provider_name"])
}

func TestParse_MalformedKeepsRaw(t *testing.T) {
	got := Parse("no json")
	m, ok := got.(Malformed)
	require.True(t, ok)
	assert.Equal(t, "no json", m.Raw)
	assert.Error(t, m.Err)
}

func TestFindJSONValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`x {"a":{"b":[1,2]}} y {"c":1}`, `{"a":{"b":[1,2]}}`, true},
		{`[1, {"a": "]"}] tail`, `[1, {"a": "]"}]`, true},
		{`} stray {"a":"\"}"}`, `{"a":"\"}"}`, true},
		{`{"a": [1}`, "", false},
		{`{`, "", false},
	}
	for _, tt := range tests {
		got, ok := findJSONValue(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func kind(r Response) string {
	switch r.(type) {
	case Valid:
		return "valid"
	case ValidList:
		return "list"
	case Malformed:
		return "malformed"
	}
	return "unknown"
}

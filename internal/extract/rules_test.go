package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosterx/internal/schema"
)

func TestRules_TerminationScenario(t *testing.T) {
	s := schema.Roster()
	e := New(s, NewRulesGenerator(s))

	rec, err := e.Extract(context.Background(),
		"Please terminate Dr. John Smith, NPI 1234567890, effective 09/01/2024. Term reason: Retired. Group NPI: 9876543210.")
	require.NoError(t, err)

	want := map[string]string{
		"transaction_type": "Term",
		"provider_name":    "John Smith",
		"provider_npi":     "1234567890",
		"effective_date":   "09/01/2024",
		"term_reason":      "Retired",
		"group_npi":        "9876543210",
	}
	got := rec.Map()
	require.Len(t, got, 17)
	for key, value := range got {
		if w, ok := want[key]; ok {
			assert.Equal(t, w, value, key)
		} else {
			assert.Equal(t, schema.Sentinel, value, key)
		}
	}
	assert.Equal(t, 6, rec.Found())
}

func TestRules_Fields(t *testing.T) {
	g := NewRulesGenerator(schema.Roster())

	got := g.Fields(`Hello team,
Please update the address for Dr. Maria L. Gomez, MD.
Provider NPI: 1112223334
Specialty: Pediatrics
Tax ID: 12-3456789
Address: 100 Main St, Austin, TX 78701
Phone: (512) 555-0100
Fax: 512.555.0199
PPG ID: PPG123, PPG456
Effective 1/5/25
Line of business: Commercial`)

	assert.Equal(t, "Update", got["transaction_type"])
	assert.Equal(t, "Address", got["transaction_attribute"])
	assert.Equal(t, "Maria L. Gomez", got["provider_name"])
	assert.Equal(t, "1112223334", got["provider_npi"])
	assert.Equal(t, "Pediatrics", got["provider_specialty"])
	assert.Equal(t, "123456789", got["tin"])
	assert.Equal(t, "100 Main St, Austin, TX 78701", got["complete_address"])
	assert.Equal(t, "5125550100", got["phone_number"])
	assert.Equal(t, "5125550199", got["fax_number"])
	assert.Equal(t, "PPG123, PPG456", got["ppg_id"])
	assert.Equal(t, "01/05/2025", got["effective_date"])
	assert.Equal(t, "Commercial", got["line_of_business"])
	assert.Equal(t, schema.Sentinel, got["group_npi"])
}

func TestRules_GenerateBatch(t *testing.T) {
	s := schema.Roster()
	e := New(s, NewRulesGenerator(s))

	outs := e.ExtractBatch(context.Background(), []string{
		"Add Dr. Ann Lee, NPI 1000000001.",
		"Terminate NPI 2000000002.",
	})
	require.Len(t, outs, 2)
	require.NoError(t, outs[0].Err)
	require.NoError(t, outs[1].Err)

	tt, _ := outs[0].Record.Get("transaction_type")
	assert.Equal(t, "Add", tt)
	npi, _ := outs[1].Record.Get("provider_npi")
	assert.Equal(t, "2000000002", npi)
}

func TestRules_RejectsForeignPrompt(t *testing.T) {
	_, err := NewRulesGenerator(schema.Roster()).Generate(context.Background(), "hello")
	assert.Error(t, err)
}

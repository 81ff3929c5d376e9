package roster

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"rosterx/internal/schema"
)

// writeWorkbook saves rows to a new workbook under dir.
func writeWorkbook(t *testing.T, dir, name string, rows ...[]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func rosterHeaders() []interface{} {
	var out []interface{}
	for _, f := range schema.Roster().Fields() {
		out = append(out, f.Column)
	}
	return out
}

func TestOpenTemplate_DropsDataRows(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeWorkbook(t, dir, "template.xlsx",
		[]interface{}{"Provider NPI", "Provider Name"},
		[]interface{}{"stale", "row"},
	)

	tbl, err := OpenTemplate(tmpl, schema.Roster(), zap.NewNop())
	require.NoError(t, err)
	defer tbl.Close()

	assert.Equal(t, []string{"Provider NPI", "Provider Name"}, tbl.Headers())
	rows, err := tbl.Rows()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAppendSaveRoundTrip(t *testing.T) {
	s := schema.Roster()
	dir := t.TempDir()
	tmpl := writeWorkbook(t, dir, "template.xlsx", rosterHeaders())

	tbl, err := OpenTemplate(tmpl, s, nil)
	require.NoError(t, err)
	defer tbl.Close()

	recs := []schema.Record{
		s.Normalize(map[string]any{"provider_name": "John Smith", "provider_npi": "1234567890"}),
		s.Empty(),
	}
	for _, rec := range recs {
		require.NoError(t, tbl.Append(rec))
	}
	assert.Equal(t, 2, tbl.Len())

	out := filepath.Join(dir, "out.xlsx")
	require.NoError(t, tbl.Save(out))

	headers, rows, err := ReadTable(out)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for r, rec := range recs {
		for c, h := range headers {
			want, ok := rec.Get(h)
			require.True(t, ok, h)
			assert.Equal(t, want, rows[r][c], "row %d header %q", r, h)
		}
	}

	// The template is untouched.
	_, tmplRows, err := ReadTable(tmpl)
	require.NoError(t, err)
	assert.Empty(t, tmplRows)
}

func TestAppend_HeaderOrderAndUnknownColumns(t *testing.T) {
	s := schema.Roster()
	dir := t.TempDir()
	tmpl := writeWorkbook(t, dir, "template.xlsx",
		[]interface{}{"TIN", "Notes", "Transaction Type", "provider_npi"})

	tbl, err := OpenTemplate(tmpl, s, nil)
	require.NoError(t, err)
	defer tbl.Close()

	rec := s.Normalize(map[string]any{
		"provider_npi":     "1234567890",
		"transaction_type": "Add",
		"tin":              "987654321",
	})
	require.NoError(t, tbl.Append(rec))

	rows, err := tbl.Rows()
	require.NoError(t, err)
	want := [][]string{{"987654321", schema.Sentinel, "Add", "1234567890"}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestAppend_RejectsForeignSchema(t *testing.T) {
	tmpl := writeWorkbook(t, t.TempDir(), "template.xlsx", rosterHeaders())
	tbl, err := OpenTemplate(tmpl, schema.Roster(), nil)
	require.NoError(t, err)
	defer tbl.Close()

	other := schema.MustNew(schema.Field{Key: "tin", Column: "TIN"})
	err = tbl.Append(other.Normalize(map[string]any{"tin": "1"}))
	assert.True(t, errors.Is(err, ErrOutputWrite))

	err = tbl.Append(schema.Record{})
	assert.True(t, errors.Is(err, ErrOutputWrite))
	assert.Equal(t, 0, tbl.Len())
}

func TestAppend_NotIdempotent(t *testing.T) {
	s := schema.Roster()
	tmpl := writeWorkbook(t, t.TempDir(), "template.xlsx", rosterHeaders())
	tbl, err := OpenTemplate(tmpl, s, nil)
	require.NoError(t, err)
	defer tbl.Close()

	rec := s.Normalize(map[string]any{"tin": "1"})
	require.NoError(t, tbl.Append(rec))
	require.NoError(t, tbl.Append(rec))

	rows, err := tbl.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, rows[0], rows[1])
}

func TestOpenTemplate_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := OpenTemplate(filepath.Join(dir, "missing.xlsx"), schema.Roster(), nil)
	assert.True(t, errors.Is(err, ErrTemplateUnreadable))

	empty := writeWorkbook(t, dir, "empty.xlsx")
	_, err = OpenTemplate(empty, schema.Roster(), nil)
	assert.True(t, errors.Is(err, ErrTemplateUnreadable))
}

func TestSave_Errors(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeWorkbook(t, dir, "template.xlsx", rosterHeaders())
	tbl, err := OpenTemplate(tmpl, schema.Roster(), nil)
	require.NoError(t, err)
	defer tbl.Close()

	err = tbl.Save(tmpl)
	assert.True(t, errors.Is(err, ErrOutputWrite))

	err = tbl.Save(filepath.Join(dir, "no", "such", "dir", "out.xlsx"))
	assert.True(t, errors.Is(err, ErrOutputWrite))
}

func TestCheckOutputPath(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, CheckOutputPath(filepath.Join(dir, "t.xlsx"), filepath.Join(dir, "o.xlsx")))
	err := CheckOutputPath(filepath.Join(dir, "t.xlsx"), filepath.Join(dir, ".", "sub", "..", "t.xlsx"))
	assert.True(t, errors.Is(err, ErrOutputWrite))
}

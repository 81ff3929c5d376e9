// Package roster reads the header row of a spreadsheet template and writes
// extracted records below it.
package roster

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"rosterx/internal/schema"
)

var (
	// ErrTemplateUnreadable is returned when the template cannot be opened or
	// has no header row.
	ErrTemplateUnreadable = errors.New("template unreadable")

	// ErrOutputWrite is returned when rows cannot be written or saved.
	ErrOutputWrite = errors.New("output write failure")
)

// Table is the output workbook: a copy of the template whose header row is
// fixed at open time. It has a single writer.
type Table struct {
	file     *excelize.File
	sheet    string
	template string
	schema   *schema.Schema
	headers  []string
	fields   []int // schema position per header, -1 if unmatched
	nextRow  int
	appended int
	log      *zap.Logger
}

// OpenTemplate loads the template at path. Row 1 of the active sheet is the
// header; any rows below it are dropped from the in-memory copy. The template
// file itself is never written.
func OpenTemplate(path string, s *schema.Schema, log *zap.Logger) (*Table, error) {
	if log == nil {
		log = zap.NewNop()
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateUnreadable, path, err)
	}

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateUnreadable, path, err)
	}
	if len(rows) == 0 || isBlank(rows[0]) {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: no header row", ErrTemplateUnreadable, path)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	for r := len(rows); r >= 2; r-- {
		if err := f.RemoveRow(sheet, r); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %s: clearing row %d: %v", ErrTemplateUnreadable, path, r, err)
		}
	}
	if len(rows) > 1 {
		log.Debug("Dropped template data rows", zap.Int("rows", len(rows)-1))
	}

	fields := make([]int, len(headers))
	for i, h := range headers {
		idx, ok := s.Lookup(h)
		if !ok {
			log.Warn("Template header matches no schema field; it will hold the sentinel",
				zap.String("header", h))
		}
		fields[i] = idx
	}

	log.Debug("Template loaded",
		zap.String("path", path),
		zap.String("sheet", sheet),
		zap.Strings("headers", headers))

	return &Table{
		file:     f,
		sheet:    sheet,
		template: path,
		schema:   s,
		headers:  headers,
		fields:   fields,
		nextRow:  2,
		log:      log,
	}, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Headers returns a copy of the header row.
func (t *Table) Headers() []string {
	out := make([]string, len(t.headers))
	copy(out, t.headers)
	return out
}

// Len returns the number of rows appended so far.
func (t *Table) Len() int { return t.appended }

// Append writes rec as the next row, one cell per header, looked up by header
// name. Headers the record does not know get the sentinel.
func (t *Table) Append(rec schema.Record) error {
	if rec.Schema() != t.schema {
		return fmt.Errorf("%w: record built from a different schema", ErrOutputWrite)
	}
	row := make([]interface{}, len(t.headers))
	for i, idx := range t.fields {
		if idx < 0 {
			row[i] = schema.Sentinel
			continue
		}
		row[i] = rec.At(idx)
	}

	cell, err := excelize.CoordinatesToCellName(1, t.nextRow)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}
	if err := t.file.SetSheetRow(t.sheet, cell, &row); err != nil {
		return fmt.Errorf("%w: row %d: %v", ErrOutputWrite, t.nextRow, err)
	}

	t.nextRow++
	t.appended++
	return nil
}

// Rows returns the appended rows as strings.
func (t *Table) Rows() ([][]string, error) {
	rows, err := t.file.GetRows(t.sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

// CheckOutputPath rejects an output path that would overwrite the template.
func CheckOutputPath(template, output string) error {
	if samePath(template, output) {
		return fmt.Errorf("%w: output path %s is the template", ErrOutputWrite, output)
	}
	return nil
}

// Save writes the workbook to path, which must not be the template.
func (t *Table) Save(path string) error {
	if err := CheckOutputPath(t.template, path); err != nil {
		return err
	}
	if err := t.file.SaveAs(path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutputWrite, path, err)
	}
	t.log.Info("Output saved", zap.String("path", path), zap.Int("rows", t.appended))
	return nil
}

// Close releases the workbook.
func (t *Table) Close() error {
	return t.file.Close()
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// ReadTable returns the header row and data rows of the active sheet of a
// saved workbook.
func ReadTable(path string) (headers []string, rows [][]string, err error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	all, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}

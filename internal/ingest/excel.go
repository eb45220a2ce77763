// internal/ingest/excel.go

// Package ingest reads employee/POS pairs out of the operator-supplied Excel
// workbook and partitions them into actionable and rejected rows.
package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Pair is one actionable row from the workbook.
type Pair struct {
	EmployeeID string
	PosID      string
}

// InvalidRow is a workbook row rejected before any browser work happens,
// together with the reason it was rejected.
type InvalidRow struct {
	EmployeeID string
	PosID      string
	Reason     string
}

// Result partitions the workbook into rows worth attempting and rows that
// can never succeed. Both slices preserve workbook order.
type Result struct {
	Valid   []Pair
	Invalid []InvalidRow
}

// columnAliases maps legacy export headers onto the canonical column names.
// Older exports from the HR system use the ma_msocial naming.
var columnAliases = map[string]string{
	"ma_msocial":          "employee_id",
	"ma_msocial_cap_tren": "pos_id",
}

// placeholderValues are spreadsheet artifacts that mean "no value". They show
// up when the sheet was assembled from other tools' exports.
var placeholderValues = map[string]struct{}{
	"":     {},
	"#n/a": {},
	"n/a":  {},
	"nan":  {},
	"none": {},
}

// ReadWorkbook loads the first sheet of the workbook at path and returns its
// rows partitioned into valid and invalid. The header row is matched
// case-insensitively and legacy column names are accepted.
func ReadWorkbook(path string, logger *zap.Logger) (*Result, error) {
	log := logger.Named("ingest")

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %q: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Warn("Failed to close workbook.", zap.Error(cerr))
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	empCol, posCol, err := locateColumns(rows[0])
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}

	result := &Result{}
	for i, row := range rows[1:] {
		employeeID := strings.TrimSpace(cellAt(row, empCol))
		posID := strings.TrimSpace(cellAt(row, posCol))

		if isPlaceholder(employeeID) && isPlaceholder(posID) {
			// Fully blank rows are spreadsheet padding, not data.
			continue
		}
		if isPlaceholder(employeeID) {
			result.Invalid = append(result.Invalid, InvalidRow{
				EmployeeID: employeeID, PosID: posID,
				Reason: fmt.Sprintf("row %d: missing employee id", i+2),
			})
			continue
		}
		if isPlaceholder(posID) {
			result.Invalid = append(result.Invalid, InvalidRow{
				EmployeeID: employeeID, PosID: posID,
				Reason: fmt.Sprintf("row %d: missing or placeholder pos id", i+2),
			})
			continue
		}
		result.Valid = append(result.Valid, Pair{EmployeeID: employeeID, PosID: posID})
	}

	log.Info("Workbook loaded.",
		zap.String("sheet", sheet),
		zap.Int("valid_rows", len(result.Valid)),
		zap.Int("invalid_rows", len(result.Invalid)))
	return result, nil
}

// Slice applies the operator's offset/limit window to the valid pairs.
// A non-positive limit means no upper bound.
func Slice(pairs []Pair, offset, limit int) []Pair {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(pairs) {
		return nil
	}
	window := pairs[offset:]
	if limit > 0 && limit < len(window) {
		window = window[:limit]
	}
	return window
}

// locateColumns resolves the employee and POS column indexes from the header
// row, accepting both canonical and legacy names.
func locateColumns(header []string) (empCol, posCol int, err error) {
	empCol, posCol = -1, -1
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		if canonical, ok := columnAliases[name]; ok {
			name = canonical
		}
		switch name {
		case "employee_id":
			empCol = i
		case "pos_id":
			posCol = i
		}
	}
	if empCol < 0 || posCol < 0 {
		return 0, 0, errors.New("header must contain employee_id and pos_id columns")
	}
	return empCol, posCol, nil
}

// cellAt returns the cell at index or "" when the row is short. excelize trims
// trailing empty cells from rows.
func cellAt(row []string, index int) string {
	if index >= len(row) {
		return ""
	}
	return row[index]
}

// isPlaceholder reports whether a trimmed cell value carries no real data.
func isPlaceholder(value string) bool {
	_, ok := placeholderValues[strings.ToLower(value)]
	return ok
}

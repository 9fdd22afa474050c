// Package sheets provides spreadsheet access infrastructure.
// This is part of the platform layer and contains no business logic.
package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ValueStore is the engine's view of a spreadsheet backend. Ranges use A1
// notation ("CallLogToday!A2:H"). All values are read and written as
// strings; numeric formatting belongs to the sheet, not the engine.
type ValueStore interface {
	// Read returns the non-empty rectangle within the range. Trailing
	// empty rows and cells are trimmed, matching Google Sheets semantics.
	Read(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error)
	// Write overwrites values starting at the top-left of the range.
	Write(ctx context.Context, spreadsheetID, a1Range string, rows [][]string) error
	// Clear empties the cells in the range without touching formatting.
	Clear(ctx context.Context, spreadsheetID, a1Range string) error
	// Append adds rows after the last data row of the table the range
	// intersects.
	Append(ctx context.Context, spreadsheetID, a1Range string, rows [][]string) error
}

// a1Ref is a parsed A1-notation range. Zero row/col values mean
// "unbounded" on that axis (e.g. "A2:H" has endRow 0).
type a1Ref struct {
	sheet    string
	startCol int // 1-based
	startRow int // 1-based
	endCol   int
	endRow   int
}

func parseA1(a1Range string) (a1Ref, error) {
	ref := a1Ref{}

	rest := a1Range
	if idx := strings.LastIndex(a1Range, "!"); idx >= 0 {
		ref.sheet = strings.Trim(a1Range[:idx], "'")
		rest = a1Range[idx+1:]
	}
	if rest == "" {
		return ref, nil
	}

	parts := strings.SplitN(rest, ":", 2)
	var err error
	ref.startCol, ref.startRow, err = parseCell(parts[0])
	if err != nil {
		return ref, fmt.Errorf("parse range %q: %w", a1Range, err)
	}
	if len(parts) == 2 {
		ref.endCol, ref.endRow, err = parseCell(parts[1])
		if err != nil {
			return ref, fmt.Errorf("parse range %q: %w", a1Range, err)
		}
	} else {
		ref.endCol, ref.endRow = ref.startCol, ref.startRow
	}
	return ref, nil
}

func parseCell(cell string) (col, row int, err error) {
	i := 0
	for i < len(cell) && cell[i] >= 'A' && cell[i] <= 'Z' {
		col = col*26 + int(cell[i]-'A'+1)
		i++
	}
	if i < len(cell) {
		row, err = strconv.Atoi(cell[i:])
		if err != nil {
			return 0, 0, fmt.Errorf("bad cell %q", cell)
		}
	}
	if col == 0 && row == 0 {
		return 0, 0, fmt.Errorf("bad cell %q", cell)
	}
	return col, row, nil
}

// columnName converts a 1-based column index to its letter form.
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}

// RangeFor builds an A1 range for a rectangle on a sheet. endRow or
// endCol of 0 leaves that edge open.
func RangeFor(sheet string, startCol, startRow, endCol, endRow int) string {
	start := columnName(startCol) + strconv.Itoa(startRow)
	end := ""
	if endCol > 0 {
		end = columnName(endCol)
	}
	if endRow > 0 {
		end += strconv.Itoa(endRow)
	}
	if end == "" {
		return fmt.Sprintf("%s!%s", sheet, start)
	}
	return fmt.Sprintf("%s!%s:%s", sheet, start, end)
}

// CellRange builds an A1 reference for a single cell.
func CellRange(sheet string, col, row int) string {
	return fmt.Sprintf("%s!%s%d", sheet, columnName(col), row)
}

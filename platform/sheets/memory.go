package sheets

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process ValueStore backed by string grids. It is
// used by package tests across the engine and by local development runs
// without Google credentials.
type MemoryStore struct {
	mu     sync.Mutex
	sheets map[string]map[string][][]string // spreadsheetID -> sheet -> grid
}

// NewMemoryStore creates an empty in-memory spreadsheet backend.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sheets: make(map[string]map[string][][]string)}
}

// Seed replaces one sheet's full grid, rows starting at row 1.
func (s *MemoryStore) Seed(spreadsheetID, sheet string, grid [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sheets[spreadsheetID] == nil {
		s.sheets[spreadsheetID] = make(map[string][][]string)
	}
	copied := make([][]string, len(grid))
	for i, row := range grid {
		copied[i] = append([]string(nil), row...)
	}
	s.sheets[spreadsheetID][sheet] = copied
}

// Grid returns a copy of one sheet's full grid for assertions.
func (s *MemoryStore) Grid(spreadsheetID, sheet string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	grid := s.sheets[spreadsheetID][sheet]
	copied := make([][]string, len(grid))
	for i, row := range grid {
		copied[i] = append([]string(nil), row...)
	}
	return copied
}

func (s *MemoryStore) grid(spreadsheetID, sheet string) [][]string {
	if s.sheets[spreadsheetID] == nil {
		s.sheets[spreadsheetID] = make(map[string][][]string)
	}
	return s.sheets[spreadsheetID][sheet]
}

func (s *MemoryStore) Read(_ context.Context, spreadsheetID, a1Range string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := parseA1(a1Range)
	if err != nil {
		return nil, err
	}
	grid := s.grid(spreadsheetID, ref.sheet)

	startRow, startCol := defaultOne(ref.startRow), defaultOne(ref.startCol)
	endRow, endCol := ref.endRow, ref.endCol
	if endRow == 0 || endRow > len(grid) {
		endRow = len(grid)
	}

	var rows [][]string
	for r := startRow; r <= endRow; r++ {
		src := grid[r-1]
		last := endCol
		if last == 0 || last > len(src) {
			last = len(src)
		}
		var row []string
		if last >= startCol {
			row = append([]string(nil), src[startCol-1:last]...)
		}
		rows = append(rows, trimRight(row))
	}
	return trimTrailingEmpty(rows), nil
}

func (s *MemoryStore) Write(_ context.Context, spreadsheetID, a1Range string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := parseA1(a1Range)
	if err != nil {
		return err
	}

	startRow, startCol := defaultOne(ref.startRow), defaultOne(ref.startCol)
	grid := s.grid(spreadsheetID, ref.sheet)
	for i, row := range rows {
		grid = setRow(grid, startRow+i, startCol, row)
	}
	s.sheets[spreadsheetID][ref.sheet] = grid
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, spreadsheetID, a1Range string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := parseA1(a1Range)
	if err != nil {
		return err
	}

	grid := s.grid(spreadsheetID, ref.sheet)
	startRow, startCol := defaultOne(ref.startRow), defaultOne(ref.startCol)
	endRow, endCol := ref.endRow, ref.endCol
	if endRow == 0 || endRow > len(grid) {
		endRow = len(grid)
	}

	for r := startRow; r <= endRow; r++ {
		row := grid[r-1]
		last := endCol
		if last == 0 || last > len(row) {
			last = len(row)
		}
		for c := startCol; c <= last; c++ {
			row[c-1] = ""
		}
	}
	return nil
}

func (s *MemoryStore) Append(_ context.Context, spreadsheetID, a1Range string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := parseA1(a1Range)
	if err != nil {
		return err
	}

	grid := s.grid(spreadsheetID, ref.sheet)

	// Append below the last non-empty row, like the Sheets API does for
	// a table anchored at the range start.
	next := defaultOne(ref.startRow)
	for r := len(grid); r >= 1; r-- {
		if len(trimRight(grid[r-1])) > 0 {
			if r+1 > next {
				next = r + 1
			}
			break
		}
	}

	startCol := defaultOne(ref.startCol)
	for i, row := range rows {
		grid = setRow(grid, next+i, startCol, row)
	}
	s.sheets[spreadsheetID][ref.sheet] = grid
	return nil
}

func setRow(grid [][]string, rowNum, startCol int, values []string) [][]string {
	for len(grid) < rowNum {
		grid = append(grid, []string{})
	}
	row := grid[rowNum-1]
	needed := startCol - 1 + len(values)
	for len(row) < needed {
		row = append(row, "")
	}
	copy(row[startCol-1:], values)
	grid[rowNum-1] = row
	return grid
}

func defaultOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

func trimRight(row []string) []string {
	end := len(row)
	for end > 0 && row[end-1] == "" {
		end--
	}
	return row[:end]
}

func trimTrailingEmpty(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && len(rows[end-1]) == 0 {
		end--
	}
	return rows[:end]
}

var _ ValueStore = (*MemoryStore)(nil)

// String satisfies fmt.Stringer for debugging test failures.
func (s *MemoryStore) String() string {
	return fmt.Sprintf("MemoryStore(%d spreadsheets)", len(s.sheets))
}

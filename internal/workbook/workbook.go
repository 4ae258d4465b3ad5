// Package workbook abstracts the spreadsheet that holds the keyword list
// and receives the results table.
package workbook

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means the spreadsheet itself could not be located.
	ErrNotFound = errors.New("spreadsheet not found")
	// ErrSheetNotFound means the spreadsheet exists but has no such sheet.
	ErrSheetNotFound = errors.New("sheet not found")
)

// Workbook is a named collection of sheets.
type Workbook interface {
	// ReadColumn returns the values of column col (1-based) of sheet, top
	// to bottom. Trailing empty cells are dropped; empty cells between
	// values are returned as "".
	ReadColumn(ctx context.Context, sheet string, col int) ([]string, error)
	// ReplaceSheet discards everything in sheet and writes values from A1.
	// A missing sheet is created with room for exactly len(values) rows
	// and the widest row's columns.
	ReplaceSheet(ctx context.Context, sheet string, values [][]any) error
	Close() error
}

// Width returns the length of the widest row.
func Width(values [][]any) int {
	w := 0
	for _, row := range values {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// TrimTrailing drops empty strings from the end of col.
func TrimTrailing(col []string) []string {
	n := len(col)
	for n > 0 && strings.TrimSpace(col[n-1]) == "" {
		n--
	}
	return col[:n]
}

// Cell renders a value the way it is stored in text-only backends.
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

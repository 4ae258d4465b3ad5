// Package xlsx stores a workbook in a local .xlsx file.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/FranksOps/scout/internal/workbook"
	"github.com/xuri/excelize/v2"
)

// ensure xlsxBook implements workbook.Workbook
var _ workbook.Workbook = (*xlsxBook)(nil)

type xlsxBook struct {
	mu   sync.Mutex
	path string
	file *excelize.File
}

// Open loads the workbook at path. Changes are saved back to the same file.
func Open(path string) (workbook.Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("xlsx: %s: %w", path, workbook.ErrNotFound)
		}
		return nil, fmt.Errorf("xlsx: %w", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	return &xlsxBook{path: path, file: f}, nil
}

// Create writes a new workbook at path whose sheets are named sheets, in
// order. It is used to scaffold a keywords file.
func Create(path string, sheets ...string) error {
	f := excelize.NewFile()
	defer f.Close()

	if len(sheets) == 0 {
		sheets = []string{"Sheet1"}
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheets[0]); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	for _, name := range sheets[1:] {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	return nil
}

func (b *xlsxBook) hasSheet(sheet string) bool {
	idx, err := b.file.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

func (b *xlsxBook) ReadColumn(ctx context.Context, sheet string, col int) ([]string, error) {
	if col < 1 {
		return nil, fmt.Errorf("xlsx: invalid column %d", col)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasSheet(sheet) {
		return nil, fmt.Errorf("xlsx: %q: %w", sheet, workbook.ErrSheetNotFound)
	}

	rows, err := b.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}

	values := make([]string, 0, len(rows))
	for _, row := range rows {
		if col <= len(row) {
			values = append(values, row[col-1])
		} else {
			values = append(values, "")
		}
	}
	return workbook.TrimTrailing(values), nil
}

func (b *xlsxBook) ReplaceSheet(ctx context.Context, sheet string, values [][]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hasSheet(sheet) {
		if err := b.clear(sheet); err != nil {
			return err
		}
	} else if _, err := b.file.NewSheet(sheet); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}

	for i, row := range values {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
		r := row
		if err := b.file.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
	}

	if err := b.file.Save(); err != nil {
		return fmt.Errorf("xlsx: save %s: %w", b.path, err)
	}
	return nil
}

// clear removes every populated row of sheet, bottom up.
func (b *xlsxBook) clear(sheet string) error {
	rows, err := b.file.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	for i := len(rows); i >= 1; i-- {
		if err := b.file.RemoveRow(sheet, i); err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
	}
	return nil
}

func (b *xlsxBook) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}

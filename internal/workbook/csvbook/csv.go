// Package csvbook stores a workbook as a directory with one CSV file per
// sheet, named <sheet>.csv.
package csvbook

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/FranksOps/scout/internal/workbook"
)

// ensure csvBook implements workbook.Workbook
var _ workbook.Workbook = (*csvBook)(nil)

type csvBook struct {
	mu  sync.Mutex
	dir string
}

// Open returns the workbook rooted at dir, which must already exist.
func Open(dir string) (workbook.Workbook, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("csvbook: %s: %w", dir, workbook.ErrNotFound)
		}
		return nil, fmt.Errorf("csvbook: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("csvbook: %s is not a directory", dir)
	}
	return &csvBook{dir: dir}, nil
}

func (b *csvBook) path(sheet string) string {
	return filepath.Join(b.dir, sheet+".csv")
}

func (b *csvBook) ReadColumn(ctx context.Context, sheet string, col int) ([]string, error) {
	if col < 1 {
		return nil, fmt.Errorf("csvbook: invalid column %d", col)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := os.Open(b.path(sheet))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("csvbook: %q: %w", sheet, workbook.ErrSheetNotFound)
		}
		return nil, fmt.Errorf("csvbook: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var values []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvbook: %w", err)
		}
		if col <= len(record) {
			values = append(values, record[col-1])
		} else {
			values = append(values, "")
		}
	}

	return workbook.TrimTrailing(values), nil
}

// ReplaceSheet writes to a temporary file and renames it over the sheet,
// so readers never observe a half-written table.
func (b *csvBook) ReplaceSheet(ctx context.Context, sheet string, values [][]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tmp, err := os.CreateTemp(b.dir, "."+sheet+"-*.csv")
	if err != nil {
		return fmt.Errorf("csvbook: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	for _, row := range values {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = workbook.Cell(v)
		}
		if err := w.Write(record); err != nil {
			tmp.Close()
			return fmt.Errorf("csvbook: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("csvbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csvbook: %w", err)
	}

	if err := os.Rename(tmp.Name(), b.path(sheet)); err != nil {
		return fmt.Errorf("csvbook: %w", err)
	}
	return nil
}

func (b *csvBook) Close() error {
	return nil
}

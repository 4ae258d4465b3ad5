// Package table converts search results to spreadsheet rows and moves the
// keyword list and result table in and out of a workbook.
package table

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/FranksOps/scout/internal/marketplace"
	"github.com/FranksOps/scout/internal/workbook"
)

// DateLayout formats the Search Date column.
const DateLayout = "2006-01-02 15:04:05"

// Layout describes the result table columns. Condition adds an
// "Item i Condition" column per item, which only the API variant fills.
type Layout struct {
	Condition bool
}

func (l Layout) fields() []string {
	if l.Condition {
		return []string{"Title", "Price", "Condition", "Shipping", "URL"}
	}
	return []string{"Title", "Price", "Shipping", "URL"}
}

// Width is the number of columns in every row.
func (l Layout) Width() int {
	return 3 + marketplace.MaxItems*len(l.fields()) + 1
}

// Header returns the column names in order.
func (l Layout) Header() []string {
	h := make([]string, 0, l.Width())
	h = append(h, "Keyword", "Total Results", "Search URL")
	for i := 1; i <= marketplace.MaxItems; i++ {
		for _, f := range l.fields() {
			h = append(h, fmt.Sprintf("Item %d %s", i, f))
		}
	}
	return append(h, "Search Date")
}

// Row flattens one search into a row of Width cells. Item slots past the
// returned items are blank.
func (l Layout) Row(keyword string, res marketplace.SearchResult, at time.Time) []any {
	row := make([]any, 0, l.Width())
	row = append(row, keyword, res.Total, res.SearchURL)

	items := marketplace.Capped(res.Items)
	for i := 0; i < marketplace.MaxItems; i++ {
		if i >= len(items) {
			for range l.fields() {
				row = append(row, "")
			}
			continue
		}
		it := items[i]
		row = append(row, it.Title, it.Price)
		if l.Condition {
			row = append(row, it.Condition)
		}
		row = append(row, it.Shipping, it.URL)
	}
	return append(row, at.Format(DateLayout))
}

// Keywords is the keyword list read from a sheet.
type Keywords struct {
	Values []string
	// SkippedRows holds the 1-based sheet rows that were blank.
	SkippedRows []int
}

// ReadKeywords reads column A of sheet, drops the header row and skips
// blank entries. Order and duplicates are preserved.
func ReadKeywords(ctx context.Context, book workbook.Workbook, sheet string) (Keywords, error) {
	col, err := book.ReadColumn(ctx, sheet, 1)
	if err != nil {
		return Keywords{}, fmt.Errorf("table: read keywords: %w", err)
	}

	var kw Keywords
	if len(col) <= 1 {
		return kw, nil
	}
	for i, v := range col[1:] {
		if strings.TrimSpace(v) == "" {
			kw.SkippedRows = append(kw.SkippedRows, i+2)
			continue
		}
		kw.Values = append(kw.Values, v)
	}
	return kw, nil
}

// WriteResults replaces sheet with header followed by rows.
func WriteResults(ctx context.Context, book workbook.Workbook, sheet string, header []string, rows [][]any) error {
	values := make([][]any, 0, len(rows)+1)
	h := make([]any, len(header))
	for i, name := range header {
		h[i] = name
	}
	values = append(values, h)

	for i, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("table: row %d has %d cells, header has %d", i+1, len(row), len(header))
		}
		values = append(values, row)
	}

	if err := book.ReplaceSheet(ctx, sheet, values); err != nil {
		return fmt.Errorf("table: write results: %w", err)
	}
	return nil
}

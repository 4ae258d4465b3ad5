// Package gsheets implements workbook.Workbook on top of the Google Sheets
// and Drive APIs, authenticated with a service account.
package gsheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/FranksOps/scout/internal/workbook"
	"github.com/xuri/excelize/v2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const spreadsheetMIME = "application/vnd.google-apps.spreadsheet"

// Config selects the spreadsheet. ID wins over Name when both are set.
type Config struct {
	ID              string
	Name            string
	CredentialsFile string

	// Options replace the credentials file when set (tests, custom
	// endpoints).
	Options []option.ClientOption
	Logger  *slog.Logger
}

// ensure Book implements workbook.Workbook
var _ workbook.Workbook = (*Book)(nil)

// Book is an opened Google spreadsheet.
type Book struct {
	id     string
	title  string
	sheets *sheets.Service
	logger *slog.Logger
}

// Open authenticates and resolves the spreadsheet.
func Open(ctx context.Context, cfg Config) (*Book, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ID == "" && cfg.Name == "" {
		return nil, fmt.Errorf("gsheets: spreadsheet id or name is required")
	}

	opts := cfg.Options
	if len(opts) == 0 {
		creds, err := LoadCredentials(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		logger.Info("using service account", "email", creds.ClientEmail, "project", creds.ProjectID)
		opts = []option.ClientOption{creds.Option()}
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gsheets: sheets client: %w", err)
	}

	id := cfg.ID
	if id == "" {
		d, err := drive.NewService(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("gsheets: drive client: %w", err)
		}
		id, err = lookupByName(ctx, d, cfg.Name)
		if err != nil {
			return nil, err
		}
	}

	ss, err := svc.Spreadsheets.Get(id).Fields("spreadsheetId", "properties.title").Context(ctx).Do()
	if err != nil {
		return nil, wrap("open "+id, err)
	}

	b := &Book{id: ss.SpreadsheetId, sheets: svc, logger: logger}
	if ss.Properties != nil {
		b.title = ss.Properties.Title
	}
	logger.Info("opened spreadsheet", "id", b.id, "title", b.title)
	return b, nil
}

func lookupByName(ctx context.Context, d *drive.Service, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), spreadsheetMIME)
	list, err := d.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gsheets: lookup %q: %w", name, err)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("gsheets: %q: %w", name, workbook.ErrNotFound)
	}
	return list.Files[0].Id, nil
}

func (b *Book) sheet(ctx context.Context, title string) (*sheets.SheetProperties, error) {
	ss, err := b.sheets.Spreadsheets.Get(b.id).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, wrap("get sheets", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties, nil
		}
	}
	return nil, nil
}

func (b *Book) ReadColumn(ctx context.Context, sheet string, col int) ([]string, error) {
	letter, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return nil, fmt.Errorf("gsheets: %w", err)
	}

	props, err := b.sheet(ctx, sheet)
	if err != nil {
		return nil, err
	}
	if props == nil {
		return nil, fmt.Errorf("gsheets: %q: %w", sheet, workbook.ErrSheetNotFound)
	}

	rng := quote(sheet) + "!" + letter + ":" + letter
	vr, err := b.sheets.Spreadsheets.Values.Get(b.id, rng).MajorDimension("COLUMNS").Context(ctx).Do()
	if err != nil {
		return nil, wrap("read "+rng, err)
	}
	if len(vr.Values) == 0 {
		return nil, nil
	}

	out := make([]string, len(vr.Values[0]))
	for i, v := range vr.Values[0] {
		out[i] = workbook.Cell(v)
	}
	return workbook.TrimTrailing(out), nil
}

func (b *Book) ReplaceSheet(ctx context.Context, sheet string, values [][]any) error {
	rows := int64(max(len(values), 1))
	cols := int64(max(workbook.Width(values), 1))

	props, err := b.sheet(ctx, sheet)
	if err != nil {
		return err
	}

	if props == nil {
		req := &sheets.Request{AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{
				Title:          sheet,
				GridProperties: &sheets.GridProperties{RowCount: rows, ColumnCount: cols},
			},
		}}
		if err := b.batch(ctx, req); err != nil {
			return wrap("add sheet "+sheet, err)
		}
		b.logger.Debug("created sheet", "sheet", sheet, "rows", rows, "cols", cols)
	} else {
		if _, err := b.sheets.Spreadsheets.Values.Clear(b.id, quote(sheet), &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
			return wrap("clear "+sheet, err)
		}
		if g := props.GridProperties; g != nil && (g.RowCount < rows || g.ColumnCount < cols) {
			req := &sheets.Request{UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:         props.SheetId,
					GridProperties:  &sheets.GridProperties{RowCount: max(g.RowCount, rows), ColumnCount: max(g.ColumnCount, cols)},
					ForceSendFields: []string{"SheetId"},
				},
				Fields: "gridProperties(rowCount,columnCount)",
			}}
			if err := b.batch(ctx, req); err != nil {
				return wrap("resize "+sheet, err)
			}
		}
	}

	if len(values) == 0 {
		return nil
	}

	vr := &sheets.ValueRange{Values: values}
	if _, err := b.sheets.Spreadsheets.Values.Update(b.id, quote(sheet)+"!A1", vr).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return wrap("write "+sheet, err)
	}
	return nil
}

func (b *Book) batch(ctx context.Context, reqs ...*sheets.Request) error {
	_, err := b.sheets.Spreadsheets.BatchUpdate(b.id, &sheets.BatchUpdateSpreadsheetRequest{Requests: reqs}).Context(ctx).Do()
	return err
}

func (b *Book) Close() error { return nil }

func wrap(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("gsheets: %s: %w", op, workbook.ErrNotFound)
	}
	return fmt.Errorf("gsheets: %s: %w", op, err)
}

// quote renders a sheet title for A1 notation.
func quote(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

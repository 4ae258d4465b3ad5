package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/FranksOps/scout/internal/config"
	"github.com/FranksOps/scout/internal/workbook"
	"github.com/FranksOps/scout/internal/workbook/csvbook"
	"github.com/FranksOps/scout/internal/workbook/xlsx"
	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a local workbook with an empty keyword sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.cfg.Spreadsheet
			if s.Backend == config.BackendGSheets && !cmd.Flags().Changed("backend") {
				s.Backend = config.BackendXLSX
			}
			if err := scaffold(cmd.Context(), s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s workbook at %s. Add keywords below the header in sheet %q.\n", s.Backend, s.Path, s.KeywordsSheet)
			return nil
		},
	}
	cmd.Flags().String("backend", config.BackendXLSX, "workbook backend: xlsx or csv")
	cmd.Flags().String("path", "", "workbook file (xlsx) or directory (csv)")
	return cmd
}

func scaffold(ctx context.Context, s config.Spreadsheet) error {
	if s.Path == "" {
		return errors.New("--path is required")
	}
	if _, err := os.Stat(s.Path); err == nil && s.Backend == config.BackendXLSX {
		return fmt.Errorf("%s already exists", s.Path)
	}

	var book workbook.Workbook
	switch s.Backend {
	case config.BackendXLSX:
		if err := xlsx.Create(s.Path, s.KeywordsSheet); err != nil {
			return err
		}
		b, err := xlsx.Open(s.Path)
		if err != nil {
			return err
		}
		book = b
	case config.BackendCSV:
		if err := os.MkdirAll(s.Path, 0o755); err != nil {
			return err
		}
		b, err := csvbook.Open(s.Path)
		if err != nil {
			return err
		}
		book = b
	default:
		return fmt.Errorf("init supports the xlsx and csv backends, not %q", s.Backend)
	}
	defer book.Close()

	return book.ReplaceSheet(ctx, s.KeywordsSheet, [][]any{{"Keyword"}})
}

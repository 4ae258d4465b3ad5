package csvbook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/FranksOps/scout/internal/workbook"
)

func TestOpen_MissingDir(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, workbook.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReadColumn(t *testing.T) {
	dir := t.TempDir()
	content := "Keyword,Notes\nfoo,first\n,blank keyword\nbar\n\"baz, qux\",quoted\n,\n"
	if err := os.WriteFile(filepath.Join(dir, "Keywords.csv"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write sheet: %v", err)
	}

	b, err := Open(dir)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer b.Close()

	got, err := b.ReadColumn(context.Background(), "Keywords", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Keyword", "foo", "", "bar", "baz, qux"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	notes, err := b.ReadColumn(context.Background(), "Keywords", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notes) != 5 || notes[3] != "" || notes[4] != "quoted" {
		t.Errorf("unexpected second column: %v", notes)
	}
}

func TestReadColumn_MissingSheet(t *testing.T) {
	b, _ := Open(t.TempDir())
	_, err := b.ReadColumn(context.Background(), "Keywords", 1)
	if !errors.Is(err, workbook.ErrSheetNotFound) {
		t.Fatalf("expected ErrSheetNotFound, got %v", err)
	}
}

func TestReplaceSheet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Results.csv")
	if err := os.WriteFile(path, []byte("old,header\nstale,1\nstale,2\nstale,3\n"), 0o644); err != nil {
		t.Fatalf("failed to seed sheet: %v", err)
	}

	b, _ := Open(dir)
	values := [][]any{
		{"Keyword", "Total Results"},
		{"foo", 1234},
	}
	if err := b.ReplaceSheet(context.Background(), "Results", values); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read sheet: %v", err)
	}
	if string(data) != "Keyword,Total Results\nfoo,1234\n" {
		t.Errorf("unexpected sheet content: %q", string(data))
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected temp file to be cleaned up, found %d entries", len(entries))
	}
}

package workbook

import "testing"

func TestWidth(t *testing.T) {
	if got := Width(nil); got != 0 {
		t.Errorf("expected 0 for no rows, got %d", got)
	}
	values := [][]any{{"a"}, {"a", "b", "c"}, {"a", "b"}}
	if got := Width(values); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}

func TestTrimTrailing(t *testing.T) {
	got := TrimTrailing([]string{"Keyword", "foo", "", "bar", "", " "})
	want := []string{"Keyword", "foo", "", "bar"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestCell(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{1234, "1234"},
		{true, "true"},
	}
	for _, c := range cases {
		if got := Cell(c.in); got != c.want {
			t.Errorf("Cell(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

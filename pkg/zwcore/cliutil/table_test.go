package cliutil

import (
	"bytes"
	"strings"
	"testing"
)

func TestVisualLen_StripsANSI(t *testing.T) {
	s := Green("ok") + " " + Red("dead")
	if got := visualLen(s); got != len("ok dead") {
		t.Errorf("visualLen(%q) = %d, want %d", s, got, len("ok dead"))
	}
}

func TestTable_Flush_EmptyIsNoOp(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable("ID", "Status").WithWriter(&buf)
	tbl.Flush()
	if buf.Len() != 0 {
		t.Errorf("Flush with no rows wrote %q, want nothing", buf.String())
	}
}

func TestTable_Flush_AlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable("ID", "Status").WithWriter(&buf)
	tbl.Row("2", "alive")
	tbl.Row("12", "dead")
	tbl.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4 (header, divider, 2 rows):\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[2], "2 ") {
		t.Errorf("row for id 2 = %q, want right-padded to match column width of %q", lines[2], "12")
	}
}

func TestTable_WithPrefix(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable("ID").WithWriter(&buf).WithPrefix("  ")
	tbl.Row("1")
	tbl.Flush()

	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if !strings.HasPrefix(line, "  ") {
			t.Errorf("line %q missing prefix", line)
		}
	}
}

func TestWrapCell_FitsAsIs(t *testing.T) {
	got := wrapCell("short", 10)
	if len(got) != 1 || got[0] != "short" {
		t.Errorf("wrapCell = %v, want [\"short\"]", got)
	}
}

func TestWrapCell_WrapsOnWordBoundary(t *testing.T) {
	got := wrapCell("one two three", 7)
	want := []string{"one two", "three"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("wrapCell(%q, 7) = %v, want %v", "one two three", got, want)
	}
}

func TestWrapCell_HardBreaksLongWord(t *testing.T) {
	got := wrapCell("supercalifragilisticexpialidocious", 10)
	for _, line := range got {
		if visualLen(line) > 10 {
			t.Errorf("hard-break line %q exceeds width 10", line)
		}
	}
	if len(got) < 2 {
		t.Errorf("word longer than width was not broken across lines: %v", got)
	}
}

func TestCapWidths_NeverBelowHeaderWidth(t *testing.T) {
	widths := []int{5, 40}
	headers := []string{"ID", "Description"}
	got := capWidths(widths, headers, 20, 0)
	if got[0] < visualLen(headers[0]) || got[1] < visualLen(headers[1]) {
		t.Errorf("capWidths shrank a column below its header width: %v", got)
	}
}

func TestCapWidths_NoOpWhenAlreadyFits(t *testing.T) {
	widths := []int{3, 4}
	headers := []string{"ID", "Name"}
	got := capWidths(widths, headers, 100, 0)
	if got[0] != 3 || got[1] != 4 {
		t.Errorf("capWidths = %v, want unchanged %v when already within terminal width", got, widths)
	}
}

package display

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestLayoutWrapsOnWordBoundaries(t *testing.T) {
	got := Layout("Air is dry drink water please", 16, 4)
	want := []string{"Air is dry drink", "water please"}
	assertLines(t, got, want)

	words := strings.Fields("Air is dry drink water please")
	joined := strings.Fields(strings.Join(got, " "))
	if strings.Join(words, " ") != strings.Join(joined, " ") {
		t.Fatalf("words changed: %q", got)
	}
	for _, line := range got {
		if len(line) > 16 {
			t.Fatalf("line %q exceeds 16 characters", line)
		}
	}
}

func TestLayoutTruncatesAtGridSize(t *testing.T) {
	// 70 characters of 4-letter words; only the first 64 survive.
	in := strings.Repeat("abcd ", 14)
	got := Layout(in, 16, 4)
	if len(got) > 4 {
		t.Fatalf("got %d lines, want at most 4", len(got))
	}
	total := 0
	for _, l := range got {
		total += len(strings.ReplaceAll(l, " ", ""))
	}
	// in[:64] holds 13 whole words ("abcd " * 12 = 60, then "abcd").
	if total > 13*4 {
		t.Fatalf("kept %d letters, more than the first 64 characters allow", total)
	}
}

func TestLayoutTruncationPointIsExact(t *testing.T) {
	in := strings.Repeat("x", 63) + "YZ"
	// Wider grid than the input's word so only truncation is observed.
	got := Layout(in, 64, 1)
	assertLines(t, got, []string{strings.Repeat("x", 63) + "Y"})
}

func TestLayoutLongWordOverflows(t *testing.T) {
	got := Layout("hi supercalifragilistic ok", 16, 4)
	assertLines(t, got, []string{"hi", "supercalifragilistic", "ok"})
}

func TestLayoutDropsExtraLines(t *testing.T) {
	got := Layout("one two three four five six seven", 5, 3)
	assertLines(t, got, []string{"one", "two", "three"})
}

func TestLayoutExactFit(t *testing.T) {
	got := Layout("sixteen-chars-xx next", 16, 2)
	assertLines(t, got, []string{"sixteen-chars-xx", "next"})
}

func TestLayoutEdgeCases(t *testing.T) {
	if got := Layout("", 16, 4); len(got) != 0 {
		t.Fatalf("empty input gave %q", got)
	}
	if got := Layout("hello", 0, 4); got != nil {
		t.Fatalf("zero cols gave %q", got)
	}
	if got := Layout("hello", 16, 0); got != nil {
		t.Fatalf("zero rows gave %q", got)
	}
}

func TestLayoutCountsCharactersNotBytes(t *testing.T) {
	in := strings.Repeat("é", 10)
	got := Layout(in, 4, 2)
	assertLines(t, got, []string{strings.Repeat("é", 8)})
	if n := utf8.RuneCountInString(got[0]); n != 8 {
		t.Fatalf("kept %d runes, want 8", n)
	}
}

func assertLines(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d lines %q, want %q", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d = %q, want %q (all: %q)", i, got[i], want[i], got)
		}
	}
}

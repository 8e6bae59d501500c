package display

import "strings"

// Layout wraps text into at most rows lines of at most cols characters.
//
// The input is first cut to cols*rows characters. Words (split on single
// spaces) are packed greedily; a separating space is only counted when the
// line already holds something. A word longer than cols is kept whole on its
// own line and is allowed to run past the column limit, it is never broken
// mid-word. Lines past rows are dropped.
func Layout(text string, cols, rows int) []string {
	if cols <= 0 || rows <= 0 {
		return nil
	}
	text = truncateRunes(text, cols*rows)
	if text == "" {
		return nil
	}

	lines := make([]string, 0, rows)
	var cur strings.Builder
	curLen := 0
	flush := func() {
		lines = append(lines, cur.String())
		cur.Reset()
		curLen = 0
	}
	for _, word := range strings.Split(text, " ") {
		wlen := runeLen(word)
		switch {
		case curLen == 0 && cur.Len() == 0:
			cur.WriteString(word)
			curLen = wlen
		case curLen+1+wlen <= cols:
			cur.WriteByte(' ')
			cur.WriteString(word)
			curLen += 1 + wlen
		default:
			flush()
			cur.WriteString(word)
			curLen = wlen
		}
	}
	if cur.Len() > 0 {
		flush()
	}
	if len(lines) > rows {
		lines = lines[:rows]
	}
	return lines
}

// truncateRunes cuts s after n characters.
func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

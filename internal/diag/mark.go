package diag

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Mark is a range of the original query text, [Start, End) in bytes.
type Mark struct {
	Input string
	Start int
	End   int
}

// NewMark creates a mark clamped to the bounds of input.
func NewMark(input string, start, end int) Mark {
	if start < 0 {
		start = 0
	}
	if end > len(input) {
		end = len(input)
	}
	if end < start {
		end = start
	}
	return Mark{Input: input, Start: start, End: end}
}

// Union returns the smallest mark covering both marks.
// An empty mark is absorbed by the other one.
func Union(a, b Mark) Mark {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	start, end := a.Start, a.End
	if b.Start < start {
		start = b.Start
	}
	if b.End > end {
		end = b.End
	}
	return Mark{Input: a.Input, Start: start, End: end}
}

// IsZero reports whether the mark carries no input.
func (m Mark) IsZero() bool {
	return m.Input == "" && m.Start == 0 && m.End == 0
}

// Text returns the marked fragment.
func (m Mark) Text() string {
	return m.Input[m.Start:m.End]
}

// Position returns the 1-based line and column of the mark start.
// Columns count runes, not bytes.
func (m Mark) Position() (line, col int) {
	line = 1 + strings.Count(m.Input[:m.Start], "\n")
	lineStart := strings.LastIndexByte(m.Input[:m.Start], '\n') + 1
	col = 1 + utf8.RuneCountInString(m.Input[lineStart:m.Start])
	return line, col
}

// Excerpt renders the line containing the mark with a caret underline:
//
//	/school{nme}
//	        ^^^
func (m Mark) Excerpt() string {
	if m.IsZero() {
		return ""
	}
	lineStart := strings.LastIndexByte(m.Input[:m.Start], '\n') + 1
	lineEnd := strings.IndexByte(m.Input[m.Start:], '\n')
	if lineEnd < 0 {
		lineEnd = len(m.Input)
	} else {
		lineEnd += m.Start
	}
	end := m.End
	if end > lineEnd {
		end = lineEnd
	}
	pad := utf8.RuneCountInString(m.Input[lineStart:m.Start])
	width := utf8.RuneCountInString(m.Input[m.Start:end])
	if width == 0 {
		width = 1
	}
	return fmt.Sprintf("%s\n%s%s", m.Input[lineStart:lineEnd], strings.Repeat(" ", pad), strings.Repeat("^", width))
}

func (m Mark) String() string {
	line, col := m.Position()
	return fmt.Sprintf("%d:%d", line, col)
}

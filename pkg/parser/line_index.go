package parser

import (
	"sort"
	"unicode/utf8"
)

// Position is a zero-based line and character. Characters are counted in
// UTF-16 code units so positions can be handed to editors unchanged.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// LineIndex maps byte offsets to positions and back. "\r", "\n" and "\r\n"
// each end one line.
type LineIndex struct {
	text   string
	starts []int
}

// NewLineIndex builds the line-start table for text
func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		case '\n':
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{text: text, starts: starts}
}

// LineCount returns the number of lines, counting a trailing empty line
func (li *LineIndex) LineCount() int {
	return len(li.starts)
}

// LineStart returns the byte offset of the first character of line
func (li *LineIndex) LineStart(line int) int {
	if line < 0 {
		return 0
	}
	if line >= len(li.starts) {
		return len(li.text)
	}
	return li.starts[line]
}

// lineEnd returns the offset of the line terminator of line, or the end of text
func (li *LineIndex) lineEnd(line int) int {
	if line+1 >= len(li.starts) {
		return len(li.text)
	}
	end := li.starts[line+1]
	if end > 0 && li.text[end-1] == '\n' {
		end--
	}
	if end > 0 && li.text[end-1] == '\r' {
		end--
	}
	return end
}

// Line returns the text of line without its terminator
func (li *LineIndex) Line(line int) string {
	if line < 0 || line >= len(li.starts) {
		return ""
	}
	return li.text[li.starts[line]:li.lineEnd(line)]
}

// Position converts a byte offset into a line and UTF-16 character
func (li *LineIndex) Position(offset int) Position {
	offset = max(0, min(offset, len(li.text)))
	line := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	start := li.starts[line]
	character := 0
	for _, r := range li.text[start:offset] {
		character += utf16Len(r)
	}
	return Position{Line: line, Character: character}
}

// Offset converts a line and UTF-16 character into a byte offset. Out of
// range values are clamped to the line or the text.
func (li *LineIndex) Offset(pos Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= len(li.starts) {
		return len(li.text)
	}
	offset := li.starts[pos.Line]
	end := li.lineEnd(pos.Line)
	for units := 0; offset < end && units < pos.Character; {
		r, size := utf8.DecodeRuneInString(li.text[offset:])
		units += utf16Len(r)
		offset += size
	}
	return offset
}

// runeOffset converts a zero-based line and rune column into a byte offset
func (li *LineIndex) runeOffset(line, column int) int {
	if line < 0 {
		return 0
	}
	if line >= len(li.starts) {
		return len(li.text)
	}
	offset := li.starts[line]
	end := li.lineEnd(line)
	for i := 0; i < column && offset < end; i++ {
		_, size := utf8.DecodeRuneInString(li.text[offset:])
		offset += size
	}
	return offset
}

func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

package textbuf

import (
	"go.lsp.dev/protocol"
)

// Mapper converts between byte offsets and LSP positions for one content
// snapshot. LSP positions are 0-based line/character pairs where character
// counts UTF-16 code units.
//
// A Mapper is immutable once built; build a fresh one for each snapshot.
type Mapper struct {
	content string
	lines   []lineSpan
}

// lineSpan records the byte extent of one line, excluding its newline.
type lineSpan struct {
	start int
	size  int
}

// NewMapper indexes content for position conversion.
func NewMapper(content string) *Mapper {
	m := &Mapper{content: content}

	lineStart := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			m.lines = append(m.lines, lineSpan{start: lineStart, size: i - lineStart})
			lineStart = i + 1
		}
	}
	// The final line exists even when empty (content ending in a newline).
	m.lines = append(m.lines, lineSpan{start: lineStart, size: len(content) - lineStart})
	return m
}

// LineCount returns the number of lines, counting a trailing newline as
// starting one more (empty) line.
func (m *Mapper) LineCount() int {
	return len(m.lines)
}

// Position converts a byte offset to an LSP position. An offset equal to the
// content length maps to the position just past the final character.
func (m *Mapper) Position(offset int) (protocol.Position, error) {
	if offset < 0 || offset > len(m.content) {
		return protocol.Position{}, ErrOffsetOutOfRange
	}

	// Binary search would be overkill for the line counts seen in practice;
	// the synchronizer builds one mapper per edit anyway.
	for i, line := range m.lines {
		if offset <= line.start+line.size {
			text := m.content[line.start : line.start+line.size]
			return protocol.Position{
				Line:      uint32(i),
				Character: uint32(utf16Len(text[:offset-line.start])),
			}, nil
		}
	}
	last := len(m.lines) - 1
	line := m.lines[last]
	return protocol.Position{
		Line:      uint32(last),
		Character: uint32(utf16Len(m.content[line.start:])),
	}, nil
}

// Offset converts an LSP position to a byte offset. Character values past the
// end of the line clamp to the line end; lines past the end of the content
// clamp to the content length.
func (m *Mapper) Offset(pos protocol.Position) (int, error) {
	if int(pos.Line) >= len(m.lines) {
		return len(m.content), nil
	}
	line := m.lines[pos.Line]
	text := m.content[line.start : line.start+line.size]
	return line.start + utf16ToByteOffset(text, int(pos.Character)), nil
}

// Range converts a byte span to an LSP range.
func (m *Mapper) Range(start, end int) (protocol.Range, error) {
	s, err := m.Position(start)
	if err != nil {
		return protocol.Range{}, err
	}
	e, err := m.Position(end)
	if err != nil {
		return protocol.Range{}, err
	}
	return protocol.Range{Start: s, End: e}, nil
}

// Span converts an LSP range to start and end byte offsets.
func (m *Mapper) Span(rng protocol.Range) (start, end int, err error) {
	start, err = m.Offset(rng.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err = m.Offset(rng.End)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, ErrOffsetOutOfRange
	}
	return start, end, nil
}

// UTF16Len returns the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	return utf16Len(s)
}

// utf16Len returns the length of s in UTF-16 code units.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2 // surrogate pair
		} else {
			n++
		}
	}
	return n
}

// utf16ToByteOffset converts a UTF-16 code unit offset within s to a byte
// offset, clamping to the end of s.
func utf16ToByteOffset(s string, off int) int {
	if off <= 0 {
		return 0
	}
	n := 0
	for i, r := range s {
		if n >= off {
			return i
		}
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return len(s)
}

package textbuf

import (
	"sort"
	"strings"

	"go.lsp.dev/protocol"
)

// ApplyEdits applies a server-returned edit set as a single atomic mutation.
// A nil or empty edit set is a no-op. Edits are applied in descending start
// order so earlier offsets stay valid; overlapping edits are rejected with
// ErrEditsOverlap before anything is applied.
//
// Listeners observe exactly one change event covering the whole edit set.
func (b *Buffer) ApplyEdits(edits []protocol.TextEdit) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applyEditsLocked(edits)
}

// ApplyEditsAt is ApplyEdits gated on the modification stamp: it fails with
// ErrStaleStamp, applying nothing, unless the buffer's current stamp equals
// stamp. The check and the application happen under one lock section.
func (b *Buffer) ApplyEditsAt(stamp int64, edits []protocol.TextEdit) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stamp != stamp {
		return ErrStaleStamp
	}
	return b.applyEditsLocked(edits)
}

// span is a resolved edit in byte coordinates.
type span struct {
	start, end int
	text       string
}

func (b *Buffer) applyEditsLocked(edits []protocol.TextEdit) error {
	if len(edits) == 0 {
		return nil
	}

	mapper := NewMapper(b.content)
	spans := make([]span, 0, len(edits))
	for _, e := range edits {
		start, end, err := mapper.Span(e.Range)
		if err != nil {
			return err
		}
		spans = append(spans, span{start: start, end: end, text: e.NewText})
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start > spans[j].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].end > spans[i-1].start {
			return ErrEditsOverlap
		}
	}

	// A single edit reports its precise region; multiple edits collapse into
	// one whole-document event so listeners never see intermediate states.
	if len(spans) == 1 {
		s := spans[0]
		return b.replaceLocked(s.start, s.end-s.start, s.text)
	}

	var sb strings.Builder
	prev := len(b.content)
	tail := ""
	for _, s := range spans {
		tail = s.text + b.content[s.end:prev] + tail
		prev = s.start
	}
	sb.WriteString(b.content[:prev])
	sb.WriteString(tail)
	return b.replaceLocked(0, len(b.content), sb.String())
}

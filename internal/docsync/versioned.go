package docsync

import (
	"errors"

	"go.lsp.dev/protocol"

	"github.com/dshills/lspsync/internal/textbuf"
)

// ErrConcurrentModification reports that the buffer changed between the
// moment a result was computed and the moment it was used.
var ErrConcurrentModification = errors.New("document modified concurrently")

// VersionedResult pairs a server result with the buffer modification stamp
// the request was issued against.
type VersionedResult[T any] struct {
	Value T
	Stamp int64
}

// VersionedEdits is a server-returned edit set bound to the buffer state it
// was computed against. Apply refuses to touch a buffer that has moved on.
type VersionedEdits struct {
	Edits []protocol.TextEdit
	Stamp int64

	buf *textbuf.Buffer
}

// NewVersionedEdits binds edits to buf at the given modification stamp.
func NewVersionedEdits(buf *textbuf.Buffer, edits []protocol.TextEdit, stamp int64) VersionedEdits {
	return VersionedEdits{Edits: edits, Stamp: stamp, buf: buf}
}

// Apply applies the edit set as one atomic buffer mutation. A nil or empty
// edit set is a silent no-op. If the buffer's modification stamp no longer
// matches the captured one, Apply fails with ErrConcurrentModification and
// the buffer is left untouched.
func (v VersionedEdits) Apply() error {
	if len(v.Edits) == 0 {
		return nil
	}
	err := v.buf.ApplyEditsAt(v.Stamp, v.Edits)
	if errors.Is(err, textbuf.ErrStaleStamp) {
		return ErrConcurrentModification
	}
	return err
}

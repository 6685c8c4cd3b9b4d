// Package textbuf provides the mutable text buffer the synchronization core
// operates on.
//
// A Buffer is an ordered sequence of bytes (interpreted as UTF-8 text) with a
// monotonically increasing modification stamp and a listener mechanism that
// reports every mutation twice: once before the text changes (so listeners can
// translate byte offsets against the pre-edit content) and once after. The
// stamp is the consistency token used by the rest of the system to detect
// concurrent modification.
//
// The package also provides Mapper, which converts between byte offsets and
// LSP line/character positions (UTF-16 code units), and atomic application of
// server-returned edit sets.
package textbuf

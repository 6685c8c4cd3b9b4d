package textbuf

import (
	"errors"
	"sync"
)

// Errors returned by buffer operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrEditsOverlap     = errors.New("edits overlap")
	ErrStaleStamp       = errors.New("buffer modified since stamp was taken")
)

// Event describes a single buffer mutation: the byte region being replaced,
// the text replacing it, and the modification stamp the mutation produces.
//
// Content is a snapshot of the buffer text: for AboutToChange it is the
// pre-edit text (valid for translating Offset/Length into positions), for
// Changed it is the post-edit text.
type Event struct {
	Offset  int
	Length  int
	Text    string
	Stamp   int64
	Content string
}

// Listener observes buffer mutations. AboutToChange fires before the text is
// mutated, Changed after. Both fire under the buffer's lock in mutation
// order; listeners must not mutate the buffer from either callback.
type Listener interface {
	AboutToChange(ev Event)
	Changed(ev Event)
}

// Buffer is a mutable UTF-8 text buffer with change notification.
// All methods are safe for concurrent use.
type Buffer struct {
	mu        sync.Mutex
	content   string
	stamp     int64
	listeners []Listener
}

// NewBuffer creates a buffer with the given initial content.
// The initial modification stamp is 1.
func NewBuffer(content string) *Buffer {
	return &Buffer{content: content, stamp: 1}
}

// String returns the current buffer content.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.content
}

// Len returns the content length in bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.content)
}

// ModificationStamp returns the current modification stamp. The stamp
// increases by one on every mutation and never repeats.
func (b *Buffer) ModificationStamp() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stamp
}

// AddListener registers a change listener.
func (b *Buffer) AddListener(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// RemoveListener unregisters a previously added listener.
func (b *Buffer) RemoveListener(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, cur := range b.listeners {
		if cur == l {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}

// Replace substitutes the byte range [offset, offset+length) with text.
// A zero-length range inserts, empty text deletes.
func (b *Buffer) Replace(offset, length int, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.replaceLocked(offset, length, text)
}

// SetText replaces the entire buffer content.
func (b *Buffer) SetText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.replaceLocked(0, len(b.content), text)
}

func (b *Buffer) replaceLocked(offset, length int, text string) error {
	if offset < 0 || length < 0 || offset+length > len(b.content) {
		return ErrOffsetOutOfRange
	}

	ev := Event{
		Offset:  offset,
		Length:  length,
		Text:    text,
		Stamp:   b.stamp + 1,
		Content: b.content,
	}
	for _, l := range b.listeners {
		l.AboutToChange(ev)
	}

	b.content = b.content[:offset] + text + b.content[offset+length:]
	b.stamp++

	ev.Content = b.content
	for _, l := range b.listeners {
		l.Changed(ev)
	}
	return nil
}

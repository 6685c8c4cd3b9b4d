package textbuf

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingListener captures every event pair in order.
type recordingListener struct {
	mu     sync.Mutex
	before []Event
	after  []Event
}

func (r *recordingListener) AboutToChange(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.before = append(r.before, ev)
}

func (r *recordingListener) Changed(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.after = append(r.after, ev)
}

func TestBufferReplace(t *testing.T) {
	tests := []struct {
		name    string
		content string
		offset  int
		length  int
		text    string
		want    string
	}{
		{"insert at start", "world", 0, 0, "hello ", "hello world"},
		{"insert at end", "Hello", 5, 0, " World", "Hello World"},
		{"delete", "hello world", 5, 6, "", "hello"},
		{"replace", "hello world", 6, 5, "universe", "hello universe"},
		{"whole document", "old", 0, 3, "new", "new"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuffer(tt.content)
			require.NoError(t, b.Replace(tt.offset, tt.length, tt.text))
			assert.Equal(t, tt.want, b.String())
		})
	}
}

func TestBufferReplaceOutOfRange(t *testing.T) {
	b := NewBuffer("short")
	assert.ErrorIs(t, b.Replace(-1, 0, "x"), ErrOffsetOutOfRange)
	assert.ErrorIs(t, b.Replace(3, 10, "x"), ErrOffsetOutOfRange)
	assert.Equal(t, "short", b.String())
}

func TestBufferStampMonotonic(t *testing.T) {
	b := NewBuffer("")
	last := b.ModificationStamp()
	for i := 0; i < 10; i++ {
		require.NoError(t, b.Replace(0, 0, "x"))
		cur := b.ModificationStamp()
		assert.Greater(t, cur, last)
		last = cur
	}
}

func TestBufferListenerEvents(t *testing.T) {
	b := NewBuffer("Hello")
	rec := &recordingListener{}
	b.AddListener(rec)

	require.NoError(t, b.Replace(5, 0, " World"))

	require.Len(t, rec.before, 1)
	require.Len(t, rec.after, 1)

	// The pre-change event carries the old content, the post-change event the
	// new content; both carry the stamp the mutation produces.
	assert.Equal(t, "Hello", rec.before[0].Content)
	assert.Equal(t, "Hello World", rec.after[0].Content)
	assert.Equal(t, rec.before[0].Stamp, rec.after[0].Stamp)
	assert.Equal(t, b.ModificationStamp(), rec.after[0].Stamp)
	assert.Equal(t, 5, rec.before[0].Offset)
	assert.Equal(t, 0, rec.before[0].Length)
	assert.Equal(t, " World", rec.before[0].Text)
}

func TestBufferRemoveListener(t *testing.T) {
	b := NewBuffer("")
	rec := &recordingListener{}
	b.AddListener(rec)
	b.RemoveListener(rec)

	require.NoError(t, b.Replace(0, 0, "x"))
	assert.Empty(t, rec.after)
}

func TestBufferConcurrentAccess(t *testing.T) {
	b := NewBuffer("initial")
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.SetText("writer content")
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = b.String()
				_ = b.ModificationStamp()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, "writer content", b.String())
}

package docsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.lsp.dev/protocol"

	"github.com/dshills/lspsync/internal/lspconn"
	"github.com/dshills/lspsync/internal/textbuf"
)

// ErrSynchronizerClosed reports an operation on a closed synchronizer.
var ErrSynchronizerClosed = errors.New("synchronizer closed")

const defaultWillSaveTimeout = 2 * time.Second

// Synchronizer keeps one server's replica of one buffer consistent with the
// local content. It is a buffer listener: every mutation becomes a didChange
// on the pair's send queue, and the document version counts up from 1 at
// open, once per change and per save, never repeating.
type Synchronizer struct {
	buf      *textbuf.Buffer
	conn     lspconn.Conn
	uri      protocol.DocumentURI
	language string
	syncKind protocol.TextDocumentSyncKind

	queue   *taskQueue
	tracker *WillSaveTracker
	log     *logrus.Entry

	willSaveTimeout time.Duration

	mu       sync.Mutex
	version  int32
	stamp    int64
	pending  *contentChange
	lastSave int64
	closed   bool
}

// contentChange is the didChange wire payload. The protocol package's change
// event type cannot leave the range out, but a whole-document replacement
// must not carry one, so the shape is declared here.
type contentChange struct {
	Range       *protocol.Range `json:"range,omitempty"`
	RangeLength uint32          `json:"rangeLength,omitempty"`
	Text        string          `json:"text"`
}

type didChangeParams struct {
	TextDocument   protocol.VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []contentChange                          `json:"contentChanges"`
}

// SynchronizerOption configures a Synchronizer at construction time.
type SynchronizerOption func(*Synchronizer)

// WithWillSaveTimeout overrides the willSaveWaitUntil round-trip timeout.
func WithWillSaveTimeout(d time.Duration) SynchronizerOption {
	return func(s *Synchronizer) {
		s.willSaveTimeout = d
	}
}

// WithWillSaveTracker shares a session-scoped timeout tracker.
func WithWillSaveTracker(t *WillSaveTracker) SynchronizerOption {
	return func(s *Synchronizer) {
		s.tracker = t
	}
}

// NewSynchronizer opens the document on conn and starts tracking buf. The
// sync kind is fixed from the connection's negotiated capabilities; didOpen
// is the first entry on the pair's queue.
func NewSynchronizer(buf *textbuf.Buffer, conn lspconn.Conn, uri protocol.DocumentURI, language string, opts ...SynchronizerOption) *Synchronizer {
	s := &Synchronizer{
		buf:             buf,
		conn:            conn,
		uri:             uri,
		language:        language,
		syncKind:        conn.Capabilities().Sync.Kind,
		queue:           newTaskQueue(),
		willSaveTimeout: defaultWillSaveTimeout,
		version:         1,
		stamp:           buf.ModificationStamp(),
		log: logrus.WithFields(logrus.Fields{
			"uri":    uri,
			"server": conn.ID(),
		}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.notifyAsync(protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: protocol.LanguageIdentifier(language),
			Version:    1,
			Text:       buf.String(),
		},
	})
	buf.AddListener(s)
	return s
}

// URI returns the document URI.
func (s *Synchronizer) URI() protocol.DocumentURI { return s.uri }

// Conn returns the server connection this synchronizer feeds.
func (s *Synchronizer) Conn() lspconn.Conn { return s.conn }

// Buffer returns the buffer this synchronizer tracks.
func (s *Synchronizer) Buffer() *textbuf.Buffer { return s.buf }

// Version returns the document version last sent or staged.
func (s *Synchronizer) Version() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Stamp returns the buffer modification stamp as of the last completed
// synchronization step. Results computed against this stamp may be applied
// through ExecuteOnCurrentVersion or VersionedEdits.
func (s *Synchronizer) Stamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stamp
}

// AboutToChange implements textbuf.Listener. For incremental sync it stages
// the replaced region in UTF-16 coordinates computed against the pre-edit
// content; if the region cannot be translated the change degrades to a
// full-text update.
func (s *Synchronizer) AboutToChange(ev textbuf.Event) {
	if s.syncKind != protocol.TextDocumentSyncKindIncremental {
		return
	}

	mapper := textbuf.NewMapper(ev.Content)
	rng, err := mapper.Range(ev.Offset, ev.Offset+ev.Length)
	if err != nil {
		s.log.WithError(err).Warn("cannot translate change region, sending full text")
		return
	}
	replaced := ev.Content[ev.Offset : ev.Offset+ev.Length]

	s.mu.Lock()
	s.pending = &contentChange{
		Range:       &rng,
		RangeLength: uint32(textbuf.UTF16Len(replaced)),
		Text:        ev.Text,
	}
	s.mu.Unlock()
}

// Changed implements textbuf.Listener. It consumes the staged change (or
// captures the full post-edit text), bumps the version, and enqueues the
// didChange send. Sync kind None tracks the stamp but sends nothing.
func (s *Synchronizer) Changed(ev textbuf.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.syncKind == protocol.TextDocumentSyncKindNone {
		s.stamp = ev.Stamp
		return
	}

	change := s.pending
	s.pending = nil
	if change == nil || s.syncKind != protocol.TextDocumentSyncKindIncremental {
		change = &contentChange{Text: ev.Content}
	}

	s.version++
	s.stamp = ev.Stamp
	s.notifyAsync(protocol.MethodTextDocumentDidChange, &didChangeParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: s.uri},
			Version:                s.version,
		},
		ContentChanges: []contentChange{*change},
	})
}

// Saved records a completed save. Timestamps not newer than the last
// recorded save are ignored. didSave carries the full text only when the
// server asked for it, and is skipped when the server declared no save
// interest.
func (s *Synchronizer) Saved(timestamp int64) {
	caps := s.conn.Capabilities().Sync

	// Read the buffer before taking s.mu: listeners hold the buffer lock
	// while they wait on s.mu, so the reverse order would deadlock.
	var text string
	if caps.Save && caps.SaveIncludeText {
		text = s.buf.String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || timestamp <= s.lastSave {
		return
	}
	s.lastSave = timestamp
	if !caps.Save {
		return
	}

	s.version++
	params := &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: s.uri},
	}
	if caps.SaveIncludeText {
		params.Text = text
	}
	s.notifyAsync(protocol.MethodTextDocumentDidSave, params)
}

// AboutToSave runs the willSaveWaitUntil round-trip and applies any returned
// edits before the save proceeds. The request is bounded by the configured
// timeout; a document that has timed out three times stops asking for the
// rest of the session.
func (s *Synchronizer) AboutToSave(ctx context.Context) {
	if !s.conn.Capabilities().Sync.WillSaveWaitUntil {
		return
	}
	if s.tracker != nil && !s.tracker.Allowed(s.uri) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.willSaveTimeout)
	defer cancel()

	var params protocol.WillSaveTextDocumentParams
	params.TextDocument = protocol.TextDocumentIdentifier{URI: s.uri}
	params.Reason = protocol.TextDocumentSaveReasonManual

	var edits []protocol.TextEdit
	err := s.conn.Call(ctx, protocol.MethodTextDocumentWillSaveWaitUntil, &params, &edits)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			if s.tracker != nil {
				s.tracker.RecordTimeout(s.uri, s.conn.ID())
			}
		case lspconn.IsRequestCancelled(err):
			// Cancellation is cooperative, not a failure.
		default:
			s.log.WithError(err).Warn("willSaveWaitUntil failed")
		}
		return
	}

	if err := s.buf.ApplyEdits(edits); err != nil {
		s.log.WithError(err).Error("applying willSaveWaitUntil edits failed")
	}
}

// Closed tears the pair down: stops change tracking, drops the document's
// will-save state, and notifies the server only if it is still reachable.
// Closed is idempotent.
func (s *Synchronizer) Closed() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.tracker != nil {
		s.tracker.Forget(s.uri)
	}
	if s.conn.IsActive() {
		s.notifyAsync(protocol.MethodTextDocumentDidClose, &protocol.DidCloseTextDocumentParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: s.uri},
		})
	}
	s.mu.Unlock()

	s.buf.RemoveListener(s)
	s.queue.Close()
}

// Flush blocks until every send triggered before the call has completed.
func (s *Synchronizer) Flush() {
	s.queue.Flush()
}

// notifyAsync puts a notification on the pair's queue. Failures are logged,
// never retried.
func (s *Synchronizer) notifyAsync(method string, params any) {
	s.queue.Enqueue(func() {
		if err := s.conn.Notify(context.Background(), method, params); err != nil {
			s.log.WithError(err).WithField("method", method).Error("notification failed")
		}
	})
}

// ExecuteOnCurrentVersion appends op to the pair's send queue, but only if
// the buffer has not changed since expectedStamp was taken. The comparison
// and the append happen in one critical section, so no change can slip in
// between them; a mismatch fails the returned future with
// ErrConcurrentModification without running op.
func ExecuteOnCurrentVersion[T any](s *Synchronizer, expectedStamp int64, op func(ctx context.Context, conn lspconn.Conn) (T, error)) *Future[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return FailedFuture[T](ErrSynchronizerClosed)
	}
	if expectedStamp != s.stamp {
		return FailedFuture[T](ErrConcurrentModification)
	}

	f := NewFuture[T]()
	ok := s.queue.Enqueue(func() {
		val, err := op(context.Background(), s.conn)
		f.Resolve(val, err)
	})
	if !ok {
		return FailedFuture[T](ErrSynchronizerClosed)
	}
	return f
}

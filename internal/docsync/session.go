package docsync

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.lsp.dev/protocol"

	"github.com/dshills/lspsync/internal/lspconn"
	"github.com/dshills/lspsync/internal/textbuf"
)

// Session ties open documents to server connections. Each open document gets
// one synchronizer per matching connection; save and close events fan out to
// all of them.
type Session struct {
	registry *lspconn.Registry
	tracker  *WillSaveTracker
	log      *logrus.Entry

	languages       map[string]string
	willSaveTimeout time.Duration

	mu   sync.Mutex
	docs map[protocol.DocumentURI]*document
}

type document struct {
	buf   *textbuf.Buffer
	syncs []*Synchronizer
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLanguageMapping overrides language ID derivation per file extension
// (extension without the leading dot, mapped to a language ID).
func WithLanguageMapping(m map[string]string) SessionOption {
	return func(s *Session) {
		for ext, lang := range m {
			s.languages[ext] = lang
		}
	}
}

// WithSessionWillSaveTimeout overrides the willSaveWaitUntil timeout for all
// synchronizers the session creates.
func WithSessionWillSaveTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.willSaveTimeout = d
	}
}

// NewSession creates a session over the given connection registry.
func NewSession(registry *lspconn.Registry, opts ...SessionOption) *Session {
	s := &Session{
		registry:        registry,
		tracker:         NewWillSaveTracker(),
		log:             logrus.WithField("component", "session"),
		languages:       make(map[string]string),
		willSaveTimeout: defaultWillSaveTimeout,
		docs:            make(map[protocol.DocumentURI]*document),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the connection registry backing the session.
func (s *Session) Registry() *lspconn.Registry { return s.registry }

// Open creates a buffer for the document and opens it on every active
// connection registered for its language. Opening an already-open document
// returns the existing buffer.
func (s *Session) Open(uri protocol.DocumentURI, text string) *textbuf.Buffer {
	lang := s.LanguageID(uri)

	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[uri]; ok {
		return doc.buf
	}

	doc := &document{buf: textbuf.NewBuffer(text)}
	for _, conn := range s.registry.ForLanguage(lang) {
		doc.syncs = append(doc.syncs, NewSynchronizer(doc.buf, conn, uri, lang,
			WithWillSaveTracker(s.tracker),
			WithWillSaveTimeout(s.willSaveTimeout)))
	}
	s.docs[uri] = doc
	s.log.WithFields(logrus.Fields{
		"uri":      uri,
		"language": lang,
		"servers":  len(doc.syncs),
	}).Debug("document opened")
	return doc.buf
}

// Buffer returns the open document's buffer, if any.
func (s *Session) Buffer(uri protocol.DocumentURI) (*textbuf.Buffer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return nil, false
	}
	return doc.buf, true
}

// SynchronizersFor returns the document's synchronizers. The document scope
// of the executor resolves its connections through this.
func (s *Session) SynchronizersFor(uri protocol.DocumentURI) []*Synchronizer {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return nil
	}
	return append([]*Synchronizer(nil), doc.syncs...)
}

// Saved reports a completed save to every synchronizer of the document.
func (s *Session) Saved(uri protocol.DocumentURI, timestamp int64) {
	for _, syn := range s.SynchronizersFor(uri) {
		syn.Saved(timestamp)
	}
}

// AboutToSave runs willSaveWaitUntil against every synchronizer of the
// document, applying returned edits, before a save proceeds.
func (s *Session) AboutToSave(ctx context.Context, uri protocol.DocumentURI) {
	for _, syn := range s.SynchronizersFor(uri) {
		syn.AboutToSave(ctx)
	}
}

// Close closes the document on every server and forgets it. Closing an
// unknown document is a no-op.
func (s *Session) Close(uri protocol.DocumentURI) {
	s.mu.Lock()
	doc, ok := s.docs[uri]
	delete(s.docs, uri)
	s.mu.Unlock()
	if !ok {
		return
	}
	for _, syn := range doc.syncs {
		syn.Closed()
	}
}

// CloseAll closes every open document.
func (s *Session) CloseAll() {
	s.mu.Lock()
	uris := make([]protocol.DocumentURI, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	s.mu.Unlock()
	for _, uri := range uris {
		s.Close(uri)
	}
}

// LanguageID derives the document's language ID: the configured mapping for
// its file extension, else the extension itself, else the last path segment.
func (s *Session) LanguageID(uri protocol.DocumentURI) string {
	name := path.Base(string(uri))
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if lang, ok := s.languages[ext]; ok {
		return lang
	}
	if ext != "" {
		return ext
	}
	return name
}

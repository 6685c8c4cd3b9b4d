package docsync

import (
	"sync"

	"github.com/sirupsen/logrus"
	"go.lsp.dev/protocol"
)

// willSaveTimeoutThreshold is the number of willSaveWaitUntil timeouts after
// which a document stops issuing the request for the rest of the session.
const willSaveTimeoutThreshold = 3

// WillSaveTracker counts willSaveWaitUntil timeouts per document URI across
// one session. Counts are cumulative; they reset only when the document is
// closed.
type WillSaveTracker struct {
	mu     sync.Mutex
	counts map[protocol.DocumentURI]int
	log    *logrus.Entry
}

// NewWillSaveTracker returns an empty tracker.
func NewWillSaveTracker() *WillSaveTracker {
	return &WillSaveTracker{
		counts: make(map[protocol.DocumentURI]int),
		log:    logrus.WithField("component", "willsave"),
	}
}

// Allowed reports whether the document may still issue willSaveWaitUntil.
func (t *WillSaveTracker) Allowed(uri protocol.DocumentURI) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[uri] < willSaveTimeoutThreshold
}

// RecordTimeout notes one more timeout for the document, warning with
// increasing urgency until the suppression threshold is reached.
func (t *WillSaveTracker) RecordTimeout(uri protocol.DocumentURI, server string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.counts[uri]++
	entry := t.log.WithFields(logrus.Fields{
		"uri":      uri,
		"server":   server,
		"timeouts": t.counts[uri],
	})
	switch {
	case t.counts[uri] >= willSaveTimeoutThreshold:
		entry.Warn("willSaveWaitUntil disabled for this document for the rest of the session")
	case t.counts[uri] == willSaveTimeoutThreshold-1:
		entry.Warn("willSaveWaitUntil timed out again, one more timeout disables it for this document")
	default:
		entry.Warn("willSaveWaitUntil timed out")
	}
}

// Forget clears the document's count, typically on close.
func (t *WillSaveTracker) Forget(uri protocol.DocumentURI) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, uri)
}

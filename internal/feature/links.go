package feature

import (
	"context"
	"sync"
	"time"

	"go.lsp.dev/protocol"

	"github.com/dshills/lspsync/internal/docsync"
	"github.com/dshills/lspsync/internal/executor"
	"github.com/dshills/lspsync/internal/lspconn"
)

const defaultLinkTimeout = 10 * time.Second

// LinkReconciler computes document links across all capable servers.
// Starting a reconcile cancels any previous one still outstanding, so stale
// link sets never overwrite fresher ones.
type LinkReconciler struct {
	timeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewLinkReconciler returns a reconciler with the default 10s timeout.
func NewLinkReconciler() *LinkReconciler {
	return &LinkReconciler{timeout: defaultLinkTimeout}
}

// WithTimeout overrides the per-reconcile timeout.
func (r *LinkReconciler) WithTimeout(d time.Duration) *LinkReconciler {
	r.timeout = d
	return r
}

// Reconcile gathers the document's links from every capable server,
// concatenated in no particular order. Servers that fail or time out
// contribute nothing.
func (r *LinkReconciler) Reconcile(ctx context.Context, sess *docsync.Session, uri protocol.DocumentURI) []protocol.DocumentLink {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	ex := executor.ForDocument(sess, uri).WithFilter(lspconn.SupportsDocumentLink)
	groups := executor.CollectAll(ctx, ex, func(ctx context.Context, conn lspconn.Conn) ([]protocol.DocumentLink, error) {
		var params protocol.DocumentLinkParams
		params.TextDocument = protocol.TextDocumentIdentifier{URI: uri}

		var links []protocol.DocumentLink
		if err := conn.Call(ctx, protocol.MethodTextDocumentDocumentLink, &params, &links); err != nil {
			return nil, err
		}
		return links, nil
	})

	var links []protocol.DocumentLink
	for _, g := range groups {
		links = append(links, g...)
	}
	return links
}

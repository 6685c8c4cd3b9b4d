package feature

import (
	"context"
	"errors"

	"go.lsp.dev/protocol"

	"github.com/dshills/lspsync/internal/docsync"
	"github.com/dshills/lspsync/internal/executor"
	"github.com/dshills/lspsync/internal/lspconn"
)

// ErrNotOpen reports a request against a document the session does not have
// open.
var ErrNotOpen = errors.New("document not open")

// Format computes formatting edits for the document. The result is bound to
// the buffer state it was computed against; applying it after further edits
// fails with docsync.ErrConcurrentModification instead of corrupting the
// buffer.
func Format(ctx context.Context, sess *docsync.Session, uri protocol.DocumentURI, opts protocol.FormattingOptions) (docsync.VersionedEdits, error) {
	buf, ok := sess.Buffer(uri)
	if !ok {
		return docsync.VersionedEdits{}, ErrNotOpen
	}
	stamp := buf.ModificationStamp()

	ex := executor.ForDocument(sess, uri).WithFilter(lspconn.SupportsFormatting)
	edits, err := executor.ComputeFirst(ctx, ex, func(ctx context.Context, conn lspconn.Conn) ([]protocol.TextEdit, error) {
		var params protocol.DocumentFormattingParams
		params.TextDocument = protocol.TextDocumentIdentifier{URI: uri}
		params.Options = opts

		var edits []protocol.TextEdit
		if err := conn.Call(ctx, protocol.MethodTextDocumentFormatting, &params, &edits); err != nil {
			return nil, err
		}
		return edits, nil
	})
	if err != nil {
		return docsync.VersionedEdits{}, err
	}
	return docsync.NewVersionedEdits(buf, edits, stamp), nil
}

// FormatAndApply formats the document and applies the edits, provided the
// buffer has not changed while the request was in flight.
func FormatAndApply(ctx context.Context, sess *docsync.Session, uri protocol.DocumentURI, opts protocol.FormattingOptions) error {
	edits, err := Format(ctx, sess, uri, opts)
	if err != nil {
		return err
	}
	return edits.Apply()
}

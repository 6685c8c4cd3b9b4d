package feature

import (
	"context"
	"time"

	"go.lsp.dev/protocol"

	"github.com/dshills/lspsync/internal/docsync"
	"github.com/dshills/lspsync/internal/executor"
	"github.com/dshills/lspsync/internal/lspconn"
)

const defaultTokenTimeout = 10 * time.Second

// SemanticTokens fetches the full semantic token set for the document,
// stamped with the buffer state it describes. The request times out after
// 10 seconds with no result rather than an error.
func SemanticTokens(ctx context.Context, sess *docsync.Session, uri protocol.DocumentURI) (docsync.VersionedResult[*protocol.SemanticTokens], error) {
	buf, ok := sess.Buffer(uri)
	if !ok {
		return docsync.VersionedResult[*protocol.SemanticTokens]{}, ErrNotOpen
	}
	stamp := buf.ModificationStamp()

	ctx, cancel := context.WithTimeout(ctx, defaultTokenTimeout)
	defer cancel()

	ex := executor.ForDocument(sess, uri).WithFilter(lspconn.SupportsSemanticTokens)
	tokens, err := executor.ComputeFirstMatching(ctx, ex,
		func(ctx context.Context, conn lspconn.Conn) (*protocol.SemanticTokens, error) {
			var params protocol.SemanticTokensParams
			params.TextDocument = protocol.TextDocumentIdentifier{URI: uri}

			var tokens protocol.SemanticTokens
			if err := conn.Call(ctx, protocol.MethodSemanticTokensFull, &params, &tokens); err != nil {
				return nil, err
			}
			return &tokens, nil
		},
		func(tokens *protocol.SemanticTokens) bool {
			return tokens != nil && len(tokens.Data) > 0
		})
	if err != nil && ctx.Err() != nil {
		// A timed-out reconcile is "no contribution", not a failure.
		return docsync.VersionedResult[*protocol.SemanticTokens]{Stamp: stamp}, nil
	}
	if err != nil {
		return docsync.VersionedResult[*protocol.SemanticTokens]{}, err
	}
	return docsync.VersionedResult[*protocol.SemanticTokens]{Value: tokens, Stamp: stamp}, nil
}

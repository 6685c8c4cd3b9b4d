package feature

import (
	"context"

	"go.lsp.dev/protocol"

	"github.com/dshills/lspsync/internal/docsync"
	"github.com/dshills/lspsync/internal/executor"
	"github.com/dshills/lspsync/internal/lspconn"
)

// Rename computes the workspace edit renaming the symbol at pos to newName.
// The first server producing an edit that actually changes something wins; a
// structurally empty WorkspaceEdit does not count as an answer.
func Rename(ctx context.Context, sess *docsync.Session, uri protocol.DocumentURI, pos protocol.Position, newName string) (*protocol.WorkspaceEdit, error) {
	ex := executor.ForDocument(sess, uri).WithFilter(lspconn.SupportsRename)
	return executor.ComputeFirstMatching(ctx, ex,
		func(ctx context.Context, conn lspconn.Conn) (*protocol.WorkspaceEdit, error) {
			var params protocol.RenameParams
			params.TextDocument = protocol.TextDocumentIdentifier{URI: uri}
			params.Position = pos
			params.NewName = newName

			var edit protocol.WorkspaceEdit
			if err := conn.Call(ctx, protocol.MethodTextDocumentRename, &params, &edit); err != nil {
				return nil, err
			}
			return &edit, nil
		},
		func(edit *protocol.WorkspaceEdit) bool {
			return edit != nil && (len(edit.Changes) > 0 || len(edit.DocumentChanges) > 0)
		})
}

package feature

import (
	"context"
	"time"

	"go.lsp.dev/protocol"

	"github.com/dshills/lspsync/internal/executor"
	"github.com/dshills/lspsync/internal/lspconn"
)

const defaultFileOpTimeout = 10 * time.Second

// WillRenameFiles asks every running server in the project for the edits it
// wants applied before the given files are renamed. Servers that fail or do
// not answer within 10 seconds contribute nothing.
func WillRenameFiles(ctx context.Context, reg *lspconn.Registry, project executor.Project, renames []protocol.FileRename) []*protocol.WorkspaceEdit {
	ctx, cancel := context.WithTimeout(ctx, defaultFileOpTimeout)
	defer cancel()

	ex := executor.ForProject(reg, project).ExcludeInactive()
	return executor.CollectAll(ctx, ex, func(ctx context.Context, conn lspconn.Conn) (*protocol.WorkspaceEdit, error) {
		var params protocol.RenameFilesParams
		params.Files = renames

		var edit protocol.WorkspaceEdit
		if err := conn.Call(ctx, protocol.MethodWillRenameFiles, &params, &edit); err != nil {
			return nil, err
		}
		if len(edit.Changes) == 0 && len(edit.DocumentChanges) == 0 {
			return nil, nil
		}
		return &edit, nil
	})
}

// WillCreateFiles is WillRenameFiles for file creation.
func WillCreateFiles(ctx context.Context, reg *lspconn.Registry, project executor.Project, creates []protocol.FileCreate) []*protocol.WorkspaceEdit {
	ctx, cancel := context.WithTimeout(ctx, defaultFileOpTimeout)
	defer cancel()

	ex := executor.ForProject(reg, project).ExcludeInactive()
	return executor.CollectAll(ctx, ex, func(ctx context.Context, conn lspconn.Conn) (*protocol.WorkspaceEdit, error) {
		var params protocol.CreateFilesParams
		params.Files = creates

		var edit protocol.WorkspaceEdit
		if err := conn.Call(ctx, protocol.MethodWillCreateFiles, &params, &edit); err != nil {
			return nil, err
		}
		if len(edit.Changes) == 0 && len(edit.DocumentChanges) == 0 {
			return nil, nil
		}
		return &edit, nil
	})
}

// WillDeleteFiles is WillRenameFiles for file deletion.
func WillDeleteFiles(ctx context.Context, reg *lspconn.Registry, project executor.Project, deletes []protocol.FileDelete) []*protocol.WorkspaceEdit {
	ctx, cancel := context.WithTimeout(ctx, defaultFileOpTimeout)
	defer cancel()

	ex := executor.ForProject(reg, project).ExcludeInactive()
	return executor.CollectAll(ctx, ex, func(ctx context.Context, conn lspconn.Conn) (*protocol.WorkspaceEdit, error) {
		var params protocol.DeleteFilesParams
		params.Files = deletes

		var edit protocol.WorkspaceEdit
		if err := conn.Call(ctx, protocol.MethodWillDeleteFiles, &params, &edit); err != nil {
			return nil, err
		}
		if len(edit.Changes) == 0 && len(edit.DocumentChanges) == 0 {
			return nil, nil
		}
		return &edit, nil
	})
}

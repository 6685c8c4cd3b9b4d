package lspconn

import (
	"context"
	"errors"

	"go.lsp.dev/jsonrpc2"
)

// Errors returned by connection operations.
var (
	// ErrConnInactive indicates the server connection has stopped.
	ErrConnInactive = errors.New("server connection inactive")

	// ErrNoServer indicates no connection matched the request.
	ErrNoServer = errors.New("no matching server connection")
)

// requestCancelled is the LSP error code a server returns for a request the
// client cancelled. Such responses are an expected outcome, not a failure.
const requestCancelled jsonrpc2.Code = -32800

// Conn is one language server connection as seen by the synchronization
// core: an asynchronous request/response service plus the capabilities
// negotiated at initialize time. Process lifecycle is owned elsewhere.
type Conn interface {
	// ID uniquely identifies the connection within a session.
	ID() string

	// Notify sends a protocol notification.
	Notify(ctx context.Context, method string, params any) error

	// Call sends a protocol request and decodes the response into result.
	Call(ctx context.Context, method string, params, result any) error

	// Capabilities returns the capabilities negotiated at connection time.
	Capabilities() Capabilities

	// IsActive reports whether the connection can still carry messages.
	IsActive() bool
}

// IsRequestCancelled reports whether err is a server response to a request
// the client cancelled.
func IsRequestCancelled(err error) bool {
	var rpcErr *jsonrpc2.Error
	return errors.As(err, &rpcErr) && rpcErr.Code == requestCancelled
}

// Package lspconn manages connections to language server processes.
//
// A Conn is the narrow request/notification surface the synchronization core
// needs from a server; ServerConnection is the production implementation
// speaking Content-Length-framed JSON-RPC over a spawned process's stdio.
// The Registry is the session-scoped set of connections the executor resolves
// server sets from.
package lspconn

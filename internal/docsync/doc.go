// Package docsync keeps language-server replicas of local text buffers
// consistent under concurrent edits and asynchronous round-trips.
//
// A Synchronizer binds one buffer to one server connection: it translates
// buffer mutations into didOpen/didChange/didSave/didClose notifications,
// delivered strictly in trigger order through a per-pair send queue, and
// stamps every server result with the buffer state it was computed against
// so stale results are rejected instead of applied.
package docsync

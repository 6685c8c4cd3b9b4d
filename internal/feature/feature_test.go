package feature

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/dshills/lspsync/internal/docsync"
	"github.com/dshills/lspsync/internal/lspconn"
)

const testURI = protocol.DocumentURI("file:///project/main.go")

// fakeConn routes Call through an arbitrary hook.
type fakeConn struct {
	id     string
	caps   lspconn.Capabilities
	onCall func(ctx context.Context, method string, params, result any) error

	mu    sync.Mutex
	calls []string
}

func (f *fakeConn) ID() string                         { return f.id }
func (f *fakeConn) Capabilities() lspconn.Capabilities { return f.caps }
func (f *fakeConn) IsActive() bool                     { return true }

func (f *fakeConn) Notify(context.Context, string, any) error { return nil }

func (f *fakeConn) Call(ctx context.Context, method string, params, result any) error {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.mu.Unlock()
	if f.onCall != nil {
		return f.onCall(ctx, method, params, result)
	}
	return nil
}

func (f *fakeConn) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// capsFromJSON builds negotiated capabilities from a wire-shaped payload.
func capsFromJSON(t *testing.T, payload string) lspconn.Capabilities {
	t.Helper()
	var caps protocol.ServerCapabilities
	require.NoError(t, json.Unmarshal([]byte(payload), &caps))
	return lspconn.ParseCapabilities(caps)
}

// reply marshals val into the Call result pointer, the way a real jsonrpc2
// round-trip would.
func reply(result, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}

// openSession builds a session over the given connections, all registered
// for Go, with testURI open.
func openSession(conns ...lspconn.Conn) *docsync.Session {
	reg := lspconn.NewRegistry()
	for _, c := range conns {
		reg.Add(c, "go")
	}
	sess := docsync.NewSession(reg)
	sess.Open(testURI, "package main\nfunc  main(){}\n")
	return sess
}

package executor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/dshills/lspsync/internal/docsync"
	"github.com/dshills/lspsync/internal/lspconn"
)

const testURI = protocol.DocumentURI("file:///project/main.go")

// fakeConn serves canned results keyed by method.
type fakeConn struct {
	id     string
	caps   lspconn.Capabilities
	active bool
	delay  time.Duration
	fail   error
	result any

	mu    sync.Mutex
	calls int
}

func (f *fakeConn) ID() string                         { return f.id }
func (f *fakeConn) Capabilities() lspconn.Capabilities { return f.caps }
func (f *fakeConn) IsActive() bool                     { return f.active }

func (f *fakeConn) Notify(context.Context, string, any) error { return nil }

func (f *fakeConn) Call(ctx context.Context, method string, params, result any) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.fail != nil {
		return f.fail
	}
	if f.result != nil && result != nil {
		raw, err := json.Marshal(f.result)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, result)
	}
	return nil
}

func formattingCaps(t *testing.T) lspconn.Capabilities {
	t.Helper()
	var caps protocol.ServerCapabilities
	require.NoError(t, json.Unmarshal([]byte(`{"documentFormattingProvider":true}`), &caps))
	return lspconn.ParseCapabilities(caps)
}

func linkEdits(ctx context.Context, conn lspconn.Conn) ([]protocol.TextEdit, error) {
	var edits []protocol.TextEdit
	err := conn.Call(ctx, protocol.MethodTextDocumentFormatting, nil, &edits)
	return edits, err
}

func someEdits() []protocol.TextEdit {
	return []protocol.TextEdit{{NewText: "x"}}
}

func TestCollectAllDropsFailuresAndEmpties(t *testing.T) {
	reg := lspconn.NewRegistry()
	reg.Add(&fakeConn{id: "ok", active: true, result: someEdits()}, "go")
	reg.Add(&fakeConn{id: "empty", active: true, result: []protocol.TextEdit{}}, "go")
	reg.Add(&fakeConn{id: "bad", active: true, fail: errors.New("boom")}, "go")

	ex := ForProject(reg, Project{Root: "/project", Languages: []string{"go"}})
	got := CollectAll(context.Background(), ex, linkEdits)

	require.Len(t, got, 1, "failures and empty answers are dropped, not fatal")
	assert.Equal(t, "x", got[0][0].NewText)
}

func TestComputeFirstPrefersSlowNonEmpty(t *testing.T) {
	reg := lspconn.NewRegistry()
	// The empty answer arrives first; it must not win.
	reg.Add(&fakeConn{id: "fast-empty", active: true, result: []protocol.TextEdit{}}, "go")
	reg.Add(&fakeConn{id: "slow-real", active: true, delay: 50 * time.Millisecond, result: someEdits()}, "go")

	ex := ForProject(reg, Project{Root: "/project", Languages: []string{"go"}})
	got, err := ComputeFirst(context.Background(), ex, linkEdits)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].NewText)
}

func TestComputeFirstAllEmpty(t *testing.T) {
	reg := lspconn.NewRegistry()
	reg.Add(&fakeConn{id: "a", active: true, result: []protocol.TextEdit{}}, "go")
	reg.Add(&fakeConn{id: "b", active: true, fail: errors.New("boom")}, "go")

	ex := ForProject(reg, Project{Root: "/project", Languages: []string{"go"}})
	got, err := ComputeFirst(context.Background(), ex, linkEdits)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestComputeFirstNoConnections(t *testing.T) {
	ex := ForProject(lspconn.NewRegistry(), Project{Root: "/project", Languages: []string{"go"}})
	got, err := ComputeFirst(context.Background(), ex, linkEdits)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestComputeFirstMatchingOverridesEmptiness(t *testing.T) {
	reg := lspconn.NewRegistry()
	reg.Add(&fakeConn{id: "a", active: true, result: someEdits()}, "go")

	ex := ForProject(reg, Project{Root: "/project", Languages: []string{"go"}})
	// The predicate rejects everything, so the aggregate resolves empty.
	got, err := ComputeFirstMatching(context.Background(), ex, linkEdits,
		func([]protocol.TextEdit) bool { return false })
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCapabilityFilterNarrowsScope(t *testing.T) {
	formatter := &fakeConn{id: "fmt", active: true, caps: formattingCaps(t)}
	plain := &fakeConn{id: "plain", active: true}
	reg := lspconn.NewRegistry()
	reg.Add(formatter, "go")
	reg.Add(plain, "go")

	ex := ForProject(reg, Project{Languages: []string{"go"}}).WithFilter(lspconn.SupportsFormatting)
	conns := ex.Conns()
	require.Len(t, conns, 1)
	assert.Equal(t, "fmt", conns[0].ID())
}

func TestExcludeInactive(t *testing.T) {
	reg := lspconn.NewRegistry()
	reg.Add(&fakeConn{id: "up", active: true}, "go")
	reg.Add(&fakeConn{id: "down", active: false}, "go")

	ex := ForProject(reg, Project{Languages: []string{"go"}})
	assert.Len(t, ex.Conns(), 2, "project scope keeps stopped connections by default")

	ex = ForProject(reg, Project{Languages: []string{"go"}}).ExcludeInactive()
	conns := ex.Conns()
	require.Len(t, conns, 1)
	assert.Equal(t, "up", conns[0].ID())
}

func TestDocumentScopeDispatch(t *testing.T) {
	conn := &fakeConn{id: "srv", active: true, result: someEdits()}
	conn.caps = lspconn.Capabilities{Sync: lspconn.SyncSupport{Kind: protocol.TextDocumentSyncKindFull}}
	reg := lspconn.NewRegistry()
	reg.Add(conn, "go")

	sess := docsync.NewSession(reg)
	buf := sess.Open(testURI, "content")

	ex := ForDocument(sess, testURI)
	require.Len(t, ex.Synchronizers(), 1)

	futures := ComputeAll(context.Background(), ex, linkEdits)
	require.Len(t, futures, 1)
	got, err := futures[0].Await(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// Dispatch follows the buffer: after an edit the next dispatch still
	// rides the pair's queue behind the didChange for that edit.
	require.NoError(t, buf.Replace(0, 0, "x"))
	futures = ComputeAll(context.Background(), ex, linkEdits)
	require.Len(t, futures, 1)
	_, err = futures[0].Await(context.Background())
	require.NoError(t, err)

	sess.Close(testURI)
}

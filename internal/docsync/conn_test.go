package docsync

import (
	"context"
	"sync"
	"time"

	"go.lsp.dev/protocol"

	"github.com/dshills/lspsync/internal/lspconn"
)

// sentMsg is one recorded outbound notification.
type sentMsg struct {
	Method string
	Params any
}

// fakeConn is an in-memory lspconn.Conn that records traffic. A non-nil
// delay makes each Notify take that long before completing, which simulates
// slow transports without reordering anything the caller serializes.
type fakeConn struct {
	id     string
	caps   lspconn.Capabilities
	delay  func(i int) time.Duration
	onCall func(ctx context.Context, method string, params, result any) error

	mu       sync.Mutex
	active   bool
	sent     []sentMsg
	calls    []string
	notifyID int
}

func newFakeConn(id string, sup lspconn.SyncSupport) *fakeConn {
	return &fakeConn{
		id:     id,
		caps:   lspconn.Capabilities{Sync: sup},
		active: true,
	}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Capabilities() lspconn.Capabilities { return f.caps }

func (f *fakeConn) IsActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeConn) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
}

func (f *fakeConn) Notify(_ context.Context, method string, params any) error {
	f.mu.Lock()
	i := f.notifyID
	f.notifyID++
	f.mu.Unlock()

	if f.delay != nil {
		time.Sleep(f.delay(i))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMsg{Method: method, Params: params})
	return nil
}

func (f *fakeConn) Call(ctx context.Context, method string, params, result any) error {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.mu.Unlock()
	if f.onCall != nil {
		return f.onCall(ctx, method, params, result)
	}
	return nil
}

func (f *fakeConn) sentMessages() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMsg(nil), f.sent...)
}

func (f *fakeConn) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func incrementalSync() lspconn.SyncSupport {
	return lspconn.SyncSupport{
		Kind: protocol.TextDocumentSyncKindIncremental,
		Save: true,
	}
}

func fullSync() lspconn.SyncSupport {
	return lspconn.SyncSupport{
		Kind: protocol.TextDocumentSyncKindFull,
		Save: true,
	}
}

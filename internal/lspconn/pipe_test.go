package lspconn

import (
	"io"
	"sync"
)

// pipe is a thread-safe in-memory buffer implementing io.ReadWriteCloser.
type pipe struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

func newPipeEnd() *pipe {
	p := &pipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *pipe) Read(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.buf) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.buf) == 0 && p.closed {
		return 0, io.EOF
	}
	n := copy(data, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

func (p *pipe) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.buf = append(p.buf, data...)
	p.cond.Signal()
	return len(data), nil
}

func (p *pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.cond.Broadcast()
	return nil
}

// duplex joins two pipe ends into a bidirectional stream.
type duplex struct {
	reader *pipe
	writer *pipe
}

func (d duplex) Read(p []byte) (int, error)  { return d.reader.Read(p) }
func (d duplex) Write(p []byte) (int, error) { return d.writer.Write(p) }
func (d duplex) Close() error {
	_ = d.reader.Close()
	return d.writer.Close()
}

// newDuplexPair returns two connected stream ends.
func newDuplexPair() (client, server duplex) {
	a, b := newPipeEnd(), newPipeEnd()
	return duplex{reader: a, writer: b}, duplex{reader: b, writer: a}
}

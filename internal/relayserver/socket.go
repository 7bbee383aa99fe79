package relayserver

import (
	"context"
	"io"
	"sync"
)

// Socket is the bidirectional text channel to one remote agent. Production
// code wraps a websocket connection; tests use FakeSocket.
type Socket interface {
	ReadText(ctx context.Context) (string, error)
	WriteText(ctx context.Context, text string) error
	Close() error
}

// FakeSocket is an in-memory Socket for tests.
type FakeSocket struct {
	mu      sync.Mutex
	readCh  chan string
	Written []string
	closed  bool

	WriteErr error
}

func NewFakeSocket() *FakeSocket {
	return &FakeSocket{readCh: make(chan string, 8)}
}

// EmitText queues an inbound frame for the read loop.
func (f *FakeSocket) EmitText(text string) {
	f.readCh <- text
}

func (f *FakeSocket) ReadText(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case text, ok := <-f.readCh:
		if !ok {
			return "", io.EOF
		}
		return text, nil
	}
}

func (f *FakeSocket) WriteText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.Written = append(f.Written, text)
	return nil
}

func (f *FakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.readCh)
	}
	return nil
}

// Closed reports whether Close was called.
func (f *FakeSocket) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// WrittenFrames returns a copy of everything written so far.
func (f *FakeSocket) WrittenFrames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Written))
	copy(out, f.Written)
	return out
}

package relayserver

import (
	"context"
	"sync"
)

// AgentConn is one live agent connection with serialized writes.
type AgentConn struct {
	key     string
	sock    Socket
	writeMu sync.Mutex
}

func newAgentConn(key string, sock Socket) *AgentConn {
	return &AgentConn{key: key, sock: sock}
}

// Write sends one text frame, serialized against concurrent writers.
func (c *AgentConn) Write(ctx context.Context, text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.sock.WriteText(ctx, text)
}

func (c *AgentConn) Close() error {
	return c.sock.Close()
}

// ConnectionRegistry holds the live agent connection per credential. A
// credential has at most one live connection; a reconnect replaces the prior
// one rather than silently coexisting with it.
type ConnectionRegistry struct {
	mu    sync.Mutex
	conns map[string]*AgentConn
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{conns: map[string]*AgentConn{}}
}

// Register installs conn for key and returns the replaced connection, if
// any, so the caller can close it.
func (r *ConnectionRegistry) Register(key string, conn *AgentConn) *AgentConn {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.conns[key]
	r.conns[key] = conn
	return prev
}

// Deregister removes conn, but only if it is still the current connection
// for its key — a replaced connection's deferred cleanup must not evict its
// successor.
func (r *ConnectionRegistry) Deregister(conn *AgentConn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[conn.key] != conn {
		return false
	}
	delete(r.conns, conn.key)
	return true
}

// Get returns the live connection for key.
func (r *ConnectionRegistry) Get(key string) (*AgentConn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[key]
	return conn, ok
}

// Count returns the number of live connections.
func (r *ConnectionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Package agent is the remote half of the cloud variant: it keeps a
// persistent connection to the relay server, runs received queries against
// the local coding CLI, and sends results back.
package agent

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"vibebridge/bot/internal/claude"
	"vibebridge/bot/internal/logging"
	"vibebridge/bot/internal/protocol"
)

const (
	defaultReconnectDelay   = 5 * time.Second
	defaultHeartbeatPeriod  = 30 * time.Second
	connectHandshakeTimeout = 15 * time.Second
)

// Socket is the agent's side of the relay connection.
type Socket interface {
	ReadText(ctx context.Context) (string, error)
	WriteText(ctx context.Context, text string) error
	Close() error
}

// Dialer opens a Socket to the relay server.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// Executor runs one instruction against the coding CLI.
type Executor interface {
	Run(ctx context.Context, message string, continueSession bool) claude.Result
}

// Options configures an Agent.
type Options struct {
	Logger    *slog.Logger
	Dialer    Dialer
	Executor  Executor
	ServerURL string
	APIKey    string

	// ReconnectDelay overrides the pause between connection attempts.
	ReconnectDelay time.Duration
	// HeartbeatPeriod overrides the ping interval. Negative disables pings.
	HeartbeatPeriod time.Duration
}

// Agent holds one credentialed connection loop.
type Agent struct {
	logger    *slog.Logger
	dialer    Dialer
	exec      Executor
	serverURL string
	apiKey    string
	reconnect time.Duration
	heartbeat time.Duration

	writeMu sync.Mutex
}

func New(opts Options) *Agent {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(logging.Options{Writer: io.Discard})
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = WSDialer{}
	}
	reconnect := opts.ReconnectDelay
	if reconnect == 0 {
		reconnect = defaultReconnectDelay
	}
	heartbeat := opts.HeartbeatPeriod
	if heartbeat == 0 {
		heartbeat = defaultHeartbeatPeriod
	}
	return &Agent{
		logger:    logger,
		dialer:    dialer,
		exec:      opts.Executor,
		serverURL: opts.ServerURL,
		apiKey:    opts.APIKey,
		reconnect: reconnect,
		heartbeat: heartbeat,
	}
}

// URL builds the relay endpoint with the credential attached.
func (a *Agent) URL() string {
	return a.serverURL + "/ws/agent?key=" + url.QueryEscape(a.apiKey)
}

// Run connects and serves until ctx is cancelled, redialing after transient
// failures.
func (a *Agent) Run(ctx context.Context) error {
	for {
		sock, err := a.dialer.Dial(ctx, a.URL())
		if err != nil {
			a.logger.Error("relay connection failed", "error", err)
			if !a.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		if err := a.serve(ctx, sock); err != nil && ctx.Err() == nil {
			a.logger.Warn("relay connection lost", "error", err)
		}
		_ = sock.Close()

		if ctx.Err() != nil {
			return nil
		}
		a.logger.Info("reconnecting", "delay", a.reconnect)
		if !a.sleep(ctx) {
			return nil
		}
	}
}

func (a *Agent) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(a.reconnect):
		return true
	}
}

// serve pumps one live connection: a read loop handling frames and a
// heartbeat ticker, torn down together when either fails.
func (a *Agent) serve(ctx context.Context, sock Socket) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			text, err := sock.ReadText(gctx)
			if err != nil {
				return err
			}
			a.handleFrame(gctx, sock, text)
		}
	})

	if a.heartbeat > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(a.heartbeat)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					if err := a.write(gctx, sock, protocol.Ping()); err != nil {
						return err
					}
				}
			}
		})
	}

	return g.Wait()
}

func (a *Agent) handleFrame(ctx context.Context, sock Socket, text string) {
	frame, err := protocol.Decode([]byte(text))
	if err != nil {
		a.logger.Warn("bad frame from relay", "error", err)
		return
	}

	switch frame.Type {
	case protocol.TypeQuery:
		a.logger.Info("query received", "preview", preview(frame.Message))
		result := a.exec.Run(ctx, frame.Message, true)
		if err := a.write(ctx, sock, protocol.Response(result.Output)); err != nil {
			a.logger.Error("response send failed", "error", err)
			return
		}
		a.logger.Info("response sent", "succeeded", result.Succeeded)

	case protocol.TypePing:
		_ = a.write(ctx, sock, protocol.Pong())

	case protocol.TypePong:
		// Heartbeat reply.

	case protocol.TypeConnected:
		a.logger.Info("relay accepted connection", "message", frame.Message)

	case protocol.TypeError:
		a.logger.Error("relay error", "message", frame.Message)

	default:
		a.logger.Warn("unexpected frame type", "type", frame.Type)
	}
}

func (a *Agent) write(ctx context.Context, sock Socket, frame protocol.Frame) error {
	raw, err := protocol.Encode(frame)
	if err != nil {
		return err
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return sock.WriteText(ctx, string(raw))
}

func preview(text string) string {
	if len(text) > 50 {
		return text[:50] + "..."
	}
	return text
}

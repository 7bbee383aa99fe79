// Package relayserver is the cloud-variant hub: it authenticates remote
// agents over persistent sockets and routes queries and responses between
// chat conversations and those agents.
package relayserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"vibebridge/bot/internal/chat"
	"vibebridge/bot/internal/locale"
	"vibebridge/bot/internal/logging"
	"vibebridge/bot/internal/protocol"
	"vibebridge/bot/internal/store"
)

// Dispatch failure modes surfaced to the chat-facing caller.
var (
	ErrAgentOffline = errors.New("relayserver: no agent connected")
	ErrLimitReached = errors.New("relayserver: usage limit reached")
)

// Credentials is the persistence surface the server needs. Satisfied by
// *store.Store.
type Credentials interface {
	EnsureUser(slackUserID, teamID, channelID string, usageLimit int) (*store.User, bool, error)
	UserByAPIKey(apiKey string) (*store.User, error)
	SetAgentConnected(apiKey string, connected bool) error
	IncrementUsage(apiKey string) (int, error)
	LogMessage(userID int64, direction, content string) error
}

// Server owns the connection registry and response router.
type Server struct {
	logger     *slog.Logger
	creds      Credentials
	transport  chat.Transport
	registry   *ConnectionRegistry
	router     *ResponseRouter
	usageLimit int
}

// NewServer builds the hub. defaultUsageLimit is applied to users
// provisioned on first contact; zero or negative means unlimited.
func NewServer(logger *slog.Logger, creds Credentials, transport chat.Transport, defaultUsageLimit int) *Server {
	if logger == nil {
		logger = logging.NewLogger(logging.Options{Writer: io.Discard})
	}
	return &Server{
		logger:     logger,
		creds:      creds,
		transport:  transport,
		registry:   NewConnectionRegistry(),
		router:     NewResponseRouter(),
		usageLimit: defaultUsageLimit,
	}
}

// Registry exposes the connection registry for status checks.
func (s *Server) Registry() *ConnectionRegistry { return s.registry }

// HandleAgent runs one agent connection to completion: credential check,
// registration, read loop, cleanup. It returns when the socket closes or ctx
// is cancelled.
func (s *Server) HandleAgent(ctx context.Context, sock Socket, apiKey string) {
	user, err := s.creds.UserByAPIKey(apiKey)
	if err != nil {
		s.logger.Warn("agent rejected", "error", err)
		s.writeFrame(ctx, sock, protocol.Errorf("Invalid API Key"))
		_ = sock.Close()
		return
	}

	conn := newAgentConn(apiKey, sock)
	if prev := s.registry.Register(apiKey, conn); prev != nil {
		s.logger.Info("replacing prior agent connection", "user", user.SlackUserID)
		_ = prev.Close()
	}
	if err := s.creds.SetAgentConnected(apiKey, true); err != nil {
		s.logger.Error("connectivity flag set failed", "error", err)
	}
	s.logger.Info("agent connected", "user", user.SlackUserID)

	_ = conn.Write(ctx, encodeFrame(protocol.Connected("Successfully connected to vibebridge relay")))

	defer func() {
		if s.registry.Deregister(conn) {
			if err := s.creds.SetAgentConnected(apiKey, false); err != nil {
				s.logger.Error("connectivity flag clear failed", "error", err)
			}
		}
		_ = sock.Close()
		s.logger.Info("agent disconnected", "user", user.SlackUserID)
	}()

	for {
		text, err := sock.ReadText(ctx)
		if err != nil {
			return
		}
		frame, err := protocol.Decode([]byte(text))
		if err != nil {
			s.logger.Warn("bad frame from agent", "error", err)
			continue
		}
		switch frame.Type {
		case protocol.TypeResponse:
			s.handleResponse(ctx, user, frame.Result)
		case protocol.TypePing:
			_ = conn.Write(ctx, encodeFrame(protocol.Pong()))
		case protocol.TypePong:
			// Liveness reply, nothing to route.
		default:
			s.logger.Warn("unexpected frame type from agent", "type", frame.Type)
		}
	}
}

// Dispatch forwards one chat message to the user's agent. The router entry
// is recorded before the query frame goes out, so a fast response cannot
// beat the bookkeeping.
func (s *Server) Dispatch(ctx context.Context, apiKey, message string, dest chat.Destination, indicator chat.MessageRef) error {
	user, err := s.creds.UserByAPIKey(apiKey)
	if err != nil {
		return err
	}
	if user.UsageLimit > 0 && user.UsageCount >= user.UsageLimit {
		return ErrLimitReached
	}
	conn, ok := s.registry.Get(apiKey)
	if !ok {
		return ErrAgentOffline
	}

	s.router.Record(apiKey, dest, indicator)
	if err := conn.Write(ctx, encodeFrame(protocol.Query(message))); err != nil {
		// The query never left: take the entry back so it cannot strand.
		s.router.Pop(apiKey)
		return err
	}

	// Charge only for queries that actually reached the agent.
	if _, err := s.creds.IncrementUsage(apiKey); err != nil {
		s.logger.Error("usage increment failed", "error", err)
	}
	if err := s.creds.LogMessage(user.ID, store.DirectionUserToAgent, message); err != nil {
		s.logger.Error("message log failed", "error", err)
	}
	return nil
}

// HandleChatEvent services one inbound chat message: provision the user on
// first contact, gate on agent presence and usage, then dispatch behind a
// progress indicator. First contact replies with the fresh credential and
// setup instructions instead of dispatching.
func (s *Server) HandleChatEvent(ctx context.Context, ev chat.Event) {
	lang := s.userLang(ctx, ev.UserID)

	user, created, err := s.creds.EnsureUser(ev.UserID, ev.Dest.TeamID, ev.Dest.Channel, s.usageLimit)
	if err != nil {
		s.logger.Error("user provisioning failed", "error", err)
		return
	}
	if created {
		text := fmt.Sprintf("%s\n`%s`\n\n%s",
			locale.Get("welcome_key", lang), user.APIKey, locale.Get("agent_offline", lang))
		s.postText(ctx, ev.Dest, text)
		return
	}

	if _, ok := s.registry.Get(user.APIKey); !ok {
		s.postText(ctx, ev.Dest, locale.Get("agent_offline", lang))
		return
	}
	if user.UsageLimit > 0 && user.UsageCount >= user.UsageLimit {
		s.postText(ctx, ev.Dest, locale.Get("limit_reached", lang))
		return
	}

	indicator, err := s.transport.PostMessage(ctx, ev.Dest, locale.Get("thinking", lang))
	if err != nil {
		s.logger.Warn("indicator post failed", "error", err)
		indicator = chat.MessageRef{}
	}

	switch err := s.Dispatch(ctx, user.APIKey, ev.Text, ev.Dest, indicator); {
	case err == nil:
	case errors.Is(err, ErrAgentOffline):
		s.replaceOrPost(ctx, indicator, ev.Dest, locale.Get("agent_offline", lang))
	case errors.Is(err, ErrLimitReached):
		s.replaceOrPost(ctx, indicator, ev.Dest, locale.Get("limit_reached", lang))
	default:
		s.logger.Error("dispatch failed", "error", err)
		s.replaceOrPost(ctx, indicator, ev.Dest, locale.Get("no_response", lang))
	}
}

func (s *Server) userLang(ctx context.Context, userID string) string {
	loc, err := s.transport.UserLocale(ctx, userID)
	if err != nil {
		return "en"
	}
	return locale.NormalizeLocale(loc)
}

func (s *Server) postText(ctx context.Context, dest chat.Destination, text string) {
	if _, err := s.transport.PostMessage(ctx, dest, text); err != nil {
		s.logger.Error("post failed", "error", err)
	}
}

// replaceOrPost edits an existing indicator in place, falling back to a
// fresh post when there is no indicator or the edit fails.
func (s *Server) replaceOrPost(ctx context.Context, ref chat.MessageRef, dest chat.Destination, text string) {
	if ref.ID != "" {
		if err := s.transport.UpdateMessage(ctx, ref, text); err == nil {
			return
		}
	}
	s.postText(ctx, dest, text)
}

// handleResponse routes one agent reply back to chat. Pop semantics make
// duplicate frames no-ops; an update failure falls back to a fresh post so
// the reply is never lost.
func (s *Server) handleResponse(ctx context.Context, user *store.User, result string) {
	pending, ok := s.router.Pop(user.APIKey)
	if !ok {
		s.logger.Warn("orphan response dropped", "user", user.SlackUserID)
		return
	}
	if err := s.creds.LogMessage(user.ID, store.DirectionAgentToUser, result); err != nil {
		s.logger.Error("message log failed", "error", err)
	}
	if pending.Indicator.ID != "" {
		if err := s.transport.UpdateMessage(ctx, pending.Indicator, result); err == nil {
			return
		}
		s.logger.Warn("indicator update failed, posting fallback")
	}
	if _, err := s.transport.PostMessage(ctx, pending.Dest, result); err != nil {
		s.logger.Error("response post failed", "error", err)
	}
}

// StartSweeper drops router entries whose agent never answered, notifying
// the waiting conversation. It returns immediately and stops when ctx is
// cancelled.
func (s *Server) StartSweeper(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, orphan := range s.router.SweepExpired(ttl) {
					s.logger.Warn("in-flight query expired", "key", truncateKey(orphan.Key))
					s.notifyOrphan(ctx, orphan)
				}
			}
		}
	}()
}

func (s *Server) notifyOrphan(ctx context.Context, orphan PendingResponse) {
	s.replaceOrPost(ctx, orphan.Indicator, orphan.Dest, locale.Get("no_response", "en"))
}

func (s *Server) writeFrame(ctx context.Context, sock Socket, frame protocol.Frame) {
	if err := sock.WriteText(ctx, encodeFrame(frame)); err != nil {
		s.logger.Warn("frame write failed", "type", frame.Type, "error", err)
	}
}

// truncateKey shortens a credential for log lines.
func truncateKey(key string) string {
	if len(key) > 12 {
		return key[:12] + "..."
	}
	return key
}

func encodeFrame(f protocol.Frame) string {
	raw, err := protocol.Encode(f)
	if err != nil {
		return `{"type":"error","message":"encode failure"}`
	}
	return string(raw)
}

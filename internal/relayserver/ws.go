package relayserver

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
)

const wsReadLimitBytes int64 = 1 << 20 // 1 MiB

// ServeHTTP upgrades /ws/agent?key=... requests and hands the connection to
// HandleAgent.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	apiKey := r.URL.Query().Get("key")
	if apiKey == "" {
		http.Error(w, "missing key", http.StatusBadRequest)
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(wsReadLimitBytes)
	s.HandleAgent(r.Context(), &wsSocket{conn: conn}, apiKey)
}

type wsSocket struct {
	conn *websocket.Conn
}

func (s *wsSocket) ReadText(ctx context.Context) (string, error) {
	_, data, err := s.conn.Read(ctx)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *wsSocket) WriteText(ctx context.Context, text string) error {
	return s.conn.Write(ctx, websocket.MessageText, []byte(text))
}

func (s *wsSocket) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

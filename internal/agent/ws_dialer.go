package agent

import (
	"context"

	"github.com/coder/websocket"
)

// WSDialer opens real websocket connections to the relay server.
type WSDialer struct{}

func (WSDialer) Dial(ctx context.Context, url string) (Socket, error) {
	dialCtx, cancel := context.WithTimeout(ctx, connectHandshakeTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsSocket{conn: conn}, nil
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

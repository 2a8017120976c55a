package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// wsFrame is the message shape on WebSocket streams: the same
// discriminator/payload contract as SSE, carried as one JSON object per
// text message.
type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WSReader reads stream frames from a WebSocket connection. Like
// SSEDecoder it is pull-based and preserves arrival order.
type WSReader struct {
	conn *websocket.Conn
}

// DialWS opens a WebSocket stream. The http(s) scheme of url is rewritten
// to ws(s). headers carries the auth token. Closing the returned reader
// aborts the stream.
func DialWS(ctx context.Context, url string, headers http.Header) (*WSReader, error) {
	url = strings.Replace(url, "http", "ws", 1)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && errors.Is(err, websocket.ErrBadHandshake) {
			return nil, &HandshakeError{StatusCode: resp.StatusCode}
		}
		return nil, err
	}
	return &WSReader{conn: conn}, nil
}

// HandshakeError reports a WebSocket upgrade rejected with an HTTP status,
// so the executor can classify it like any other response status.
type HandshakeError struct {
	StatusCode int
}

func (e *HandshakeError) Error() string {
	return "websocket handshake rejected with HTTP " + http.StatusText(e.StatusCode)
}

// Next returns the next frame. io.EOF signals a clean close.
func (r *WSReader) Next() (*Frame, error) {
	for {
		kind, data, err := r.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		if kind != websocket.TextMessage {
			continue
		}

		var f wsFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		if f.Event == "" {
			f.Event = "message"
		}
		return &Frame{Type: f.Event, Data: string(f.Data)}, nil
	}
}

// Close aborts the stream.
func (r *WSReader) Close() error {
	return r.conn.Close()
}

package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
)

func TestWSReader(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		messages := []string{
			`{"event":"msg","data":{"msg":"step 1"}}`,
			`{"event":"result","data":{"ok":true}}`,
		}
		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	headers := http.Header{}
	headers.Set("Authorization", "Bearer tok")

	reader, err := DialWS(context.Background(), srv.URL, headers)
	if err != nil {
		t.Fatalf("DialWS() error = %v", err)
	}

	events := collect(t, Go(context.Background(), reader, func() { _ = reader.Close() }))
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != EventProgress || events[0].Message != "step 1" {
		t.Errorf("event 0 = %+v", events[0])
	}
	if events[1].Type != EventResult {
		t.Errorf("event 1 = %+v, want result", events[1])
	}
}

func TestDialWSRejectedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := DialWS(context.Background(), srv.URL, nil)
	var he *HandshakeError
	if !errors.As(err, &he) {
		t.Fatalf("DialWS() error = %v, want *HandshakeError", err)
	}
	if he.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", he.StatusCode)
	}
}

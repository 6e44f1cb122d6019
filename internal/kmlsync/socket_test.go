package kmlsync

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/EndPointCorp/kmlsync/internal/testutil/testlog"
	"github.com/gorilla/websocket"
)

func TestSocketPushAppliesCommands(t *testing.T) {
	testlog.Start(t)
	s := newTestService(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	push := func(payload string) string {
		t.Helper()
		if err := ws.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
			t.Fatalf("write: %v", err)
		}
		_, reply, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		return string(reply)
	}

	reply := push(`{"command":"add","window_slug":"w1","asset":"{\"slug\":\"a\",\"title\":\"A\",\"storage\":\"sa\"}"}`)
	if !strings.Contains(reply, "Adding asset slug=a") || strings.HasSuffix(reply, "Warning") {
		t.Fatalf("unexpected add reply: %q", reply)
	}
	if got := s.Store().Get("w1"); len(got) != 1 || got[0].Slug != "a" {
		t.Fatalf("unexpected store: %+v", got)
	}

	push(`{"command":"add","window_slug":"w1","asset":{"slug":"b","title":"","storage":"sb"}}`)
	reply = push(`{"command":"delete","window_slug":"w1","asset":"a"}`)
	if !strings.Contains(reply, "Deleted asset slug a from window w1") {
		t.Fatalf("expected delete by asset value: %q", reply)
	}
	if got := s.Store().Get("w1"); len(got) != 1 || got[0].Slug != "b" {
		t.Fatalf("unexpected store after delete: %+v", got)
	}

	reply = push(`{"command":"delete","window_slug":"w1"}`)
	if !strings.HasSuffix(reply, "Warning") {
		t.Fatalf("expected warning for delete without slug: %q", reply)
	}

	reply = push(`nope`)
	if !strings.HasPrefix(reply, "Malformed socket message") {
		t.Fatalf("unexpected malformed reply: %q", reply)
	}
}

func TestCheckOrigin(t *testing.T) {
	testlog.Start(t)
	s := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://anywhere")
	if !s.checkOrigin(req) {
		t.Fatalf("empty cors list must admit every origin")
	}

	s.cfg.CorsOrigins = []string{"http://lg-head:3000"}
	if s.checkOrigin(req) {
		t.Fatalf("unlisted origin must be rejected")
	}
	req.Header.Set("Origin", "HTTP://lg-head:3000")
	if !s.checkOrigin(req) {
		t.Fatalf("listed origin must be admitted")
	}
}

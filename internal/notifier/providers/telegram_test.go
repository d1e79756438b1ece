package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTelegramSend(t *testing.T) {
	var got sendMessageRequest
	var path, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewTelegramSender(srv.URL+"/", "123:abc", "-1001", srv.Client())
	if err := s.Send(context.Background(), "Falix keep-alive success"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if path != "/bot123:abc/sendMessage" {
		t.Errorf("path = %s", path)
	}
	if contentType != "application/json" {
		t.Errorf("content type = %s", contentType)
	}
	if got.ChatID != "-1001" || got.Text != "Falix keep-alive success" {
		t.Errorf("request = %+v", got)
	}
}

func TestTelegramSendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	err := NewTelegramSender(srv.URL, "t", "c", srv.Client()).Send(context.Background(), "x")
	if err == nil {
		t.Fatal("Send succeeded on a 400")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("error %q lacks status or body", err)
	}
}

func TestTelegramErrorHidesToken(t *testing.T) {
	// Nothing listens on port 1.
	err := NewTelegramSender("http://127.0.0.1:1", "secret-token", "c", nil).Send(context.Background(), "x")
	if err == nil {
		t.Fatal("Send succeeded without a server")
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Errorf("error leaks the bot token: %v", err)
	}
}

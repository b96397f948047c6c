package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vozsalud/cita-platform/internal/chat"
	"github.com/vozsalud/cita-platform/internal/dialog"
	"github.com/vozsalud/cita-platform/internal/session"
)

type turnFunc func(msg string, st dialog.State) (string, dialog.State)

func (f turnFunc) ProcessTurn(_ context.Context, msg string, st dialog.State) (string, dialog.State) {
	return f(msg, st)
}

func TestHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(New(&Config{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}

func TestChatRoutesMounted(t *testing.T) {
	engine := chat.NewEngine(chat.EngineConfig{
		Machine:  turnFunc(func(msg string, st dialog.State) (string, dialog.State) { return "hola", st }),
		Sessions: session.NewMemoryStore(),
	})
	handler := chat.NewHandler(engine, nil, []byte("// widget"), nil)
	srv := httptest.NewServer(New(&Config{ChatHandler: handler}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/chat/widget.js")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("widget status = %d", resp.StatusCode)
	}
}

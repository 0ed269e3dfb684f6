package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/viewtl/viewlink/internal/connection"
	"github.com/viewtl/viewlink/internal/discovery"
	"github.com/viewtl/viewlink/internal/poller"
	"github.com/viewtl/viewlink/internal/router"
	"github.com/viewtl/viewlink/internal/storage"
)

type fakeController struct {
	state   connection.State
	retries int
}

func (f *fakeController) State() connection.State { return f.state }
func (f *fakeController) Retry()                  { f.retries++ }

type fakeStats struct{ stats router.RouterStats }

func (f fakeStats) Stats() router.RouterStats { return f.stats }

type fakePoller struct{ stats poller.Stats }

func (f fakePoller) Stats() poller.Stats { return f.stats }

func TestHealth_Connected(t *testing.T) {
	ctrl := &fakeController{state: connection.Connected{Address: "ws://10.0.0.1/socket", IsLocal: true}}
	h := newHealthHandler(ctrl, fakeStats{router.RouterStats{MessagesReceived: 3}}, fakePoller{poller.Stats{Polls: 2, Skipped: 1}}, nil, slog.Default())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status     string         `json:"status"`
		Components map[string]any `json:"components"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("status = %q", body.Status)
	}
	if body.Components["connection"] != "connected(ws://10.0.0.1/socket, local)" {
		t.Errorf("connection = %v", body.Components["connection"])
	}
	polls, _ := body.Components["poller"].(map[string]any)
	if polls["polls"] != float64(2) || polls["skipped"] != float64(1) {
		t.Errorf("poller = %v", body.Components["poller"])
	}
}

func TestHealth_NotConnected(t *testing.T) {
	for _, state := range []connection.State{
		connection.Disconnected{},
		connection.Connecting{},
		connection.LoginRequired{},
	} {
		h := newHealthHandler(&fakeController{state: state}, fakeStats{}, fakePoller{}, nil, slog.Default())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%v: status = %d, want 503", state, rec.Code)
		}
	}
}

func TestDebugState_LoginRequired(t *testing.T) {
	ctrl := &fakeController{state: connection.LoginRequired{Address: discovery.DiscoveredAddress{
		Kind:    discovery.LoginRequired,
		FromURL: "https://app.view.tl/",
		Message: "Please log in",
	}}}
	h := newHealthHandler(ctrl, fakeStats{}, fakePoller{}, nil, slog.Default())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/state", nil))

	var view map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view["message"] != "Please log in" || view["from_url"] != "https://app.view.tl/" {
		t.Errorf("view = %v", view)
	}
}

func TestLogin_StoresCredentialsAndRetries(t *testing.T) {
	store, err := storage.NewMemoryStore(storage.Credentials{}, 1)
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}
	ctrl := &fakeController{state: connection.LoginRequired{}}
	h := newHealthHandler(ctrl, fakeStats{}, fakePoller{}, store, slog.Default())

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"email":"me@example.com","password":"pw"}`)
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if ctrl.retries != 1 {
		t.Errorf("retries = %d, want 1", ctrl.retries)
	}
	creds, err := storage.LoadCredentials(t.Context(), store)
	if err != nil || creds.Email != "me@example.com" {
		t.Errorf("stored credentials = %+v, %v", creds, err)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty body status = %d, want 400", rec.Code)
	}
	if ctrl.retries != 1 {
		t.Errorf("retries = %d after bad request, want 1", ctrl.retries)
	}
}

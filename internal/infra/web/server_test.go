package web_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voice-phone/internal/domain"
	"voice-phone/internal/infra/web"
)

type mockController struct {
	mu        sync.Mutex
	snapshot  domain.Snapshot
	toggleErr error
	toggles   int
}

func (m *mockController) Snapshot() domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func (m *mockController) Toggle(_ context.Context) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toggles++
	if m.toggleErr != nil {
		return domain.Snapshot{}, m.toggleErr
	}
	m.snapshot.Listening = !m.snapshot.Listening
	if m.snapshot.Listening {
		m.snapshot.State = domain.StateListening
	} else {
		m.snapshot.State = domain.StateIdle
	}
	return m.snapshot, nil
}

func idleSnapshot() domain.Snapshot {
	return domain.Snapshot{State: domain.StateIdle, Supported: true, History: []domain.CommandRecord{}}
}

func newTestServer(ctrl web.Controller) *web.Server {
	return web.NewServer(":0", ctrl, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestServer_State(t *testing.T) {
	ctrl := &mockController{snapshot: idleSnapshot()}
	ctrl.snapshot.LastAction = "📞 Calling contact"
	srv := newTestServer(ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body["lastAction"] != "📞 Calling contact" {
		t.Errorf("lastAction: got %v", body["lastAction"])
	}
	if body["isSupported"] != true || body["isListening"] != false {
		t.Errorf("flags: got %v", body)
	}
}

func TestServer_Toggle(t *testing.T) {
	ctrl := &mockController{snapshot: idleSnapshot()}
	srv := newTestServer(ctrl)

	req := httptest.NewRequest(http.MethodPost, "/api/toggle", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d, want %d", rec.Code, http.StatusOK)
	}
	var snap domain.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if snap.State != domain.StateListening {
		t.Errorf("state: got %q, want %q", snap.State, domain.StateListening)
	}
}

func TestServer_ToggleUnsupported(t *testing.T) {
	ctrl := &mockController{
		snapshot:  domain.Snapshot{State: domain.StateUnsupported},
		toggleErr: domain.ErrUnsupported,
	}
	srv := newTestServer(ctrl)

	req := httptest.NewRequest(http.MethodPost, "/api/toggle", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status code: got %d, want %d", rec.Code, http.StatusConflict)
	}
	if !strings.Contains(rec.Body.String(), "not supported") {
		t.Errorf("body: %s", rec.Body.String())
	}
}

func TestServer_ToggleRequiresPost(t *testing.T) {
	srv := newTestServer(&mockController{snapshot: idleSnapshot()})

	req := httptest.NewRequest(http.MethodGet, "/api/toggle", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status code: got %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestServer_IndexAndHealth(t *testing.T) {
	srv := newTestServer(&mockController{snapshot: idleSnapshot()})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Voice Phone Assistant") {
		t.Errorf("index: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "if (!Recognition) reportUnsupported();") {
		t.Error("index does not report a missing recognizer on load")
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("health: got %d %s", rec.Code, rec.Body.String())
	}
}

func TestServer_Mount(t *testing.T) {
	srv := newTestServer(&mockController{snapshot: idleSnapshot()})
	srv.Mount("/recognition/", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/recognition/session", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("status code: got %d, want %d", rec.Code, http.StatusTeapot)
	}
}

type stateEnvelope struct {
	Type  string          `json:"type"`
	State domain.Snapshot `json:"state"`
}

func readState(t *testing.T, conn *websocket.Conn) domain.Snapshot {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg stateEnvelope
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading state: %v", err)
	}
	if msg.Type != "state" {
		t.Fatalf("message type: got %q, want state", msg.Type)
	}
	return msg.State
}

func TestServer_WebSocketPublishesState(t *testing.T) {
	ctrl := &mockController{snapshot: idleSnapshot()}
	srv := newTestServer(ctrl)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	defer conn.Close()

	initial := readState(t, conn)
	if initial.State != domain.StateIdle {
		t.Errorf("initial state: got %q, want %q", initial.State, domain.StateIdle)
	}

	deadline := time.Now().Add(2 * time.Second)
	for srv.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	srv.Publish(domain.Snapshot{
		State:      domain.StateListening,
		Listening:  true,
		Supported:  true,
		Interim:    "call m",
		LastAction: "",
	})

	got := readState(t, conn)
	if got.Interim != "call m" || !got.Listening {
		t.Errorf("published state: got %+v", got)
	}
}

func TestServer_StartStop(t *testing.T) {
	srv := newTestServer(&mockController{snapshot: idleSnapshot()})

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("starting: %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Errorf("stopping: %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Errorf("second stop: %v", err)
	}
}

func TestServer_PublishDoesNotWaitForSlowClient(t *testing.T) {
	ctrl := &mockController{snapshot: idleSnapshot()}
	srv := newTestServer(ctrl)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	// This page never reads, so its socket buffers fill up.
	stalled, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing stalled client: %v", err)
	}
	defer stalled.Close()

	reader, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing reader: %v", err)
	}
	defer reader.Close()
	readState(t, reader)

	deadline := time.Now().Add(2 * time.Second)
	for srv.ClientCount() != 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	interim := strings.Repeat("x", 64*1024)
	start := time.Now()
	for i := 0; i < 300; i++ {
		srv.Publish(domain.Snapshot{State: domain.StateListening, Listening: true, Interim: interim})
	}
	srv.Publish(domain.Snapshot{State: domain.StateListening, Listening: true, Interim: "call m"})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("publishing took %v with a stalled client", elapsed)
	}

	for {
		if got := readState(t, reader); got.Interim == "call m" {
			break
		}
	}
}

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"inputrelay/internal/metrics"
	"inputrelay/internal/protocol"
)

func newTestServer(t *testing.T, token string, status protocol.StatusPayload) (*Server, *httptest.Server) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg))
	m.Frame("touch")

	srv := NewServer(token, func() protocol.StatusPayload { return status }, reg)
	go srv.wsMgr.start()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.wsMgr.stop()
		ts.Close()
	})
	return srv, ts
}

func get(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthSkipsAuth(t *testing.T) {
	_, ts := newTestServer(t, "secret", protocol.StatusPayload{})
	resp := get(t, ts.URL+"/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestStatusRequiresToken(t *testing.T) {
	want := protocol.StatusPayload{Mode: "output", Remote: "10.0.0.2:5000", Connected: true, Frames: 12, Skipped: 1}
	_, ts := newTestServer(t, "secret", want)

	if resp := get(t, ts.URL+"/api/status", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}
	if resp := get(t, ts.URL+"/api/status", "wrong"); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong token, got %d", resp.StatusCode)
	}

	resp := get(t, ts.URL+"/api/status", "secret")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var got protocol.StatusPayload
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestStatusMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t, "", protocol.StatusPayload{})
	resp, err := http.Post(ts.URL+"/api/status", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, "", protocol.StatusPayload{})
	resp := get(t, ts.URL+"/metrics", "")
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `inputrelay_frames_total{type="touch"} 1`) {
		t.Errorf("Expected frame counter in metrics output, got:\n%s", body)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg protocol.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	return msg
}

func TestWebSocketStatus(t *testing.T) {
	initial := protocol.StatusPayload{Mode: "surface", Remote: "sender:1"}
	srv, ts := newTestServer(t, "secret", initial)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Authorization": []string{"Bearer secret"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msg := readMessage(t, conn)
	if msg.Type != protocol.TypeStatus {
		t.Fatalf("Expected initial status message, got %+v", msg)
	}
	payload, _ := msg.Payload.(map[string]interface{})
	if payload["mode"] != "surface" {
		t.Errorf("Expected mode surface, got %v", payload["mode"])
	}

	srv.BroadcastStatus(protocol.StatusPayload{Mode: "surface", Connected: true, Frames: 5})
	msg = readMessage(t, conn)
	payload, _ = msg.Payload.(map[string]interface{})
	if msg.Type != protocol.TypeStatus || payload["connected"] != true || payload["frames"] != float64(5) {
		t.Errorf("Expected broadcast status, got %+v", msg)
	}

	if err := conn.WriteJSON(protocol.Message{Type: protocol.TypeStatusRequest}); err != nil {
		t.Fatal(err)
	}
	msg = readMessage(t, conn)
	payload, _ = msg.Payload.(map[string]interface{})
	if msg.Type != protocol.TypeStatus || payload["remote"] != "sender:1" {
		t.Errorf("Expected status reply, got %+v", msg)
	}

	if err := conn.WriteJSON(protocol.Message{Type: protocol.TypePing}); err != nil {
		t.Fatal(err)
	}
	if msg = readMessage(t, conn); msg.Type != protocol.TypePing {
		t.Errorf("Expected ping reply, got %+v", msg)
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	_, ts := newTestServer(t, "secret", protocol.StatusPayload{})
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("Expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %v", resp)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	srv := NewServer("", nil, prometheus.NewRegistry())
	h := srv.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rec.Code)
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"alpha_innotec_planner/internal/models"
	"alpha_innotec_planner/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// --- parseInterval unit tests ---

func TestParseInterval(t *testing.T) {
	h := NewHandler(&service.Service{}, nil)

	cases := []struct {
		name string
		u    string
		want time.Duration
	}{
		{"default_when_missing", "/ws", defaultInterval},
		{"interval_string_valid", "/ws?interval=200ms", 200 * time.Millisecond},
		{"interval_ms_valid", "/ws?interval_ms=150", 150 * time.Millisecond},
		{"interval_too_large", "/ws?interval=2m", defaultInterval},
		{"interval_ms_too_large", "/ws?interval_ms=120000", defaultInterval},
		{"interval_invalid_string", "/ws?interval=bogus", defaultInterval},
		{"interval_ms_invalid", "/ws?interval_ms=NaN", defaultInterval},
		{"both_present_interval_wins", "/ws?interval=2s&interval_ms=150", 2 * time.Second},
		{"both_present_invalid_interval_ms_used", "/ws?interval=bogus&interval_ms=250", 250 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.u, nil)
			c, _ := gin.CreateTestContext(w)
			c.Request = req
			got := h.parseInterval(c)
			if got != tc.want {
				t.Fatalf("got %v, want %v for %s", got, tc.want, tc.u)
			}
		})
	}
}

// --- websocket integration tests ---

type envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dialStream(t *testing.T, s *service.Service, intervalMs string) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(s, nil)
	r.GET("/ws", h.wsConnect)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	if intervalMs != "" {
		q := u.Query()
		q.Set("interval_ms", intervalMs)
		u.RawQuery = q.Encode()
	}

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func TestWebSocket_PushesOnlyChangedState(t *testing.T) {
	t1 := time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	mon := &mockMonitoring{states: []models.RunState{
		{UpdatedAt: t1},
		{UpdatedAt: t1},
		{UpdatedAt: t2, DisinfectionEnabled: true},
	}}
	conn := dialStream(t, &service.Service{Monitoring: mon}, "20")

	env := readEnvelope(t, conn)
	if env.Type != "state" {
		t.Fatalf("bad envelope: %+v", env)
	}
	var st models.RunState
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if !st.UpdatedAt.Equal(t1) || st.DisinfectionEnabled {
		t.Fatalf("unexpected initial state: %+v", st)
	}

	// The unchanged second read is swallowed; the next message is the update.
	env = readEnvelope(t, conn)
	st = models.RunState{}
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if env.Type != "state" || !st.UpdatedAt.Equal(t2) || !st.DisinfectionEnabled {
		t.Fatalf("expected the updated state, got %+v", st)
	}

	// t2 now repeats and nothing more is pushed.
	_ = conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err == nil {
		t.Fatalf("unexpected push: %s", string(raw))
	}
}

func TestWebSocket_TickErrorIsReported(t *testing.T) {
	mon := &mockMonitoring{states: []models.RunState{{UpdatedAt: time.Now().UTC()}}}
	conn := dialStream(t, &service.Service{Monitoring: mon}, "20")

	if env := readEnvelope(t, conn); env.Type != "state" {
		t.Fatalf("bad envelope: %+v", env)
	}
	mon.mu.Lock()
	mon.err = errors.New("db down")
	mon.mu.Unlock()

	env := readEnvelope(t, conn)
	if env.Type != "error" || env.Error != errGetState {
		t.Fatalf("expected error envelope, got %+v", env)
	}
}

func TestWebSocket_InitialGetStateError_Closes(t *testing.T) {
	mon := &mockMonitoring{err: errors.New("boom")}
	conn := dialStream(t, &service.Service{Monitoring: mon}, "")

	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err == nil {
		t.Fatalf("expected read error (closed), got message: %s", string(raw))
	}
}

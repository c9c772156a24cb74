package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/lazyswap/internal/conversation"
	"github.com/MikeSquared-Agency/lazyswap/internal/sideshift"
)

type fakeConversations struct {
	lastID   string
	lastText string
	resets   int
	states   map[string]conversation.State
	err      error
}

func (f *fakeConversations) Advance(ctx context.Context, id, text string) (conversation.Reply, error) {
	f.lastID, f.lastText = id, text
	if f.err != nil {
		return conversation.Reply{}, f.err
	}
	return conversation.Reply{Text: "echo: " + text, Step: conversation.KindIdle}, nil
}

func (f *fakeConversations) Reset(ctx context.Context, id string) (conversation.Reply, error) {
	f.lastID = id
	f.resets++
	return conversation.Reply{Text: "reset", Step: conversation.KindIdle}, nil
}

func (f *fakeConversations) Snapshot(ctx context.Context, id string) (conversation.State, bool, error) {
	st, ok := f.states[id]
	return st, ok, nil
}

type fakeExchange struct {
	coins []sideshift.Coin
	perm  sideshift.Permissions
	shift sideshift.Shift
	err   error
	ip    string
}

func (f *fakeExchange) ListCoins(ctx context.Context) ([]sideshift.Coin, error) {
	return f.coins, f.err
}

func (f *fakeExchange) CheckPermissions(ctx context.Context, userIP string) (sideshift.Permissions, error) {
	f.ip = userIP
	return f.perm, f.err
}

func (f *fakeExchange) GetShift(ctx context.Context, id string) (sideshift.Shift, error) {
	if f.err != nil {
		return sideshift.Shift{}, f.err
	}
	s := f.shift
	s.ID = id
	return s, nil
}

func newTestServer(conv *fakeConversations, ex *fakeExchange, token string) *Server {
	return NewServer(8080, Deps{
		Conversations: conv,
		Exchange:      ex,
		APIToken:      token,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&fakeConversations{}, &fakeExchange{}, "")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(&fakeConversations{}, &fakeExchange{}, "")

	req := httptest.NewRequest("GET", "/nonexistent", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestPostMessage(t *testing.T) {
	conv := &fakeConversations{}
	srv := newTestServer(conv, &fakeExchange{}, "")

	req := httptest.NewRequest("POST", "/api/v1/conversations/chat-1/messages", strings.NewReader(`{"text":"swap 1 ETH to BTC"}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if conv.lastID != "chat-1" || conv.lastText != "swap 1 ETH to BTC" {
		t.Errorf("unexpected advance call id=%q text=%q", conv.lastID, conv.lastText)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["reply"] != "echo: swap 1 ETH to BTC" {
		t.Errorf("unexpected reply %v", body["reply"])
	}
	if body["step"] != "idle" {
		t.Errorf("expected step idle, got %v", body["step"])
	}
}

func TestPostMessage_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"empty text", `{"text":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&fakeConversations{}, &fakeExchange{}, "")
			req := httptest.NewRequest("POST", "/api/v1/conversations/c/messages", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			srv.router.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestPostMessage_EngineError(t *testing.T) {
	srv := newTestServer(&fakeConversations{err: errors.New("db down")}, &fakeExchange{}, "")
	req := httptest.NewRequest("POST", "/api/v1/conversations/c/messages", strings.NewReader(`{"text":"hi"}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestGetConversation(t *testing.T) {
	st := conversation.NewState("known")
	conv := &fakeConversations{states: map[string]conversation.State{"known": st}}
	srv := newTestServer(conv, &fakeExchange{}, "")

	req := httptest.NewRequest("GET", "/api/v1/conversations/known", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	json.NewDecoder(w.Body).Decode(&body)
	if body["id"] != "known" || body["step"] != "idle" {
		t.Errorf("unexpected body %v", body)
	}

	req = httptest.NewRequest("GET", "/api/v1/conversations/missing", nil)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestResetConversation(t *testing.T) {
	conv := &fakeConversations{}
	srv := newTestServer(conv, &fakeExchange{}, "")

	req := httptest.NewRequest("DELETE", "/api/v1/conversations/abc", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if conv.resets != 1 || conv.lastID != "abc" {
		t.Errorf("expected one reset of abc, got %d of %q", conv.resets, conv.lastID)
	}
}

func TestListCoins(t *testing.T) {
	ex := &fakeExchange{coins: []sideshift.Coin{{Coin: "ETH"}, {Coin: "BTC"}}}
	srv := newTestServer(&fakeConversations{}, ex, "")

	req := httptest.NewRequest("GET", "/api/v1/coins", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Count int `json:"count"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	if body.Count != 2 {
		t.Errorf("expected 2 coins, got %d", body.Count)
	}
}

func TestPermissionsPassesIP(t *testing.T) {
	ex := &fakeExchange{perm: sideshift.Permissions{CreateShift: true}}
	srv := newTestServer(&fakeConversations{}, ex, "")

	req := httptest.NewRequest("GET", "/api/v1/permissions?ip=1.2.3.4", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ex.ip != "1.2.3.4" {
		t.Errorf("expected ip to be forwarded, got %q", ex.ip)
	}
}

func TestGetShift(t *testing.T) {
	ex := &fakeExchange{shift: sideshift.Shift{Status: "waiting"}}
	srv := newTestServer(&fakeConversations{}, ex, "")

	req := httptest.NewRequest("GET", "/api/v1/shifts/s123", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	json.NewDecoder(w.Body).Decode(&body)
	if body["order_url"] != "https://sideshift.ai/orders/s123" {
		t.Errorf("unexpected order url %v", body["order_url"])
	}
}

func TestExchangeErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &sideshift.APIError{Status: 404, Message: "not found"}, http.StatusNotFound},
		{"upstream", errors.New("boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&fakeConversations{}, &fakeExchange{err: tt.err}, "")
			req := httptest.NewRequest("GET", "/api/v1/shifts/x", nil)
			w := httptest.NewRecorder()
			srv.router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer(&fakeConversations{}, &fakeExchange{}, "secret")

	body := []byte(`{"text":"hi"}`)
	req := httptest.NewRequest("POST", "/api/v1/conversations/c/messages", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/api/v1/conversations/c/messages", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", w.Code)
	}

	// health stays open
	req = httptest.NewRequest("GET", "/health", nil)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected open health check, got %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	srv := NewServer(8080, Deps{
		Conversations: &fakeConversations{},
		Exchange:      &fakeExchange{},
		RateLimit:     RateLimit{RequestsPerMinute: 1, Burst: 2},
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest("GET", "/api/v1/coins", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("expected burst to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected third request to be limited, got %d", codes[2])
	}

	// a different client has its own bucket
	req := httptest.NewRequest("GET", "/api/v1/coins", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected other client to pass, got %d", w.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	srv := NewServer(8080, Deps{
		Conversations: &fakeConversations{},
		Exchange:      &fakeExchange{},
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "lazyswap_up 1\n")
		}),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "lazyswap_up") {
		t.Errorf("unexpected metrics response %d %q", w.Code, w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(&fakeConversations{}, &fakeExchange{}, "secret")

	req := httptest.NewRequest("OPTIONS", "/api/v1/conversations/c/messages", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard origin, got %q", got)
	}
}

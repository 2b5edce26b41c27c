package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/kalambet/psychtrend/internal/pipeline"
	"github.com/kalambet/psychtrend/internal/report"
)

const testToken = "test-token"

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := newTestService(t)
	return NewHandler(Deps{Service: svc, Token: testToken, Backend: "ollama"})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]apiError](t, rec)["error"].Type
}

func startHTTPSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/session", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /session = %d: %s", rec.Code, rec.Body.String())
	}
	return decode[pipeline.Started](t, rec).SessionID
}

func completeHTTPSession(t *testing.T, h http.Handler, id string) {
	t.Helper()
	for i := 0; i < 60; i++ {
		rec := do(t, h, http.MethodPost, "/chat", ChatRequest{SessionID: id, Message: scriptedAnswers[min(i, len(scriptedAnswers)-1)]})
		if rec.Code != http.StatusOK {
			t.Fatalf("POST /chat = %d: %s", rec.Code, rec.Body.String())
		}
		if decode[pipeline.Reply](t, rec).IsComplete {
			return
		}
	}
	t.Fatal("session never completed")
}

func TestHealth_NoAuth(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAuth_Rejects(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong token", "Bearer nope"},
		{"wrong scheme", "Basic " + testToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/session", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if got := errorType(t, rec); got != "authentication_error" {
				t.Errorf("error type = %q", got)
			}
		})
	}
}

func TestAuth_QueryTokenOnlyForUpgrades(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/session?access_token="+testToken, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestChatFlow(t *testing.T) {
	h := newTestHandler(t)
	id := startHTTPSession(t, h)

	rec := do(t, h, http.MethodPost, "/chat", ChatRequest{SessionID: id, Message: "Sam"})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /chat = %d: %s", rec.Code, rec.Body.String())
	}
	reply := decode[pipeline.Reply](t, rec)
	if reply.SessionID != id || !strings.Contains(reply.Message, "Sam") {
		t.Errorf("reply = %+v", reply)
	}

	completeHTTPSession(t, h, id)

	rec = do(t, h, http.MethodGet, "/session/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /session = %d", rec.Code)
	}
	view := decode[pipeline.SessionView](t, rec)
	if !view.IsComplete || view.ResponseCount == 0 || view.UserName != "Sam" {
		t.Errorf("view = complete:%v responses:%d name:%q", view.IsComplete, view.ResponseCount, view.UserName)
	}

	rec = do(t, h, http.MethodGet, "/analysis/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /analysis = %d", rec.Code)
	}
	if a := decode[report.Analysis](t, rec); a.Status != report.StatusComplete {
		t.Errorf("analysis status = %q", a.Status)
	}

	rec = do(t, h, http.MethodGet, "/report/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /report = %d", rec.Code)
	}
	if r := decode[report.Report](t, rec); r.Disclaimer != report.Disclaimer {
		t.Errorf("report disclaimer = %q", r.Disclaimer)
	}

	rec = do(t, h, http.MethodGet, "/report-enhanced/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /report-enhanced = %d", rec.Code)
	}
	e := decode[report.Enhanced](t, rec)
	if e.LLMEnhanced {
		t.Error("report should not be LLM-enhanced without a humanizer")
	}
	if e.FullReportMarkdown == "" {
		t.Error("fallback report should carry markdown")
	}
}

func TestChat_BadRequests(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/chat", ChatRequest{Message: "hi"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing session_id status = %d", rec.Code)
	}
}

func TestChat_IncompleteInputIsNotAnError(t *testing.T) {
	h := newTestHandler(t)
	id := startHTTPSession(t, h)

	rec := do(t, h, http.MethodPost, "/chat", ChatRequest{SessionID: id, Message: "   "})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if reply := decode[pipeline.Reply](t, rec); reply.Message == "" {
		t.Error("expected a prompt to elaborate")
	}
}

func TestNotFound(t *testing.T) {
	h := newTestHandler(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/session/missing"},
		{http.MethodDelete, "/session/missing"},
		{http.MethodGet, "/analysis/missing"},
		{http.MethodGet, "/report/missing"},
		{http.MethodGet, "/report-enhanced/missing"},
		{http.MethodGet, "/ws/chat/missing"},
	} {
		rec := do(t, h, tc.method, tc.path, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s = %d, want 404", tc.method, tc.path, rec.Code)
			continue
		}
		if got := errorType(t, rec); got != "not_found_error" {
			t.Errorf("%s %s error type = %q", tc.method, tc.path, got)
		}
	}

	rec := do(t, h, http.MethodPost, "/chat", ChatRequest{SessionID: "missing", Message: "hello there"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("POST /chat unknown session = %d", rec.Code)
	}
}

func TestEnhancedReport_Insufficient(t *testing.T) {
	h := newTestHandler(t)
	id := startHTTPSession(t, h)

	rec := do(t, h, http.MethodGet, "/report-enhanced/"+id, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decode[map[string]apiError](t, rec)["error"]
	if body.Message != "Need at least 3 responses for report generation" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestDeleteAndReset(t *testing.T) {
	h := newTestHandler(t)
	first := startHTTPSession(t, h)
	startHTTPSession(t, h)
	startHTTPSession(t, h)

	if rec := do(t, h, http.MethodDelete, "/session/"+first, nil); rec.Code != http.StatusOK {
		t.Fatalf("DELETE = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/session/"+first, nil); rec.Code != http.StatusNotFound {
		t.Errorf("deleted session still served: %d", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/reset", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /reset = %d", rec.Code)
	}
	if n := decode[map[string]any](t, rec)["sessions_deleted"]; n != float64(2) {
		t.Errorf("sessions_deleted = %v, want 2", n)
	}
}

func TestLLMHealth_NoHumanizer(t *testing.T) {
	h := newTestHandler(t)
	rec := do(t, h, http.MethodGet, "/llm/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[LLMHealth](t, rec)
	if got.Status != "unavailable" || got.Available || got.Backend != "ollama" {
		t.Errorf("health = %+v", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Errorf("missing Access-Control-Allow-Origin, headers = %v", rec.Header())
	}
}

func TestChatSocket(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(t))
	defer srv.Close()
	id := startHTTPSession(t, srv.Config.Handler)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/" + id + "?access_token=" + testToken
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v (resp %+v)", err, resp)
	}
	defer conn.Close()

	var first wsOutbound
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("reading history frame: %v", err)
	}
	if first.Type != "history" || len(first.History) != 1 {
		t.Fatalf("first frame = %+v", first)
	}

	if err := conn.WriteJSON(wsInbound{Message: "Sam"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var out wsOutbound
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("reading reply frame: %v", err)
	}
	if out.Type != "reply" || out.Reply == nil || !strings.Contains(out.Reply.Message, "Sam") {
		t.Fatalf("reply frame = %+v", out)
	}
}

func TestChatSocket_RequiresToken(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(t))
	defer srv.Close()
	id := startHTTPSession(t, srv.Config.Handler)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/" + id
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("resp = %+v", resp)
	}
}

func TestChatSocket_Origin(t *testing.T) {
	svc, _ := newTestService(t)
	srv := httptest.NewServer(NewHandler(Deps{
		Service:        svc,
		Token:          testToken,
		AllowedOrigins: []string{"http://localhost:3000"},
	}))
	defer srv.Close()
	id := startHTTPSession(t, srv.Config.Handler)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/" + id + "?access_token=" + testToken

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	if err == nil {
		t.Fatal("expected dial from a foreign origin to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("resp = %+v, want 403", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:3000"}})
	if err != nil {
		t.Fatalf("Dial from allowed origin: %v", err)
	}
	conn.Close()
}

func TestCheckOrigin(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws/chat/x", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}
	allowed := checkOrigin([]string{"http://localhost:3000"})
	if !allowed(req("")) {
		t.Error("request without Origin should pass")
	}
	if !allowed(req("HTTP://LOCALHOST:3000")) {
		t.Error("origin match should be case-insensitive")
	}
	if allowed(req("http://localhost:4000")) {
		t.Error("unlisted origin should be rejected")
	}
	if !checkOrigin([]string{"*"})(req("http://anything.example")) {
		t.Error("wildcard should allow any origin")
	}
}

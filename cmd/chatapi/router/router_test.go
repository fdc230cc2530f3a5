package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doha-explorer/cmd/chatapi/llm"
	"doha-explorer/cmd/chatapi/services"
	"doha-explorer/config"
	"doha-explorer/identity"
)

type stubLLM struct {
	reply string
	err   error
}

func (s stubLLM) Model() string { return "stub" }

func (s stubLLM) Generate(_ context.Context, prompt string) (*llm.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Result{Text: s.reply + prompt}, nil
}

func newEngine(t *testing.T, gen llm.Client, requireToken bool) (*gin.Engine, *identity.Verifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	verifier, err := identity.NewVerifier("test-secret", "doha-explorer", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return New(Deps{
		Chat:         services.NewChatService(gen, nil, 20),
		Tokens:       verifier,
		RequireToken: requireToken,
	}), verifier
}

func postChat(h http.Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChatEndpoint(t *testing.T) {
	r, _ := newEngine(t, stubLLM{reply: "you said: "}, false)

	testCases := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{name: "ok", body: `{"message":"  hello "}`, wantStatus: http.StatusOK, wantBody: `{"reply":"you said: hello"}`},
		{name: "missing message", body: `{}`, wantStatus: http.StatusBadRequest, wantBody: `{"error":"invalid_request"}`},
		{name: "malformed json", body: `{"message":`, wantStatus: http.StatusBadRequest, wantBody: `{"error":"invalid_request"}`},
		{name: "blank message", body: `{"message":"   "}`, wantStatus: http.StatusBadRequest, wantBody: `{"error":"invalid_request"}`},
		{name: "too long", body: `{"message":"` + strings.Repeat("a", 21) + `"}`, wantStatus: http.StatusBadRequest, wantBody: `{"error":"message_too_long"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postChat(r, tc.body, nil)
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.JSONEq(t, tc.wantBody, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
		})
	}
}

func TestChatEndpointBackendFailure(t *testing.T) {
	r, _ := newEngine(t, stubLLM{err: errors.New("quota exceeded")}, false)

	rec := postChat(r, `{"message":"hello"}`, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"chat_failed"}`, rec.Body.String())
}

func TestChatEndpointRequiresToken(t *testing.T) {
	r, verifier := newEngine(t, stubLLM{reply: "hi "}, true)

	rec := postChat(r, `{"message":"hello"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := verifier.Sign(identity.Identity{UserID: "uid-1"})
	require.NoError(t, err)
	rec = postChat(r, `{"message":"hello"}`, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthWithoutMongo(t *testing.T) {
	r, _ := newEngine(t, stubLLM{}, false)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealthReportsMongoDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := New(Deps{
		Chat:      services.NewChatService(stubLLM{}, nil, 0),
		PingMongo: func(context.Context) error { return errors.New("no reachable servers") },
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mongo":"down"`)
}

func TestSwaggerDocIsServed(t *testing.T) {
	r, _ := newEngine(t, stubLLM{}, false)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/chat")
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newEngine(t, stubLLM{}, false)
	h := WithCORS(r, config.ServerConfig{AllowedOrigins: []string{"http://localhost:5173"}})

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "content-type")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = preflight("https://evil.example.com")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

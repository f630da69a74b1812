package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/onecard/assistant/internal/audit"
	"github.com/onecard/assistant/internal/log"
	"github.com/onecard/assistant/internal/orchestrator"
	"github.com/onecard/assistant/internal/retrieval"
	"github.com/onecard/assistant/internal/router"
	"github.com/onecard/assistant/internal/session"
	"github.com/onecard/assistant/internal/store"
	"github.com/onecard/assistant/internal/tools"
)

const testOTP = "123456"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixedRetriever struct{ passages []retrieval.Passage }

func (f fixedRetriever) Search(context.Context, string, int) ([]retrieval.Passage, error) {
	return f.passages, nil
}

func newTestServer(t *testing.T) (*Server, *session.MemoryStore, *store.Memory) {
	t.Helper()
	mem, err := store.NewMemory()
	require.NoError(t, err)

	exec := tools.NewExecutor(mem, testOTP, log.NewNop())
	ret := fixedRetriever{passages: []retrieval.Passage{{
		ChunkID: "kb.md#0",
		Text:    "International spends carry a forex markup of 3.5%.",
		Source:  "kb.md",
		LineNo:  3,
		Score:   0.8,
	}}}
	engine := orchestrator.New(router.Heuristic{}, ret, exec, audit.Nop{}, log.NewNop(), testOTP, 3)

	sessions := session.NewMemoryStore()
	return NewServer(sessions, engine, log.NewNop()), sessions, mem
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeTurn(t *testing.T, w *httptest.ResponseRecorder) TurnResponse {
	t.Helper()
	var resp TurnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestCreateAndGetSession(t *testing.T) {
	srv, _, _ := newTestServer(t)
	handler := srv.Handler()

	w := postJSON(t, handler, "/v1/sessions", CreateSessionRequest{UserID: "u1", ClientType: "web"})
	require.Equal(t, http.StatusCreated, w.Code)

	var sess session.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	assert.Equal(t, "u1", sess.UserID)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+sess.ID.String(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateSessionValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	handler := srv.Handler()

	t.Run("missing user_id", func(t *testing.T) {
		w := postJSON(t, handler, "/v1/sessions", CreateSessionRequest{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewBufferString("not json"))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMessageUnknownSession(t *testing.T) {
	srv, _, _ := newTestServer(t)
	handler := srv.Handler()

	w := postJSON(t, handler, "/v1/messages", MessageRequest{
		SessionID: "7f9c38f1-93f8-4af0-9f5f-0a3f5be3f001",
		Message:   "hello",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = postJSON(t, handler, "/v1/messages", MessageRequest{SessionID: "not-a-uuid", Message: "hello"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBlockCardOverHTTP(t *testing.T) {
	srv, sessions, mem := newTestServer(t)
	handler := srv.Handler()
	sess := sessions.Create("u1", "test")

	// 1. Request the block; the gateway asks for confirmation.
	w := postJSON(t, handler, "/v1/messages", MessageRequest{SessionID: sess.ID.String(), Message: "block my card"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeTurn(t, w)
	assert.Contains(t, resp.ResponseText, "YES")

	// 2. Confirm via the structured endpoint; the gateway asks for the OTP.
	w = postJSON(t, handler, "/v1/actions/confirm", ConfirmRequest{SessionID: sess.ID.String(), Confirm: true})
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeTurn(t, w)
	assert.Contains(t, resp.ResponseText, "6-digit OTP is required")

	// 3. Submit the OTP; the card blocks.
	w = postJSON(t, handler, "/v1/actions/otp", OTPRequest{SessionID: sess.ID.String(), OTP: testOTP})
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeTurn(t, w)
	require.NotNil(t, resp.ToolResult)

	acct, err := mem.Account("u1")
	require.NoError(t, err)
	assert.Equal(t, store.CardBlocked, acct.CardStatus)

	// State cleared: the session is idle again.
	got, err := sessions.Get(sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got.State.PendingAction)
	assert.False(t, got.State.AwaitingOTP)
}

func TestToolOutputWireKey(t *testing.T) {
	srv, sessions, _ := newTestServer(t)
	handler := srv.Handler()
	sess := sessions.Create("u1", "test")

	postJSON(t, handler, "/v1/messages", MessageRequest{SessionID: sess.ID.String(), Message: "block my card"})
	postJSON(t, handler, "/v1/actions/confirm", ConfirmRequest{SessionID: sess.ID.String(), Confirm: true})
	w := postJSON(t, handler, "/v1/actions/otp", OTPRequest{SessionID: sess.ID.String(), OTP: testOTP})
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `"tool_output"`)
	assert.NotContains(t, body, `"tool_result"`)
}

func TestConfirmFalseCancels(t *testing.T) {
	srv, sessions, mem := newTestServer(t)
	handler := srv.Handler()
	sess := sessions.Create("u1", "test")

	postJSON(t, handler, "/v1/messages", MessageRequest{SessionID: sess.ID.String(), Message: "block my card"})
	w := postJSON(t, handler, "/v1/actions/confirm", ConfirmRequest{SessionID: sess.ID.String(), Confirm: false})
	resp := decodeTurn(t, w)
	assert.Contains(t, resp.ResponseText, "cancelled")

	acct, err := mem.Account("u1")
	require.NoError(t, err)
	assert.Equal(t, store.CardActive, acct.CardStatus)
}

func TestInfoOverHTTP(t *testing.T) {
	srv, sessions, _ := newTestServer(t)
	handler := srv.Handler()
	sess := sessions.Create("u1", "test")

	w := postJSON(t, handler, "/v1/messages", MessageRequest{
		SessionID: sess.ID.String(),
		Message:   "what is the forex markup for spends abroad?",
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeTurn(t, w)
	assert.Contains(t, resp.ResponseText, "(Source: kb.md, line 3)")
}

func TestMessageValidation(t *testing.T) {
	srv, sessions, _ := newTestServer(t)
	handler := srv.Handler()
	sess := sessions.Create("u1", "test")

	w := postJSON(t, handler, "/v1/messages", MessageRequest{SessionID: sess.ID.String(), Message: ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	long := make([]byte, MaxMessageLength+1)
	for i := range long {
		long[i] = 'a'
	}
	w = postJSON(t, handler, "/v1/messages", MessageRequest{SessionID: sess.ID.String(), Message: string(long)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := chain(panicking, recoveryMiddleware(log.NewNop()), loggingMiddleware(log.NewNop()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRunShutsDownOnContextCancel(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, "127.0.0.1:0") }()

	cancel()
	err := <-done
	assert.NoError(t, err)
}

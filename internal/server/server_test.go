package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikkelr/chat-with-PDF/internal/chat"
	"github.com/nikkelr/chat-with-PDF/internal/config"
	"github.com/nikkelr/chat-with-PDF/internal/index"
	"github.com/nikkelr/chat-with-PDF/internal/llm"
	"github.com/nikkelr/chat-with-PDF/internal/models"
	"github.com/nikkelr/chat-with-PDF/internal/processor"
	"github.com/nikkelr/chat-with-PDF/internal/processor/pdftest"
	"github.com/nikkelr/chat-with-PDF/internal/session"
)

type constEmbedder struct{}

func (constEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = []float64{float64(len(text)), 1}
	}
	return out, nil
}

func (constEmbedder) ModelName() string { return "fake/const" }

type scriptedBackend struct {
	mu     sync.Mutex
	answer string
	err    error
}

func (b *scriptedBackend) Complete(context.Context, string, llm.Options) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.answer, b.err
}

func (b *scriptedBackend) ModelName() string { return "fake/scripted" }

type harness struct {
	server     *Server
	handler    http.Handler
	backend    *scriptedBackend
	configured bool
}

func newHarness(t *testing.T, mutate func(*config.ServerConfig)) *harness {
	t.Helper()
	chunker, err := processor.NewChunker(1000, 200)
	require.NoError(t, err)

	h := &harness{backend: &scriptedBackend{answer: "Two years."}, configured: true}
	svc := chat.NewService(
		chunker,
		index.NewIndexer(constEmbedder{}, nil),
		index.NewRetriever(constEmbedder{}, 4),
		llm.NewAnswerGenerator(h.backend, llm.Options{Temperature: 0.7}),
		session.NewStore(),
		func() bool { return h.configured },
	)

	cfg := config.Default().Server
	if mutate != nil {
		mutate(&cfg)
	}
	h.server = New(svc, cfg)
	h.handler = h.server.Handler()
	return h
}

func (h *harness) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newAskRequest(sessionID, question string) *http.Request {
	body, _ := json.Marshal(map[string]string{"session_id": sessionID, "question": question})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (h *harness) upload(t *testing.T) models.UploadResult {
	t.Helper()
	rec := h.do(t, uploadRequest(t, "manual.pdf", pdftest.Build("The warranty lasts two years.")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[models.UploadResult](t, rec)
}

func TestRoot(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[rootResponse](t, rec)
	assert.Equal(t, APIName, body.Message)
	assert.Equal(t, APIVersion, body.Version)
	assert.Equal(t, "/sessions/{session_id}", body.Endpoints["session_detail"])

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","api_configured":true}`, rec.Body.String())

	h.configured = false
	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"not_configured","api_configured":false}`, rec.Body.String())
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	up := h.upload(t)
	assert.Equal(t, "PDF processed successfully", up.Message)
	assert.Equal(t, "manual.pdf", up.PDFName)
	assert.Equal(t, 1, up.NumChunks)

	rec := h.do(t, newAskRequest(up.SessionID, "How long is the warranty?"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var answer map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.Equal(t, "Two years.", answer["answer"])
	assert.Equal(t, up.SessionID, answer["session_id"])
	ts, ok := answer["timestamp"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339Nano, ts)
	assert.NoError(t, err)
	assert.NotContains(t, answer, "Sources")

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.SessionInfo](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, up.SessionID, list[0].SessionID)
	assert.NotContains(t, rec.Body.String(), "chat_history")

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/sessions/"+up.SessionID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[models.SessionDetail](t, rec)
	assert.Equal(t, "manual.pdf", detail.PDFName)
	require.Len(t, detail.ChatHistory, 1)
	assert.Equal(t, "How long is the warranty?", detail.ChatHistory[0].Question)
	assert.Contains(t, detail.SampleText, "The warranty lasts two years.")

	rec = h.do(t, httptest.NewRequest(http.MethodDelete, "/sessions/"+up.SessionID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Session `+up.SessionID+` deleted successfully"}`, rec.Body.String())

	rec = h.do(t, httptest.NewRequest(http.MethodDelete, "/sessions/"+up.SessionID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, newAskRequest(up.SessionID, "Still there?"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		configured bool
		wantStatus int
		wantKind   models.Kind
	}{
		{
			name:       "not a pdf",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "notes.txt", []byte("hello")) },
			configured: true,
			wantStatus: http.StatusBadRequest,
			wantKind:   models.KindInvalidInput,
		},
		{
			name:       "unreadable pdf",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "broken.pdf", []byte("%PDF-garbage")) },
			configured: true,
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   models.KindExtraction,
		},
		{
			name: "missing file field",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("x=1"))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return req
			},
			configured: true,
			wantStatus: http.StatusBadRequest,
			wantKind:   models.KindInvalidInput,
		},
		{
			name:       "credential missing",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "a.pdf", pdftest.Build("text")) },
			configured: false,
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   models.KindNotConfigured,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.configured = tt.configured

			rec := h.do(t, tt.req(t))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			body := decode[errorResponse](t, rec)
			assert.Equal(t, tt.wantKind, body.Error.Kind)
			assert.NotEmpty(t, body.Error.Message)

			list := h.do(t, httptest.NewRequest(http.MethodGet, "/sessions", nil))
			assert.JSONEq(t, `[]`, list.Body.String())
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	h := newHarness(t, func(c *config.ServerConfig) { c.MaxUploadMB = 1 })
	rec := h.do(t, uploadRequest(t, "big.pdf", bytes.Repeat([]byte("a"), 2<<20)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, models.KindInvalidInput, decode[errorResponse](t, rec).Error.Kind)
}

func TestAskErrors(t *testing.T) {
	h := newHarness(t, nil)
	up := h.upload(t)

	tests := []struct {
		name       string
		req        *http.Request
		backendErr error
		wantStatus int
		wantKind   models.Kind
		check      func(t *testing.T, body errorResponse)
	}{
		{
			name:       "unknown session",
			req:        newAskRequest("abc", "anything?"),
			wantStatus: http.StatusNotFound,
			wantKind:   models.KindNotFound,
		},
		{
			name:       "empty question",
			req:        newAskRequest(up.SessionID, "  "),
			wantStatus: http.StatusBadRequest,
			wantKind:   models.KindInvalidInput,
		},
		{
			name:       "missing session id",
			req:        newAskRequest("", "anything?"),
			wantStatus: http.StatusBadRequest,
			wantKind:   models.KindInvalidInput,
		},
		{
			name:       "malformed json",
			req:        httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader("{")),
			wantStatus: http.StatusBadRequest,
			wantKind:   models.KindInvalidInput,
		},
		{
			name:       "rejected credential",
			req:        newAskRequest(up.SessionID, "anything?"),
			backendErr: &models.Error{Kind: models.KindUpstream, Message: "unauthorized", Status: http.StatusUnauthorized},
			wantStatus: http.StatusBadGateway,
			wantKind:   models.KindUpstream,
			check: func(t *testing.T, body errorResponse) {
				assert.Equal(t, http.StatusUnauthorized, body.Error.UpstreamStatus)
				assert.True(t, body.Error.Auth)
			},
		},
		{
			name:       "upstream timeout",
			req:        newAskRequest(up.SessionID, "anything?"),
			backendErr: &models.Error{Kind: models.KindUpstream, Message: "deadline exceeded", Timeout: true},
			wantStatus: http.StatusGatewayTimeout,
			wantKind:   models.KindUpstream,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.backend.mu.Lock()
			h.backend.err = tt.backendErr
			h.backend.mu.Unlock()

			rec := h.do(t, tt.req)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			body := decode[errorResponse](t, rec)
			assert.Equal(t, tt.wantKind, body.Error.Kind)
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/sessions/"+up.SessionID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[models.SessionDetail](t, rec).ChatHistory)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(models.KindEmptyInput, false))
	assert.Equal(t, http.StatusBadRequest, statusFor(models.KindInvalidConfiguration, false))
	assert.Equal(t, http.StatusBadGateway, statusFor(models.KindEmbedding, false))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(models.KindEmbedding, true))
	assert.Equal(t, http.StatusInternalServerError, statusFor(models.KindInternal, false))
}

func TestCORS(t *testing.T) {
	t.Run("wildcard", func(t *testing.T) {
		h := newHarness(t, nil)
		req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
		req.Header.Set("Origin", "http://localhost:8501")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		rec := h.do(t, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("allow list", func(t *testing.T) {
		h := newHarness(t, func(c *config.ServerConfig) { c.CORSOrigins = []string{"http://app.test"} })

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://app.test")
		rec := h.do(t, req)
		assert.Equal(t, "http://app.test", rec.Header().Get("Access-Control-Allow-Origin"))

		req = httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://evil.test")
		rec = h.do(t, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestServeShutsDownOnCancel(t *testing.T) {
	h := newHarness(t, func(c *config.ServerConfig) { c.ShutdownTimeout = time.Second })
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.server.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikkelr/chat-with-PDF/internal/models"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		timeout bool
	}{
		{name: "nil", err: nil},
		{name: "ollama status error", err: api.StatusError{StatusCode: 404, Status: "404 Not Found", ErrorMessage: "model not found"}, status: 404},
		{name: "wrapped ollama status error", err: fmt.Errorf("embed: %w", api.StatusError{StatusCode: 500}), status: 500},
		{name: "openai compatible message", err: errors.New("error, status code: 401, status: 401 Unauthorized, message: invalid api key"), status: 401},
		{name: "deadline", err: fmt.Errorf("generate: %w", context.DeadlineExceeded), timeout: true},
		{name: "plain", err: errors.New("connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, timeout := Status(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.timeout, timeout)
		})
	}
}

func TestClassify(t *testing.T) {
	cause := errors.New("error, status code: 403, status: 403 Forbidden, message: key disabled")
	err := Classify(models.KindUpstream, cause, "chat completion with %s", "gpt")

	assert.ErrorIs(t, err, models.ErrUpstream)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 403, err.Status)
	assert.True(t, err.IsAuth())
	assert.False(t, err.Temporary())
}

func TestOllamaClient(t *testing.T) {
	client, err := OllamaClient("http://localhost:11434", nil)
	require.NoError(t, err)
	assert.NotNil(t, client)

	_, err = OllamaClient("://bad", nil)
	assert.Error(t, err)
}

func TestOllamaClientKeepsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/generate":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
		case "/api/embed":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("bad gateway\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	base := &http.Client{}
	client, err := OllamaClient(server.URL, base)
	require.NoError(t, err)
	assert.Nil(t, base.Transport, "caller's client is left untouched")

	err = client.Generate(context.Background(), &api.GenerateRequest{Model: "llama3", Prompt: "hi"},
		func(api.GenerateResponse) error { return nil })
	e := Classify(models.KindUpstream, err, "generate")
	assert.Equal(t, http.StatusUnauthorized, e.Status)
	assert.True(t, e.IsAuth())
	assert.Contains(t, e.Error(), "unauthorized")

	_, err = client.Embed(context.Background(), &api.EmbedRequest{Model: "m", Input: "x"})
	var statusErr api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "bad gateway", statusErr.ErrorMessage)
	status, timeout := Status(err)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.False(t, timeout)
}

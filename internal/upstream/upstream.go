// Package upstream holds helpers shared by the clients that talk to model
// providers: Ollama client construction and failure classification.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/nikkelr/chat-with-PDF/internal/models"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// statusCodeRe matches the status reported by OpenAI-compatible client errors,
// e.g. "error, status code: 401, status: 401 Unauthorized, message: ...".
var statusCodeRe = regexp.MustCompile(`status code: (\d{3})`)

// maxErrorBody caps how much of a failed response is kept as the error message.
const maxErrorBody = 64 << 10

// OllamaClient creates an Ollama API client for host, falling back to OLLAMA_HOST.
// Error responses surface as api.StatusError on every endpoint, streaming ones included.
func OllamaClient(host string, httpClient *http.Client) (*api.Client, error) {
	hostURL := envconfig.Host()
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		hostURL = u
	}
	client := &http.Client{}
	if httpClient != nil {
		c := *httpClient
		client = &c
	}
	client.Transport = statusTransport{base: client.Transport}
	return api.NewClient(hostURL, client), nil
}

// statusTransport fails requests whose response status is 400 or above with an
// api.StatusError carrying the code and the server's error text.
type statusTransport struct {
	base http.RoundTripper
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil || resp.StatusCode < http.StatusBadRequest {
		return resp, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	statusErr := api.StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		statusErr.ErrorMessage = payload.Error
	} else {
		statusErr.ErrorMessage = strings.TrimSpace(string(body))
	}
	return nil, statusErr
}

// Classify turns a provider failure into a typed error of the given kind,
// carrying the upstream HTTP status and whether the call timed out.
func Classify(kind models.Kind, err error, format string, args ...any) *models.Error {
	e := models.WrapError(kind, err, format, args...)
	e.Status, e.Timeout = Status(err)
	return e
}

// Status extracts the upstream HTTP status code and timeout flag from err
func Status(err error) (status int, timeout bool) {
	if err == nil {
		return 0, false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		timeout = true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, timeout
	}

	if m := statusCodeRe.FindStringSubmatch(err.Error()); m != nil {
		status, _ = strconv.Atoi(m[1])
	}
	return status, timeout
}

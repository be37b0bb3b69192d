package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/nikkelr/chat-with-PDF/internal/models"
)

type errorDetail struct {
	Kind           models.Kind `json:"kind"`
	Message        string      `json:"message"`
	UpstreamStatus int         `json:"upstream_status,omitempty"`
	Auth           bool        `json:"auth,omitempty"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

// statusFor maps a failure kind onto the HTTP status returned to clients.
func statusFor(kind models.Kind, timeout bool) int {
	switch kind {
	case models.KindInvalidInput, models.KindInvalidConfiguration, models.KindEmptyInput:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindExtraction:
		return http.StatusUnprocessableEntity
	case models.KindNotConfigured:
		return http.StatusServiceUnavailable
	case models.KindEmbedding, models.KindUpstream:
		if timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// asModelError finds the typed error in err's chain. Untyped errors become internal errors.
func asModelError(err error) *models.Error {
	var me *models.Error
	if errors.As(err, &me) {
		return me
	}
	return &models.Error{Kind: models.KindInternal, Message: "internal error", Err: err}
}

func errorBody(me *models.Error) errorResponse {
	msg := me.Message
	if me.Err != nil && me.Kind != models.KindInternal {
		msg += ": " + me.Err.Error()
	}
	return errorResponse{Error: errorDetail{
		Kind:           me.Kind,
		Message:        msg,
		UpstreamStatus: me.Status,
		Auth:           me.IsAuth(),
	}}
}

func writeError(w http.ResponseWriter, err error) {
	me := asModelError(err)
	status := statusFor(me.Kind, me.Timeout)
	if status >= http.StatusInternalServerError {
		log.Printf("Request failed (%d): %v", status, err)
	}
	writeJSON(w, status, errorBody(me))
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nikkelr/chat-with-PDF/internal/models"
)

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type rootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message: APIName,
		Version: APIVersion,
		Endpoints: map[string]string{
			"health":         "/health",
			"upload":         "/upload",
			"ask":            "/ask",
			"sessions":       "/sessions",
			"session_detail": "/sessions/{session_id}",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody(models.NewError(models.KindInvalidInput,
				"upload exceeds the %d MiB limit", s.maxUploadBytes>>20)))
			return
		}
		writeError(w, models.WrapError(models.KindInvalidInput, err, "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, models.WrapError(models.KindInvalidInput, err, "reading upload %s", header.Filename))
		return
	}

	res, err := s.svc.Upload(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(w, r, &req, maxAskBody); err != nil {
		writeError(w, models.WrapError(models.KindInvalidInput, err, "invalid JSON"))
		return
	}
	if req.SessionID == "" {
		writeError(w, models.NewError(models.KindInvalidInput, "session_id is required"))
		return
	}

	answer, err := s.svc.Ask(r.Context(), req.SessionID, req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := s.svc.ListSessions()
	if sessions == nil {
		sessions = []models.SessionInfo{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	detail, err := s.svc.GetSession(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.DeleteSession(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Session %s deleted successfully", id)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any, maxBytes int64) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

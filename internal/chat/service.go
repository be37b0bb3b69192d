// Package chat ties ingestion, retrieval and answering together behind the
// operations exposed to clients: upload, ask, list, detail, delete and health.
package chat

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikkelr/chat-with-PDF/internal/index"
	"github.com/nikkelr/chat-with-PDF/internal/llm"
	"github.com/nikkelr/chat-with-PDF/internal/models"
	"github.com/nikkelr/chat-with-PDF/internal/processor"
	"github.com/nikkelr/chat-with-PDF/internal/session"
)

// SampleTextLimit bounds the document preview returned with session details.
const SampleTextLimit = 500

const (
	StatusHealthy       = "healthy"
	StatusNotConfigured = "not_configured"
)

// Service is the document question-answering pipeline. All methods are safe
// for concurrent use.
type Service struct {
	Chunker   *processor.Chunker
	Indexer   *index.Indexer
	Retriever *index.Retriever
	Generator *llm.AnswerGenerator
	Sessions  *session.Store
	// Configured reports whether the language model credential is usable.
	Configured func() bool

	now func() time.Time
}

// NewService wires the pipeline components around a session store.
func NewService(chunker *processor.Chunker, indexer *index.Indexer, retriever *index.Retriever,
	generator *llm.AnswerGenerator, sessions *session.Store, configured func() bool) *Service {
	if configured == nil {
		configured = func() bool { return true }
	}
	return &Service{
		Chunker:    chunker,
		Indexer:    indexer,
		Retriever:  retriever,
		Generator:  generator,
		Sessions:   sessions,
		Configured: configured,
		now:        time.Now,
	}
}

// Upload extracts, chunks and indexes a PDF and opens a new session for it.
// Nothing is kept when any step fails.
func (s *Service) Upload(ctx context.Context, filename string, data []byte) (*models.UploadResult, error) {
	if !s.Configured() {
		return nil, models.NewError(models.KindNotConfigured,
			"language model API key not configured; set OPENROUTER_API_KEY in the environment or .env file")
	}
	name := filepath.Base(strings.TrimSpace(filename))
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return nil, models.NewError(models.KindInvalidInput, "only PDF files are supported (got %q)", filename)
	}
	if len(data) == 0 {
		return nil, models.NewError(models.KindInvalidInput, "uploaded file %s is empty", name)
	}

	start := time.Now()
	doc, err := processor.ExtractText(data)
	if err != nil {
		return nil, err
	}

	chunks := s.Chunker.Split(doc.Text)

	id := session.NewID()
	idx, err := s.Indexer.Build(ctx, id, chunks)
	if err != nil {
		return nil, err
	}

	sess := s.Sessions.Create(id, name, doc.Text, idx)
	log.Printf("Created session %s for %s: %d pages, %d chunks in %v",
		sess.ID, name, doc.Pages, len(chunks), time.Since(start).Round(time.Millisecond))

	return &models.UploadResult{
		SessionID: sess.ID,
		Message:   "PDF processed successfully",
		PDFName:   name,
		NumChunks: len(chunks),
	}, nil
}

// Ask answers a question about a session's document and records the turn.
// Asks on one session run one at a time, so the history follows completion
// order. Once started, an ask is not abandoned when ctx is cancelled; the
// provider timeouts bound it instead.
func (s *Service) Ask(ctx context.Context, sessionID, question string) (*models.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, models.NewError(models.KindInvalidInput, "question must not be empty")
	}

	sess, err := s.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	var sources []models.ScoredChunk
	turn, err := sess.Exchange(func(idx index.Index) (models.ChatTurn, error) {
		retrieved, err := s.Retriever.Retrieve(ctx, idx, question)
		if err != nil {
			return models.ChatTurn{}, err
		}
		answer, err := s.Generator.Answer(ctx, question, retrieved)
		if err != nil {
			return models.ChatTurn{}, err
		}
		sources = retrieved
		return models.ChatTurn{Question: question, Answer: answer, Timestamp: s.now().UTC()}, nil
	})
	if err != nil {
		return nil, err
	}

	return &models.Answer{
		Answer:    turn.Answer,
		SessionID: sessionID,
		Timestamp: turn.Timestamp,
		Sources:   sources,
	}, nil
}

// ListSessions summarizes every live session without chat content.
func (s *Service) ListSessions() []models.SessionInfo {
	return s.Sessions.List()
}

// GetSession returns a session's history and a preview of its document text.
func (s *Service) GetSession(sessionID string) (*models.SessionDetail, error) {
	sess, err := s.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return &models.SessionDetail{
		SessionInfo: sess.Info(),
		ChatHistory: sess.History(),
		SampleText:  processor.Preview(sess.Text, SampleTextLimit),
	}, nil
}

// DeleteSession removes a session and releases its index.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.Sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	log.Printf("Deleted session %s", sessionID)
	return nil
}

// Health reports whether the language model can be used, without calling it.
func (s *Service) Health() models.Health {
	if s.Configured() {
		return models.Health{Status: StatusHealthy, APIConfigured: true}
	}
	return models.Health{Status: StatusNotConfigured, APIConfigured: false}
}

// Close releases every session.
func (s *Service) Close(ctx context.Context) {
	s.Sessions.CloseAll(ctx)
}

package models

import "time"

// TextChunk represents a chunk of text from the PDF
type TextChunk struct {
	Position int    `json:"position"`
	Content  string `json:"content"`
	// Start and End are code point offsets into the extracted document text.
	Start int `json:"start"`
	End   int `json:"end"`
}

// ScoredChunk is a chunk returned by a similarity search
type ScoredChunk struct {
	Chunk TextChunk `json:"chunk"`
	Score float64   `json:"score"`
}

// ChatTurn is one question/answer exchange recorded on a session
type ChatTurn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// UploadResult is returned after a PDF has been ingested into a new session
type UploadResult struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	PDFName   string `json:"pdf_name"`
	NumChunks int    `json:"num_chunks"`
}

// Answer represents the response to a question
type Answer struct {
	Answer    string        `json:"answer"`
	SessionID string        `json:"session_id"`
	Timestamp time.Time     `json:"timestamp"`
	Sources   []ScoredChunk `json:"-"`
}

// SessionInfo is the chat-free summary of a live session
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	PDFName   string    `json:"pdf_name"`
	NumChunks int       `json:"num_chunks"`
}

// SessionDetail includes the chat history and a preview of the extracted text
type SessionDetail struct {
	SessionInfo
	ChatHistory []ChatTurn `json:"chat_history"`
	SampleText  string     `json:"sample_text"`
}

// Health reports whether the language model backend is usable
type Health struct {
	Status        string `json:"status"`
	APIConfigured bool   `json:"api_configured"`
}

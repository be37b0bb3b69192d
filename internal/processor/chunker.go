// internal/processor/chunker.go
package processor

import (
	"github.com/nikkelr/chat-with-PDF/internal/models"
)

const (
	// DefaultChunkSize is the default number of characters per chunk
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the default number of characters shared by neighbouring chunks
	DefaultChunkOverlap = 200
)

// separators in order of preference: paragraph, line, sentence, word
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("? "),
	[]rune("! "),
	[]rune(" "),
}

// Chunker splits document text into overlapping fixed-size windows
type Chunker struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewChunker creates a new chunker
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 || chunkOverlap <= 0 {
		return nil, models.NewError(models.KindInvalidConfiguration,
			"chunk size and overlap must be positive (size=%d, overlap=%d)", chunkSize, chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, models.NewError(models.KindInvalidConfiguration,
			"chunk overlap %d must be smaller than chunk size %d", chunkOverlap, chunkSize)
	}

	return &Chunker{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	}, nil
}

// Split cuts text into chunks. Chunk i starts i*(size-overlap) characters into
// the text; its end is pulled back to the best separator that still reaches
// the start of chunk i+1, so no text is lost between neighbours.
func (c *Chunker) Split(text string) []models.TextChunk {
	runes := []rune(text)
	n := len(runes)

	if n <= c.ChunkSize {
		return []models.TextChunk{{Position: 0, Content: text, Start: 0, End: n}}
	}

	step := c.ChunkSize - c.ChunkOverlap
	chunks := make([]models.TextChunk, 0, n/step+1)

	for start := 0; start < n; start += step {
		end := start + c.ChunkSize
		if end >= n {
			end = n
		} else {
			end = boundary(runes, start+step, end)
		}

		chunks = append(chunks, models.TextChunk{
			Position: len(chunks),
			Content:  string(runes[start:end]),
			Start:    start,
			End:      end,
		})
	}

	return chunks
}

// boundary returns the largest end in [lo, hi] that falls right after the
// highest-priority separator found, or hi when there is none.
func boundary(runes []rune, lo, hi int) int {
	for _, sep := range separators {
		for end := hi; end >= lo; end-- {
			at := end - len(sep)
			if at < 0 {
				break
			}
			if hasPrefixAt(runes, at, sep) {
				return end
			}
		}
	}
	return hi
}

func hasPrefixAt(runes []rune, at int, sep []rune) bool {
	for i, r := range sep {
		if runes[at+i] != r {
			return false
		}
	}
	return true
}

// Reassemble joins chunks back into the text they were cut from
func Reassemble(chunks []models.TextChunk) string {
	var out []rune
	covered := 0
	for _, chunk := range chunks {
		runes := []rune(chunk.Content)
		skip := covered - chunk.Start
		if skip < 0 {
			skip = 0
		}
		if skip < len(runes) {
			out = append(out, runes[skip:]...)
		}
		if chunk.End > covered {
			covered = chunk.End
		}
	}
	return string(out)
}

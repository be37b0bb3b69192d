package processor

import (
	"github.com/nikkelr/chat-with-PDF/internal/models"
)

// ChunkStats summarises a chunk list
type ChunkStats struct {
	Total      int
	MinLength  int
	MaxLength  int
	AvgLength  float64
	AvgOverlap float64
}

// Stats computes length and overlap statistics over chunks
func Stats(chunks []models.TextChunk) ChunkStats {
	var stats ChunkStats
	if len(chunks) == 0 {
		return stats
	}

	stats.Total = len(chunks)
	stats.MinLength = chunks[0].End - chunks[0].Start

	totalLength := 0
	totalOverlap := 0
	for i, chunk := range chunks {
		length := chunk.End - chunk.Start
		totalLength += length
		if length < stats.MinLength {
			stats.MinLength = length
		}
		if length > stats.MaxLength {
			stats.MaxLength = length
		}

		if i > 0 && chunks[i-1].End > chunk.Start {
			totalOverlap += chunks[i-1].End - chunk.Start
		}
	}

	stats.AvgLength = float64(totalLength) / float64(len(chunks))
	if len(chunks) > 1 {
		stats.AvgOverlap = float64(totalOverlap) / float64(len(chunks)-1)
	}

	return stats
}

package llm

import (
	"strings"

	"github.com/nikkelr/chat-with-PDF/internal/models"
)

const instruction = "Use the following pieces of context from the document to answer the question at the end. " +
	"If you don't know the answer based on the context, just say that you don't have enough information " +
	"in the document to answer this question."

// GeneratePrompt creates a prompt for the LLM with the retrieved chunks in rank order
func GeneratePrompt(question string, contexts []models.ScoredChunk) string {
	var promptBuilder strings.Builder

	promptBuilder.WriteString(instruction)
	promptBuilder.WriteString("\n\nContext from the document:\n")
	for i, c := range contexts {
		if i > 0 {
			promptBuilder.WriteString("\n\n")
		}
		promptBuilder.WriteString(c.Chunk.Content)
	}

	promptBuilder.WriteString("\n\nQuestion: " + question + "\n\n")
	promptBuilder.WriteString("Answer based on the document:")

	return promptBuilder.String()
}

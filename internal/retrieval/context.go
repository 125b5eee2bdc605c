package retrieval

import (
	"fmt"
	"strings"
)

// blockDelimiter separates document excerpts in the assembled context.
const blockDelimiter = "\n\n---\n\n"

// BuildContext renders at most maxChunks retrieved chunks into the excerpt
// block given to the model. Each chunk is prefixed with its document title so
// the model can cite sources. Empty input yields the empty string.
func BuildContext(chunks []Chunk, maxChunks int) string {
	if maxChunks <= 0 {
		maxChunks = 10
	}
	if len(chunks) > maxChunks {
		chunks = chunks[:maxChunks]
	}

	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		title := c.Title
		if title == "" {
			title = fmt.Sprintf("Document %d", c.DocumentID)
		}
		parts = append(parts, fmt.Sprintf("[Document: %s]\n%s", title, c.Content))
	}
	return strings.Join(parts, blockDelimiter)
}

// WrapQuestion embeds the context block and the user's question into a single
// user message. With no context the question passes through untouched.
func WrapQuestion(contextText, question string) string {
	if contextText == "" {
		return question
	}
	return fmt.Sprintf(
		"I have access to the following document excerpts that might be relevant to your question:\n\n%s\n\nBased on this information, please answer: %s",
		contextText, question)
}

// Package formfill fills form fields from a firm's documents: the field names
// drive retrieval, and the model extracts each value from the retrieved
// excerpts.
package formfill

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"lexvault/internal/chat"
	"lexvault/internal/llm"
	"lexvault/internal/retrieval"
)

const systemPrompt = "You are a legal assistant that fills out form fields based on document context. " +
	"Extract the appropriate information from the context to fill each field. " +
	"If the information is not available, leave the field blank."

// Field is one form field to fill.
type Field struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Request is a form to fill within a scope. Scope.DocumentIDs narrows the
// context to specific documents when set.
type Request struct {
	Fields []Field
	Scope  retrieval.Scope
}

// Result carries the extracted field values keyed by field name. Fields the
// documents don't answer are absent or empty.
type Result struct {
	Values  map[string]string `json:"values"`
	Sources []chat.Source     `json:"sources"`
}

// Filler wires retrieval and completion for form filling.
type Filler struct {
	retriever chat.Retriever
	client    llm.Client
	topK      int
	logger    *slog.Logger
}

func New(retriever chat.Retriever, client llm.Client, topK int, logger *slog.Logger) *Filler {
	if topK <= 0 {
		topK = 10
	}
	return &Filler{retriever: retriever, client: client, topK: topK, logger: logger}
}

// Fill retrieves context relevant to the field names and asks the model for
// a JSON object of field values.
func (f *Filler) Fill(ctx context.Context, req Request) (Result, error) {
	if len(req.Fields) == 0 {
		return Result{Values: map[string]string{}}, nil
	}

	names := make([]string, len(req.Fields))
	for i, field := range req.Fields {
		names[i] = field.Name
	}
	query := "Form fields: " + strings.Join(names, ", ")

	retrieved, err := f.retriever.Retrieve(ctx, query, req.Scope, f.topK)
	if err != nil {
		return Result{}, fmt.Errorf("retrieval failed: %w", err)
	}

	var contextParts []string
	for _, c := range retrieved.Chunks {
		contextParts = append(contextParts, c.Content)
	}
	documentContext := strings.Join(contextParts, "\n\n---\n\n")

	messages := []llm.Message{
		llm.System(systemPrompt),
		llm.User(fillPrompt(req.Fields, documentContext)),
	}
	answer, err := f.client.Complete(ctx, messages)
	if err != nil {
		return Result{}, fmt.Errorf("completion failed: %w", err)
	}

	values := map[string]string{}
	if err := llm.ExtractJSONObject(answer, &values); err != nil {
		return Result{}, fmt.Errorf("model returned unparseable field values: %w", err)
	}

	res := Result{Values: values, Sources: make([]chat.Source, 0, len(retrieved.Chunks))}
	for _, c := range retrieved.Chunks {
		res.Sources = append(res.Sources, chat.Source{
			DocumentID: c.DocumentID, ChunkID: c.ID, Title: c.Title, Score: c.Score,
		})
	}
	return res, nil
}

func fillPrompt(fields []Field, documentContext string) string {
	var lines []string
	for _, field := range fields {
		lines = append(lines, fmt.Sprintf("- %s: %s", field.Name, field.Description))
	}
	return fmt.Sprintf(
		"Please fill out the following form fields based on this document context. "+
			"Return your response as a JSON object with field names as keys and field values as values.\n\n"+
			"Form Fields:\n%s\n\nDocument Context:\n%s",
		strings.Join(lines, "\n"), documentContext)
}

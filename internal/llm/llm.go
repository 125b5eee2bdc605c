package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a role-tagged chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Client is the completion boundary. Stream delivers deltas incrementally
// through onDelta and returns the full concatenated text once the stream
// completes, so callers can persist the final assembled message.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Stream(ctx context.Context, messages []Message, onDelta func(delta string) error) (string, error)
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// ExtractJSONObject pulls the first {...} block out of a model response and
// unmarshals it into dst. Models wrap JSON in prose or code fences often
// enough that naive unmarshaling of the whole response fails.
func ExtractJSONObject(content string, dst any) error {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), dst); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"lexvault/internal/embeddings"
	"lexvault/internal/retry"
)

const defaultChatTemperature = 0.7

// OpenAIClient calls the OpenAI Chat Completions API.
type OpenAIClient struct {
	model  openai.ChatModel
	client *openai.Client
	policy retry.Policy
}

// NewOpenAIClient builds a client with defaults against api.openai.com.
func NewOpenAIClient(apiKey, model string, policy retry.Policy) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	if policy.Retryable == nil {
		policy.Retryable = embeddings.IsTransient
	}
	cli := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{
		model:  openai.ChatModel(model),
		client: &cli,
		policy: policy,
	}, nil
}

// Complete returns the full response text for the message list.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("nil openai client")
	}

	var resp *openai.ChatCompletion
	err := c.policy.Do(ctx, func() error {
		var callErr error
		resp, callErr = c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:       c.model,
			Messages:    toOpenAIMessages(messages),
			Temperature: openai.Float(defaultChatTemperature),
		})
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream delivers deltas through onDelta and returns the assembled text.
// A stream is not resumed on failure; the retry policy only covers opening it.
func (c *OpenAIClient) Stream(ctx context.Context, messages []Message, onDelta func(string) error) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("nil openai client")
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: openai.Float(defaultChatTemperature),
	})
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return full.String(), fmt.Errorf("delta handler failed: %w", err)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return full.String(), fmt.Errorf("stream failed: %w", err)
	}
	return full.String(), nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

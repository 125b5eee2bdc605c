package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of Client using testify/mock.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Complete(ctx context.Context, messages []Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

func (m *MockClient) Stream(ctx context.Context, messages []Message, onDelta func(string) error) (string, error) {
	args := m.Called(ctx, messages, onDelta)
	return args.String(0), args.Error(1)
}

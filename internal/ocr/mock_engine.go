package ocr

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEngine is a mock implementation of Engine using testify/mock.
type MockEngine struct {
	mock.Mock
	EngineName string
}

func (m *MockEngine) Recognize(ctx context.Context, path string) (Result, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(Result), args.Error(1)
}

func (m *MockEngine) Name() string {
	if m.EngineName == "" {
		return "mock"
	}
	return m.EngineName
}

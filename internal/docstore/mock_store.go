package docstore

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetDocument(ctx context.Context, id int64) (Document, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) SetFlags(ctx context.Context, id int64, update FlagUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

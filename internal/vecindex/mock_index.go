package vecindex

import (
	"context"

	"github.com/stretchr/testify/mock"

	"lexvault/internal/embeddings"
)

// MockIndex is a mock implementation of Index using testify/mock.
type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) Upsert(ctx context.Context, records []Record) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockIndex) Query(ctx context.Context, vector embeddings.Vector, topK int, filter Filter) ([]Match, error) {
	args := m.Called(ctx, vector, topK, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Match), args.Error(1)
}

func (m *MockIndex) DeleteByIDs(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockIndex) DeleteByDocument(ctx context.Context, documentID int64) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

package mocks

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/mock"
)

type MockAccessor struct {
	mock.Mock
}

func (m *MockAccessor) Exists(ctx context.Context, bucket, object string) (bool, error) {
	args := m.Called(ctx, bucket, object)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessor) FetchBytes(ctx context.Context, bucket, object string) ([]byte, error) {
	args := m.Called(ctx, bucket, object)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockAccessor) FetchText(ctx context.Context, bucket, object string) (string, error) {
	args := m.Called(ctx, bucket, object)
	return args.String(0), args.Error(1)
}

func (m *MockAccessor) Locator(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

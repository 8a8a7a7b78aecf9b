package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"msgcounter/internal/domain"
	"msgcounter/pkg/logger"
	"msgcounter/pkg/redis"
)

// MockUserResolver for testing
type MockUserResolver struct {
	mock.Mock
}

func (m *MockUserResolver) DisplayName(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func setupNameCache(t *testing.T) (*miniredis.Miniredis, *redis.Client, *MockUserResolver, UserResolver) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://"+mr.Addr(), "production", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	inner := &MockUserResolver{}
	return mr, client, inner, NewCachedResolver(inner, client, time.Minute, logger.NewNop())
}

func TestCachedResolver_MissThenHit(t *testing.T) {
	mr, _, inner, resolver := setupNameCache(t)
	ctx := context.Background()

	inner.On("DisplayName", mock.Anything, "42").Return("Alice", nil).Once()

	name, err := resolver.DisplayName(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	cached, err := mr.Get("prod:names:42")
	require.NoError(t, err)
	assert.Equal(t, "Alice", cached)
	assert.Equal(t, time.Minute, mr.TTL("prod:names:42"))

	name, err = resolver.DisplayName(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	inner.AssertExpectations(t)
}

func TestCachedResolver_ErrorsAreNotCached(t *testing.T) {
	mr, _, inner, resolver := setupNameCache(t)
	ctx := context.Background()

	inner.On("DisplayName", mock.Anything, "7").Return("", domain.ErrUserNotFound).Twice()

	for i := 0; i < 2; i++ {
		_, err := resolver.DisplayName(ctx, "7")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	}

	assert.False(t, mr.Exists("prod:names:7"))
	inner.AssertExpectations(t)
}

func TestCachedResolver_RedisDownFallsThrough(t *testing.T) {
	mr, _, inner, resolver := setupNameCache(t)
	mr.SetError("LOADING server is loading")

	inner.On("DisplayName", mock.Anything, "1").Return("Bob", nil).Once()

	name, err := resolver.DisplayName(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Bob", name)
	inner.AssertExpectations(t)
}

func TestCachedResolver_LookupErrorPropagates(t *testing.T) {
	_, _, inner, resolver := setupNameCache(t)
	boom := errors.New("HTTP 502 Bad Gateway")

	inner.On("DisplayName", mock.Anything, "3").Return("", boom).Once()

	_, err := resolver.DisplayName(context.Background(), "3")
	assert.ErrorIs(t, err, boom)
}

func TestNewCachedResolver_NilClient(t *testing.T) {
	inner := &MockUserResolver{}
	assert.Same(t, inner, NewCachedResolver(inner, nil, 0, logger.NewNop()))
}

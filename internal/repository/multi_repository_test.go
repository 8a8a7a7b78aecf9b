package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgcounter/internal/domain"
	"msgcounter/pkg/logger"
)

type fakeRepo struct {
	name    string
	snap    *domain.Snapshot
	loadErr error
	saveErr error
	saved   []*domain.Snapshot
}

func (f *fakeRepo) Name() string { return f.name }

func (f *fakeRepo) Load(ctx context.Context) (*domain.Snapshot, error) {
	if f.loadErr != nil {
		return domain.NewSnapshot(), f.loadErr
	}
	if f.snap == nil {
		return domain.NewSnapshot(), nil
	}
	return f.snap, nil
}

func (f *fakeRepo) Save(ctx context.Context, snap *domain.Snapshot) error {
	f.saved = append(f.saved, snap)
	return f.saveErr
}

func TestNewMultiRepository_NoSecondaries(t *testing.T) {
	primary := &fakeRepo{name: "file"}
	assert.Same(t, primary, NewMultiRepository(primary, logger.NewNop()))
}

func TestMultiRepository_Load(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name             string
		primary          *fakeRepo
		secondary        *fakeRepo
		expectedTotal    map[string]int64
		expectedLastSeen int
	}{
		{
			name:          "primary with data wins",
			primary:       &fakeRepo{name: "file", snap: &domain.Snapshot{Total: map[string]int64{"1": 5}, Delayed: map[string]int64{}}},
			secondary:     &fakeRepo{name: "redis", snap: &domain.Snapshot{Total: map[string]int64{"1": 99}, Delayed: map[string]int64{}, LastSeen: map[string]time.Time{"1": ts}}},
			expectedTotal: map[string]int64{"1": 5},
			// cooldowns always come from the mirror when the primary has none
			expectedLastSeen: 1,
		},
		{
			name:             "empty primary restored from secondary",
			primary:          &fakeRepo{name: "file"},
			secondary:        &fakeRepo{name: "redis", snap: &domain.Snapshot{Total: map[string]int64{"2": 7}, Delayed: map[string]int64{"2": 1}}},
			expectedTotal:    map[string]int64{"2": 7},
			expectedLastSeen: 0,
		},
		{
			name:             "secondary failure is ignored",
			primary:          &fakeRepo{name: "file", snap: &domain.Snapshot{Total: map[string]int64{"1": 1}, Delayed: map[string]int64{}}},
			secondary:        &fakeRepo{name: "redis", loadErr: errors.New("connection refused")},
			expectedTotal:    map[string]int64{"1": 1},
			expectedLastSeen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMultiRepository(tt.primary, logger.NewNop(), tt.secondary)
			assert.Equal(t, "file+redis", repo.Name())

			snap, err := repo.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expectedTotal, snap.Total)
			assert.Len(t, snap.LastSeen, tt.expectedLastSeen)
		})
	}
}

func TestMultiRepository_SaveWritesEveryBackend(t *testing.T) {
	primary := &fakeRepo{name: "file", saveErr: errors.New("disk full")}
	secondary := &fakeRepo{name: "redis"}
	repo := NewMultiRepository(primary, logger.NewNop(), secondary)

	snap := domain.NewSnapshot()
	err := repo.Save(context.Background(), snap)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "file: disk full")
	assert.Len(t, primary.saved, 1)
	assert.Len(t, secondary.saved, 1)
}

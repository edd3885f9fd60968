package game

import (
	"context"

	"github.com/stretchr/testify/mock"

	"snakeball-backend/stats"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) FindOrCreate(ctx context.Context, username string) (stats.Profile, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(stats.Profile), args.Error(1)
}

func (m *mockRecorder) Profile(ctx context.Context, username string) (stats.Profile, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(stats.Profile), args.Error(1)
}

func (m *mockRecorder) RecordMatch(ctx context.Context, rec stats.MatchRecord) (map[string]stats.Profile, error) {
	args := m.Called(ctx, rec)
	profiles, _ := args.Get(0).(map[string]stats.Profile)
	return profiles, args.Error(1)
}

func (m *mockRecorder) Ranking(ctx context.Context, sortBy string, limit int) ([]stats.Profile, error) {
	args := m.Called(ctx, sortBy, limit)
	ranking, _ := args.Get(0).([]stats.Profile)
	return ranking, args.Error(1)
}

func (m *mockRecorder) Close() {
	m.Called()
}

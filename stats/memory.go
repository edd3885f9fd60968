package stats

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps profiles in process. It backs the server when no
// database is configured and serves as the reference for PostgresStore.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*Profile)}
}

func (s *MemoryStore) FindOrCreate(_ context.Context, username string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[username]
	if !ok {
		np := newProfile(username)
		p = &np
		s.profiles[username] = p
	}
	return *p, nil
}

func (s *MemoryStore) Profile(_ context.Context, username string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[username]
	if !ok {
		return Profile{}, ErrPlayerNotFound
	}
	return *p, nil
}

func (s *MemoryStore) RecordMatch(_ context.Context, rec MatchRecord) (map[string]Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Profile, len(rec.Players))
	for _, r := range rec.Players {
		p, ok := s.profiles[r.Username]
		if !ok {
			np := newProfile(r.Username)
			p = &np
			s.profiles[r.Username] = p
		}
		p.apply(r)
		out[r.Username] = *p
	}
	return out, nil
}

func (s *MemoryStore) Ranking(_ context.Context, sortBy string, limit int) ([]Profile, error) {
	less, err := rankingOrder(sortBy)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		if p.TotalMatches > 0 {
			out = append(out, *p)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit <= 0 || limit > RankingLimit {
		limit = RankingLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() {}

func rankingOrder(sortBy string) (func(a, b Profile) bool, error) {
	switch sortBy {
	case "", SortResults:
		return func(a, b Profile) bool {
			wa, wb := WilsonLowerBound(a.Wins, a.TotalMatches), WilsonLowerBound(b.Wins, b.TotalMatches)
			if wa != wb {
				return wa > wb
			}
			return a.Username < b.Username
		}, nil
	case SortPerformance:
		return func(a, b Profile) bool {
			if a.Goals != b.Goals {
				return a.Goals > b.Goals
			}
			if a.Assists != b.Assists {
				return a.Assists > b.Assists
			}
			if a.Level != b.Level {
				return a.Level > b.Level
			}
			return a.Username < b.Username
		}, nil
	}
	return nil, ErrInvalidSort
}

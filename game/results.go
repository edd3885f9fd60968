package game

import (
	"context"
	"time"

	"snakeball-backend/constants"
	"snakeball-backend/models"
	"snakeball-backend/stats"
)

const statsTimeout = 10 * time.Second

// matchEnded runs after the room lock is released, but possibly while the
// registry lock is held, so persistence happens on its own goroutine.
func (m *Manager) matchEnded(res models.MatchResult) {
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		m.recordMatch(res)
	}()
}

func (m *Manager) recordMatch(res models.MatchResult) {
	logger := m.log.With().Str("room", res.RoomID).Logger()
	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	profiles, err := m.stats.RecordMatch(ctx, stats.NewMatchRecord(res, m.clock.Now()))
	if err != nil {
		logger.Error().Err(err).Msg("failed to record match")
		return
	}

	for id, st := range res.PlayerMatchStats {
		if profile, ok := profiles[st.Name]; ok {
			m.Hub.Send(id, constants.MSG_PLAYER_STATS, profile)
		}
	}
	logger.Info().Int("players", len(profiles)).Msg("match recorded")

	ranking, err := m.stats.Ranking(ctx, stats.SortResults, stats.RankingLimit)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load ranking")
		return
	}
	m.Hub.Broadcast(constants.MSG_RANKING_UPDATE, ranking)
}

package session

import (
	"snakeball-backend/constants"
	"snakeball-backend/models"
	"snakeball-backend/physics"
)

func (m *Machine) beginCountdown() {
	m.state = CountdownToStart
	m.count = constants.START_COUNTDOWN
	m.log.Debug().Msg("start countdown")
	m.publish(constants.MSG_GAME_COUNTDOWN, Countdown{Count: m.count, Mode: m.cfg.Mode})
	m.after(roleCountdown, constants.COUNTDOWN_STEP, m.countdownStep)
}

func (m *Machine) countdownStep() {
	if m.state != CountdownToStart {
		return
	}
	m.count--
	if m.count > 0 {
		m.publish(constants.MSG_GAME_COUNTDOWN, Countdown{Count: m.count, Mode: m.cfg.Mode})
		m.after(roleCountdown, constants.COUNTDOWN_STEP, m.countdownStep)
		return
	}

	m.publish(constants.MSG_GAME_COUNTDOWN, Countdown{Count: constants.START_SIGNAL, Mode: m.cfg.Mode})
	m.startMatch()
	m.after(roleCountdown, constants.COUNTDOWN_STEP, func() {
		m.publish(constants.MSG_GAME_COUNTDOWN, Countdown{Count: "", Mode: m.cfg.Mode})
	})
}

func (m *Machine) abortCountdown() {
	m.cancel(roleCountdown)
	m.state = Lobby
	m.log.Debug().Msg("countdown aborted")
	m.publish(constants.MSG_GAME_COUNTDOWN, Countdown{Count: "", Mode: m.cfg.Mode})
}

func (m *Machine) startMatch() {
	physics.ResetMatch(m.gs, m.cfg.Duration)
	m.state = Active
	m.log.Info().Int("duration", m.cfg.Duration).Msg("match started")

	m.publish(constants.MSG_GAME_START, m.snapshot())
	m.every(roleTick, constants.TICK_RATE, m.tick)
	m.every(roleClock, constants.SECOND_RATE, m.second)
}

func (m *Machine) tick() {
	if !m.state.InMatch() {
		return
	}

	res := physics.Step(m.gs)
	if res.Goal != nil {
		m.onGoal(res.Goal)
	}
	m.publish(constants.MSG_GAME_STATE, m.snapshot())
}

func (m *Machine) second() {
	if m.state != Active || m.gs.PausedForGoal || m.gs.Kickoff {
		return
	}
	m.gs.TimeLeft--
	if m.gs.TimeLeft <= 0 {
		m.endMatch(ReasonTime, "")
	}
}

func (m *Machine) onGoal(ev *physics.GoalEvent) {
	m.state = GoalPause
	m.log.Info().
		Str("team", string(ev.Team)).
		Str("scorer", ev.ScorerID).
		Str("assist", ev.AssistID).
		Int("team1", m.gs.Score.Team1).
		Int("team2", m.gs.Score.Team2).
		Msg("goal")
	m.after(roleGoalPause, constants.GOAL_PAUSE_DURATION, m.goalPauseElapsed)
}

func (m *Machine) goalPauseElapsed() {
	if m.state != GoalPause {
		return
	}
	physics.ResetKickoff(m.gs)
	m.state = KickoffCountdown
	m.count = constants.KICKOFF_COUNTDOWN
	m.publish(constants.MSG_GAME_STATE, m.snapshot())
	m.publish(constants.MSG_KICKOFF_COUNTDOWN, Countdown{Count: m.count})
	m.after(roleKickoff, constants.COUNTDOWN_STEP, m.kickoffStep)
}

func (m *Machine) kickoffStep() {
	if m.state != KickoffCountdown {
		return
	}
	m.count--
	if m.count > 0 {
		m.publish(constants.MSG_KICKOFF_COUNTDOWN, Countdown{Count: m.count})
		m.after(roleKickoff, constants.COUNTDOWN_STEP, m.kickoffStep)
		return
	}

	m.publish(constants.MSG_KICKOFF_COUNTDOWN, Countdown{Count: ""})
	m.gs.PausedForGoal = false
	m.gs.Kickoff = false
	m.state = Active
}

// endMatch stops the match. For a time end the winner follows the score; a
// disconnect awards the match to winner.
func (m *Machine) endMatch(reason string, winner models.Team) {
	m.cancel(roleTick, roleClock, roleCountdown, roleGoalPause, roleKickoff)
	m.state = Ended
	m.gs.Over = true

	result := models.MatchResult{
		RoomID:           m.cfg.ID,
		Score:            m.gs.Score,
		Winner:           physics.Winner(m.gs.Score),
		Reason:           reason,
		Duration:         m.gs.Duration - m.gs.TimeLeft,
		PlayerMatchStats: make(map[string]models.MatchStats, len(m.gs.Stats)),
	}
	if reason == ReasonDisconnect {
		result.Winner = string(winner)
	}
	for id, st := range m.gs.Stats {
		result.PlayerMatchStats[id] = *st
	}

	for _, a := range m.gs.Avatars {
		a.Ready = false
	}

	m.log.Info().
		Str("reason", reason).
		Str("winner", result.Winner).
		Int("team1", result.Score.Team1).
		Int("team2", result.Score.Team2).
		Msg("match ended")

	m.publish(constants.MSG_GAME_OVER, result)
	m.publish(constants.MSG_SHOW_LOBBY, struct{}{})

	if m.onMatchEnd != nil {
		f := m.onMatchEnd
		m.deferred = append(m.deferred, func() { f(result) })
	}
}

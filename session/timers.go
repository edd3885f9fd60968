package session

import (
	"time"

	"snakeball-backend/clock"
)

type role string

const (
	roleTick      role = "tick"
	roleClock     role = "clock"
	roleCountdown role = "countdown"
	roleGoalPause role = "goalPause"
	roleKickoff   role = "kickoff"
)

type handle struct {
	timer clock.Timer
	gen   uint64
}

// after schedules fn once, d from now, under the given role.
func (m *Machine) after(r role, d time.Duration, fn func()) {
	m.schedule(r, d, false, fn)
}

// every schedules fn periodically under the given role.
func (m *Machine) every(r role, d time.Duration, fn func()) {
	m.schedule(r, d, true, fn)
}

// schedule must be called with m.mu held. A role may only have one live
// handle; finding one here is a lifecycle bug, so it is logged and replaced.
func (m *Machine) schedule(r role, d time.Duration, periodic bool, fn func()) {
	if h, ok := m.timers[r]; ok {
		m.log.Error().Str("role", string(r)).Msg("timer role already active, cancelling stale handle")
		h.timer.Stop()
		delete(m.timers, r)
	}

	m.gen++
	gen := m.gen
	cb := func() {
		m.mu.Lock()
		defer m.unlock()

		if m.closed {
			return
		}
		h, ok := m.timers[r]
		if !ok || h.gen != gen {
			return
		}
		if !periodic {
			delete(m.timers, r)
		}
		fn()
	}

	var t clock.Timer
	if periodic {
		t = m.clock.Every(d, cb)
	} else {
		t = m.clock.AfterFunc(d, cb)
	}
	m.timers[r] = &handle{timer: t, gen: gen}
}

func (m *Machine) cancel(roles ...role) {
	for _, r := range roles {
		if h, ok := m.timers[r]; ok {
			h.timer.Stop()
			delete(m.timers, r)
		}
	}
}

func (m *Machine) cancelAll() {
	for r, h := range m.timers {
		h.timer.Stop()
		delete(m.timers, r)
	}
}

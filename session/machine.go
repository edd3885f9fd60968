package session

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"snakeball-backend/clock"
	"snakeball-backend/constants"
	"snakeball-backend/models"
	"snakeball-backend/physics"
)

// Publisher fans room events out to the room's subscribers. It is called with
// the room lock held and must not block or call back into the Machine.
type Publisher interface {
	Publish(roomID, msgType string, data any)
}

type Config struct {
	ID       string
	Name     string
	Mode     models.Mode
	Private  bool
	Duration int
}

type Options struct {
	Clock      clock.Clock
	Publisher  Publisher
	OnMatchEnd func(models.MatchResult)
	Logger     *zerolog.Logger
}

// Countdown is the payload of gameCountdown and kickoffCountdown. Count is an
// int while counting, the start signal, or "" to hide the countdown.
type Countdown struct {
	Count any         `json:"count"`
	Mode  models.Mode `json:"mode,omitempty"`
}

// Machine is the single writer of one room's GameState.
type Machine struct {
	mu sync.Mutex

	cfg      Config
	capacity int
	ownerID  string
	state    State
	gs       *models.GameState
	joinSeq  int
	snapSeq  uint64
	snapTS   int64
	closed   bool

	timers map[role]*handle
	gen    uint64
	count  int

	clock      clock.Clock
	pub        Publisher
	onMatchEnd func(models.MatchResult)
	log        zerolog.Logger

	// deferred runs after the lock is released.
	deferred []func()
}

func New(cfg Config, opts Options) (*Machine, error) {
	capacity, ok := cfg.Mode.Capacity()
	if !ok {
		return nil, ErrInvalidInput
	}
	if cfg.Duration == 0 {
		cfg.Duration = constants.DEFAULT_DURATION
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Machine{
		cfg:        cfg,
		capacity:   capacity,
		state:      Lobby,
		gs:         models.NewGameState(cfg.Duration),
		timers:     make(map[role]*handle),
		clock:      opts.Clock,
		pub:        opts.Publisher,
		onMatchEnd: opts.OnMatchEnd,
		log:        logger.With().Str("component", "session").Str("room", cfg.ID).Logger(),
	}, nil
}

func (m *Machine) unlock() {
	deferred := m.deferred
	m.deferred = nil
	m.mu.Unlock()
	for _, f := range deferred {
		f()
	}
}

func (m *Machine) publish(msgType string, data any) {
	if m.pub != nil {
		m.pub.Publish(m.cfg.ID, msgType, data)
	}
}

func (m *Machine) ID() string {
	return m.cfg.ID
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Owner() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ownerID
}

func (m *Machine) Private() bool {
	return m.cfg.Private
}

// Len returns the number of participants.
func (m *Machine) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.gs.Avatars)
}

// Roster returns participant ids in join order.
func (m *Machine) Roster() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.gs.Avatars))
	for _, a := range m.gs.OrderedAvatars() {
		ids = append(ids, a.ID)
	}
	return ids
}

// Snapshot returns the current visible state.
func (m *Machine) Snapshot() models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// snapshot stamps the state with the next sequence number and a timestamp
// strictly after the previous one. Clients key their buffers on it, so two
// snapshots published within one millisecond must not collide.
func (m *Machine) snapshot() models.Snapshot {
	m.snapSeq++
	m.snapTS = max(m.clock.Now().UnixMilli(), m.snapTS+1)
	return m.gs.Snapshot(m.snapSeq, m.snapTS)
}

func (m *Machine) Summary() models.RoomSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary()
}

func (m *Machine) summary() models.RoomSummary {
	s := models.RoomSummary{
		ID:        m.cfg.ID,
		Name:      m.cfg.Name,
		OwnerID:   m.ownerID,
		Mode:      m.cfg.Mode,
		Capacity:  m.capacity,
		Occupancy: len(m.gs.Avatars),
		Duration:  m.cfg.Duration,
		Private:   m.cfg.Private,
		State:     m.state.String(),
		Players:   make([]models.PlayerSummary, 0, len(m.gs.Avatars)),
	}
	for _, a := range m.gs.OrderedAvatars() {
		if a.ID == m.ownerID {
			s.Owner = a.Name
		}
		s.Players = append(s.Players, models.PlayerSummary{
			ID:    a.ID,
			Name:  a.Name,
			Team:  a.Team,
			Ready: a.Ready,
		})
	}
	return s
}

func (m *Machine) publishRoster() {
	m.publish(constants.MSG_ROOM_UPDATE, m.summary())
}

// AddParticipant seats id on the team with fewer members, team one on ties.
// Adding a current member is a no-op that returns the existing team.
func (m *Machine) AddParticipant(id, name string) (models.Team, error) {
	m.mu.Lock()
	defer m.unlock()

	if m.closed {
		return "", ErrClosed
	}
	if a, ok := m.gs.Avatars[id]; ok {
		return a.Team, nil
	}
	if m.state.InMatch() || len(m.gs.Avatars) >= m.capacity {
		return "", ErrRoomFull
	}
	if m.state == Ended {
		m.recycle()
	}

	team := models.Team1
	if m.gs.TeamCount(models.Team2) < m.gs.TeamCount(models.Team1) {
		team = models.Team2
	}

	m.gs.Avatars[id] = physics.NewAvatar(id, name, team, m.joinSeq)
	m.gs.Stats[id] = &models.MatchStats{Name: name, Team: team}
	m.joinSeq++
	if m.ownerID == "" {
		m.ownerID = id
	}
	physics.ResetKickoff(m.gs)

	m.log.Info().Str("participant", id).Str("team", string(team)).Msg("participant joined")
	m.publishRoster()
	return team, nil
}

// RemoveParticipant drops id from the room. Leaving a running match ends it
// with the leaver's team forfeiting. It reports whether the room is now empty.
func (m *Machine) RemoveParticipant(id string) (empty bool, err error) {
	m.mu.Lock()
	defer m.unlock()

	a, ok := m.gs.Avatars[id]
	if !ok {
		return len(m.gs.Avatars) == 0, ErrNotMember
	}

	switch {
	case m.state.InMatch():
		m.endMatch(ReasonDisconnect, a.Team.Other())
	case m.state == CountdownToStart:
		m.abortCountdown()
	}

	delete(m.gs.Avatars, id)
	delete(m.gs.Stats, id)
	for _, other := range m.gs.Avatars {
		other.Ready = false
	}
	m.log.Info().Str("participant", id).Msg("participant left")

	if len(m.gs.Avatars) == 0 {
		m.close()
		return true, nil
	}

	if m.ownerID == id {
		m.ownerID = m.gs.OrderedAvatars()[0].ID
		m.log.Info().Str("owner", m.ownerID).Msg("ownership transferred")
	}
	if m.state == Lobby {
		physics.ResetKickoff(m.gs)
	}
	m.publishRoster()
	return false, nil
}

// ToggleReady flips id's ready flag in the lobby and starts the countdown once
// the room is full and everyone is ready.
func (m *Machine) ToggleReady(id string) (bool, error) {
	m.mu.Lock()
	defer m.unlock()

	a, ok := m.gs.Avatars[id]
	if !ok || m.closed {
		return false, ErrNotMember
	}
	if m.state == Ended {
		m.recycle()
	}
	if m.state.InMatch() {
		return a.Ready, ErrInvalidInput
	}

	a.Ready = !a.Ready
	if m.state == CountdownToStart {
		m.abortCountdown()
	}
	m.publishRoster()

	if m.state == Lobby && m.allReady() {
		m.beginCountdown()
	}
	return a.Ready, nil
}

func (m *Machine) allReady() bool {
	if len(m.gs.Avatars) != m.capacity {
		return false
	}
	for _, a := range m.gs.Avatars {
		if !a.Ready {
			return false
		}
	}
	return true
}

// HandleDirection stores a direction input. Invalid directions, unknown
// participants and closed rooms are ignored.
func (m *Machine) HandleDirection(id, dir string) error {
	d, ok := constants.ParseDirection(dir)
	if !ok {
		return ErrInvalidInput
	}

	m.mu.Lock()
	defer m.unlock()

	if m.closed {
		return ErrClosed
	}
	a, ok := m.gs.Avatars[id]
	if !ok {
		return ErrNotMember
	}
	if headbutt, applied := physics.ChangeDirection(a, d); headbutt {
		m.log.Debug().Str("participant", id).Msg("headbutt")
	} else if !applied {
		m.log.Debug().Str("participant", id).Str("direction", dir).Msg("direction rejected")
	}
	return nil
}

// Close cancels every timer. A closed machine ignores all further events.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.unlock()
	m.close()
}

func (m *Machine) close() {
	if m.closed {
		return
	}
	m.cancelAll()
	m.closed = true
	m.log.Debug().Msg("room closed")
}

func (m *Machine) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// recycle returns an ended room to the lobby for a new match.
func (m *Machine) recycle() {
	m.state = Lobby
	m.gs.Started = false
	m.gs.Over = false
	m.gs.PausedForGoal = false
	physics.ResetKickoff(m.gs)
}

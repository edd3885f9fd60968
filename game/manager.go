package game

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"snakeball-backend/broadcast"
	"snakeball-backend/clock"
	"snakeball-backend/constants"
	"snakeball-backend/lobby"
	"snakeball-backend/models"
	"snakeball-backend/protocol"
	"snakeball-backend/session"
	"snakeball-backend/stats"
)

type Options struct {
	Hub    *broadcast.Hub
	Lobby  *lobby.Service
	Stats  stats.Recorder
	Clock  clock.Clock
	Logger *zerolog.Logger
}

// Manager is the room registry. It owns every room and the mapping of
// participants to the room they are in.
//
// Lock order is Manager, then a room's Machine, then the Hub.
type Manager struct {
	mu          sync.RWMutex
	rooms       map[string]*session.Machine
	order       []string
	memberships map[string]string

	Hub   *broadcast.Hub
	Lobby *lobby.Service
	stats stats.Recorder
	clock clock.Clock
	log   zerolog.Logger

	// pending tracks asynchronous match result handling.
	pending sync.WaitGroup
}

func NewManager(opts Options) *Manager {
	if opts.Hub == nil {
		opts.Hub = broadcast.NewHub(constants.MSG_GAME_STATE)
	}
	if opts.Lobby == nil {
		opts.Lobby = lobby.NewService()
	}
	if opts.Stats == nil {
		opts.Stats = stats.NewMemoryStore()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Manager{
		rooms:       make(map[string]*session.Machine),
		order:       make([]string, 0),
		memberships: make(map[string]string),
		Hub:         opts.Hub,
		Lobby:       opts.Lobby,
		stats:       opts.Stats,
		clock:       opts.Clock,
		log:         logger.With().Str("component", "registry").Logger(),
	}
}

// Connect registers an authenticated participant and its primary sink.
func (m *Manager) Connect(player *models.Player, sink broadcast.Sink) error {
	if err := m.Lobby.Add(player); err != nil {
		return fromLobby(err)
	}
	m.Hub.Register(player.ID, sink)
	m.log.Info().Str("participant", player.ID).Str("username", player.Username).Msg("participant connected")

	m.Hub.Send(player.ID, constants.MSG_CONNECTED, protocol.Connected{Participant: *player})
	m.Hub.Send(player.ID, constants.MSG_ROOM_LIST, m.RoomList())
	m.Hub.Broadcast(constants.MSG_ONLINE_USERS, m.Lobby.Usernames())
	return nil
}

// Disconnect removes a participant from its room and from the directory.
func (m *Manager) Disconnect(playerID string) {
	m.mu.Lock()
	m.leave(playerID, false)
	m.mu.Unlock()

	m.Lobby.Remove(playerID)
	m.Hub.Unregister(playerID)
	m.log.Info().Str("participant", playerID).Msg("participant disconnected")

	m.Hub.Broadcast(constants.MSG_ONLINE_USERS, m.Lobby.Usernames())
}

// RoomList returns summaries of every public room in creation order.
func (m *Manager) RoomList() []models.RoomSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roomList()
}

func (m *Manager) roomList() []models.RoomSummary {
	list := make([]models.RoomSummary, 0, len(m.order))
	for _, id := range m.order {
		room := m.rooms[id]
		if room.Private() {
			continue
		}
		list = append(list, room.Summary())
	}
	return list
}

// Room returns the summary of one room, private or not.
func (m *Manager) Room(roomID string) (models.RoomSummary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return models.RoomSummary{}, false
	}
	return room.Summary(), true
}

// RoomOf returns the id of the room playerID is in.
func (m *Manager) RoomOf(playerID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomID, ok := m.memberships[playerID]
	return roomID, ok
}

func (m *Manager) broadcastRoomList() {
	m.Hub.Broadcast(constants.MSG_ROOM_LIST, m.roomList())
}

// Wait blocks until every finished match has been recorded.
func (m *Manager) Wait() {
	m.pending.Wait()
}

// Shutdown closes every room.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.order {
		m.rooms[id].Close()
	}
	m.rooms = make(map[string]*session.Machine)
	m.order = m.order[:0]
	m.memberships = make(map[string]string)
}

// Stats returns the persistence service match results are recorded in.
func (m *Manager) Stats() stats.Recorder {
	return m.stats
}

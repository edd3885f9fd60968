package game

import (
	petname "github.com/dustinkirkland/golang-petname"
	"github.com/google/uuid"

	"snakeball-backend/constants"
	"snakeball-backend/models"
	"snakeball-backend/protocol"
	"snakeball-backend/session"
)

const roomIDLength = 8

func validateConfig(req protocol.CreateRoom) (models.Mode, int, error) {
	mode := models.Mode(req.Mode)
	if _, ok := mode.Capacity(); !ok {
		return "", 0, ErrInvalidConfig
	}

	duration := req.Duration
	if duration == 0 {
		duration = constants.DEFAULT_DURATION
	}
	if duration < constants.MIN_DURATION || duration > constants.MAX_DURATION {
		return "", 0, ErrInvalidConfig
	}
	return mode, duration, nil
}

func (m *Manager) newRoomID() string {
	for {
		id := uuid.NewString()[:roomIDLength]
		if _, taken := m.rooms[id]; !taken {
			return id
		}
	}
}

// CreateRoom creates a room in the lobby state and seats its creator.
func (m *Manager) CreateRoom(playerID string, req protocol.CreateRoom) (models.RoomSummary, error) {
	mode, duration, err := validateConfig(req)
	if err != nil {
		return models.RoomSummary{}, err
	}
	player, ok := m.Lobby.Get(playerID)
	if !ok {
		return models.RoomSummary{}, ErrInvalidInput
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newRoomID()
	logger := m.log.With().Str("room", id).Logger()
	room, err := session.New(session.Config{
		ID:       id,
		Name:     petname.Generate(2, "-"),
		Mode:     mode,
		Private:  req.Private,
		Duration: duration,
	}, session.Options{
		Clock:      m.clock,
		Publisher:  m.Hub,
		OnMatchEnd: m.matchEnded,
		Logger:     &logger,
	})
	if err != nil {
		return models.RoomSummary{}, ErrInvalidConfig
	}

	m.rooms[id] = room
	m.order = append(m.order, id)
	logger.Info().Str("mode", string(mode)).Int("duration", duration).Bool("private", req.Private).Msg("room created")

	summary, err := m.join(player, id)
	if err != nil {
		m.removeRoom(id)
		return models.RoomSummary{}, err
	}
	return summary, nil
}

// Join seats playerID in roomID, leaving any other room first.
func (m *Manager) Join(playerID, roomID string) (models.RoomSummary, error) {
	player, ok := m.Lobby.Get(playerID)
	if !ok {
		return models.RoomSummary{}, ErrInvalidInput
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.join(player, roomID)
}

func (m *Manager) join(player *models.Player, roomID string) (models.RoomSummary, error) {
	room, ok := m.rooms[roomID]
	if !ok {
		return models.RoomSummary{}, ErrRoomNotFound
	}

	if current, in := m.memberships[player.ID]; in && current != roomID {
		m.leave(player.ID, false)
	}

	// Subscribe first so the joiner sees its own roomUpdate.
	m.Hub.Subscribe(roomID, player.ID)
	team, err := room.AddParticipant(player.ID, player.Username)
	if err != nil {
		if _, in := m.memberships[player.ID]; !in {
			m.Hub.Unsubscribe(roomID, player.ID)
		}
		return models.RoomSummary{}, fromSession(err)
	}
	m.memberships[player.ID] = roomID

	summary := room.Summary()
	m.Hub.Send(player.ID, constants.MSG_JOINED_ROOM, protocol.JoinedRoom{Room: summary, Team: team})
	m.broadcastRoomList()
	return summary, nil
}

// Leave removes playerID from its room. Leaving while not in a room is a no-op.
func (m *Manager) Leave(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leave(playerID, true)
}

func (m *Manager) leave(playerID string, notify bool) {
	roomID, ok := m.memberships[playerID]
	if !ok {
		return
	}
	delete(m.memberships, playerID)
	m.Hub.Unsubscribe(roomID, playerID)

	if room, exists := m.rooms[roomID]; exists {
		empty, err := room.RemoveParticipant(playerID)
		if err != nil {
			m.log.Warn().Err(err).Str("participant", playerID).Str("room", roomID).Msg("leave from room without membership")
		}
		if empty {
			m.removeRoom(roomID)
		}
	}

	if notify {
		m.Hub.Send(playerID, constants.MSG_SHOW_LOBBY, struct{}{})
	}
	m.broadcastRoomList()
}

// DeleteRoom closes roomID on its owner's request. Every participant is
// removed and told the room is gone.
func (m *Manager) DeleteRoom(playerID, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if room.Owner() != playerID {
		return ErrNotOwner
	}

	room.Close()
	for _, id := range room.Roster() {
		delete(m.memberships, id)
		m.Hub.Unsubscribe(roomID, id)
		m.Hub.Send(id, constants.MSG_ROOM_CLOSED, protocol.Notice{Message: "The room was closed by its owner"})
		m.Hub.Send(id, constants.MSG_SHOW_LOBBY, struct{}{})
	}
	m.removeRoom(roomID)
	m.broadcastRoomList()
	return nil
}

func (m *Manager) removeRoom(roomID string) {
	room, ok := m.rooms[roomID]
	if !ok {
		return
	}
	room.Close()
	delete(m.rooms, roomID)
	for i, id := range m.order {
		if id == roomID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.log.Info().Str("room", roomID).Msg("room deleted")
}

// ToggleReady flips playerID's ready flag in its room.
func (m *Manager) ToggleReady(playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.memberships[playerID]
	if !ok {
		return ErrInvalidInput
	}
	if _, err := m.rooms[roomID].ToggleReady(playerID); err != nil {
		return fromSession(err)
	}
	m.broadcastRoomList()
	return nil
}

// ChangeDirection forwards a direction input to playerID's room.
func (m *Manager) ChangeDirection(playerID, direction string) error {
	m.mu.RLock()
	room, ok := m.rooms[m.memberships[playerID]]
	m.mu.RUnlock()
	if !ok {
		return ErrInvalidInput
	}
	// Steering a room that closed under us is as silent as any bad input.
	if err := room.HandleDirection(playerID, direction); err != nil {
		return ErrInvalidInput
	}
	return nil
}

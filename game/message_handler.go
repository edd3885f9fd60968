package game

import (
	"context"

	"snakeball-backend/constants"
	"snakeball-backend/models"
	"snakeball-backend/protocol"
	"snakeball-backend/stats"
)

// HandleMessage decodes one inbound frame from player and dispatches it.
func (m *Manager) HandleMessage(player *models.Player, raw []byte) {
	env, err := protocol.DecodeEnvelope(raw)
	if err != nil {
		m.log.Debug().Err(err).Str("participant", player.ID).Msg("dropping malformed frame")
		return
	}
	m.reject(player.ID, m.dispatch(player, env))
}

func (m *Manager) dispatch(player *models.Player, env protocol.Envelope) error {
	switch env.Type {
	case constants.MSG_CREATE_ROOM:
		req, err := protocol.DecodePayload[protocol.CreateRoom](env)
		if err != nil {
			return ErrInvalidConfig
		}
		_, err = m.CreateRoom(player.ID, req)
		return err
	case constants.MSG_JOIN_ROOM, constants.MSG_JOIN_ROOM_BY_ID:
		req, err := protocol.DecodePayload[protocol.JoinRoom](env)
		if err != nil {
			return ErrInvalidInput
		}
		_, err = m.Join(player.ID, req.RoomID)
		return err
	case constants.MSG_PLAYER_READY:
		return m.ToggleReady(player.ID)
	case constants.MSG_DIRECTION_CHANGE:
		req, err := protocol.DecodePayload[protocol.DirectionChange](env)
		if err != nil {
			return ErrInvalidInput
		}
		return m.ChangeDirection(player.ID, req.Direction)
	case constants.MSG_LEAVE_ROOM:
		m.Leave(player.ID)
	case constants.MSG_DELETE_ROOM:
		req, err := protocol.DecodePayload[protocol.DeleteRoom](env)
		if err != nil {
			return ErrInvalidInput
		}
		return m.DeleteRoom(player.ID, req.RoomID)
	case constants.MSG_LIST_ROOMS:
		m.Hub.Send(player.ID, constants.MSG_ROOM_LIST, m.RoomList())
	case constants.MSG_GET_RANKING:
		req, err := protocol.DecodePayload[protocol.RankingRequest](env)
		if err != nil {
			return ErrInvalidInput
		}
		m.sendRanking(player.ID, req.SortBy)
	default:
		return ErrInvalidInput
	}
	return nil
}

// reject reports err to playerID when it belongs to the client-visible set.
func (m *Manager) reject(playerID string, err error) {
	if err == nil {
		return
	}
	code, message, ok := Describe(err)
	if !ok {
		m.log.Debug().Err(err).Str("participant", playerID).Msg("input ignored")
		return
	}
	m.log.Debug().Str("participant", playerID).Str("code", code).Msg("operation rejected")
	m.Hub.Send(playerID, constants.MSG_ERROR, protocol.Error{Code: code, Message: message})
}

func (m *Manager) sendRanking(playerID, sortBy string) {
	if sortBy == "" {
		sortBy = stats.SortResults
	}
	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	ranking, err := m.stats.Ranking(ctx, sortBy, stats.RankingLimit)
	if err != nil {
		m.log.Debug().Err(err).Str("sortBy", sortBy).Msg("ranking request rejected")
		return
	}
	m.Hub.Send(playerID, constants.MSG_RANKING_UPDATE, ranking)
}

package lobby

import (
	"sync"

	"github.com/pkg/errors"

	"snakeball-backend/models"
)

var (
	ErrUsernameTaken = errors.New("username already connected")
	ErrDuplicateID   = errors.New("player id already registered")
)

// Service is the directory of connected players, in connection order.
type Service struct {
	mu      sync.RWMutex
	players map[string]*models.Player
	order   []string
}

func NewService() *Service {
	return &Service{
		players: make(map[string]*models.Player),
		order:   make([]string, 0),
	}
}

// Add registers player unless its id or username is already connected.
func (s *Service) Add(player *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[player.ID]; exists {
		return ErrDuplicateID
	}
	if s.existsByUsername(player.Username) {
		return ErrUsernameTaken
	}

	s.players[player.ID] = player
	s.order = append(s.order, player.ID)
	return nil
}

func (s *Service) Remove(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.players, playerID)
	for i, id := range s.order {
		if id == playerID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Service) Get(playerID string) (*models.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	player, exists := s.players[playerID]
	return player, exists
}

func (s *Service) existsByUsername(username string) bool {
	for _, p := range s.players {
		if p.Username == username {
			return true
		}
	}
	return false
}

func (s *Service) Snapshot() []*models.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Player, 0, len(s.order))
	for _, id := range s.order {
		if player, exists := s.players[id]; exists {
			result = append(result, player)
		}
	}
	return result
}

// Usernames lists connected usernames in connection order.
func (s *Service) Usernames() []string {
	players := s.Snapshot()
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Username)
	}
	return names
}

func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

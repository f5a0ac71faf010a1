package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/tournament"
)

// ErrPlayerNotFound is returned by PlayerStore.GetPlayer for unknown ids.
var ErrPlayerNotFound = errors.New("player not found")

// GlobalChat selects every chat in PlayerStore.Top.
const GlobalChat int64 = 0

// PlayerStore persists tournament players and their pours.
type PlayerStore interface {
	// GetPlayer returns the player or ErrPlayerNotFound.
	GetPlayer(ctx context.Context, id int64) (tournament.Player, error)

	// SavePlayer inserts the player or replaces every field of an existing one.
	SavePlayer(ctx context.Context, p tournament.Player) error

	// RecordDrink stores the player's new attempts and total together with the pour.
	RecordDrink(ctx context.Context, p tournament.Player, d tournament.Drink) error

	// Top returns up to limit players of chatID (GlobalChat for all) by total drunk.
	Top(ctx context.Context, chatID int64, limit int) ([]tournament.Player, error)

	// Totals counts players and sums everything they drank.
	Totals(ctx context.Context) (tournament.Totals, error)
}

// MemoryPlayerStore keeps players in process memory.
type MemoryPlayerStore struct {
	mu      sync.RWMutex
	players map[int64]tournament.Player
	drinks  []tournament.Drink
}

func NewMemoryPlayerStore() *MemoryPlayerStore {
	return &MemoryPlayerStore{players: make(map[int64]tournament.Player)}
}

func (m *MemoryPlayerStore) GetPlayer(_ context.Context, id int64) (tournament.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	if !ok {
		return tournament.Player{}, ErrPlayerNotFound
	}
	return p, nil
}

func (m *MemoryPlayerStore) SavePlayer(_ context.Context, p tournament.Player) error {
	m.mu.Lock()
	m.players[p.ID] = p
	m.mu.Unlock()
	return nil
}

func (m *MemoryPlayerStore) RecordDrink(_ context.Context, p tournament.Player, d tournament.Drink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[p.ID]; !ok {
		return ErrPlayerNotFound
	}
	m.players[p.ID] = p
	m.drinks = append(m.drinks, d)
	return nil
}

func (m *MemoryPlayerStore) Top(_ context.Context, chatID int64, limit int) ([]tournament.Player, error) {
	m.mu.RLock()
	var out []tournament.Player
	for _, p := range m.players {
		if chatID == GlobalChat || p.ChatID == chatID {
			out = append(out, p)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalMl != out[j].TotalMl {
			return out[i].TotalMl > out[j].TotalMl
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryPlayerStore) Totals(_ context.Context) (tournament.Totals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t := tournament.Totals{Players: len(m.players)}
	for _, p := range m.players {
		t.TotalMl += p.TotalMl
	}
	return t, nil
}

// Drinks returns a copy of every recorded pour, oldest first.
func (m *MemoryPlayerStore) Drinks() []tournament.Drink {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]tournament.Drink, len(m.drinks))
	copy(out, m.drinks)
	return out
}

var _ PlayerStore = (*MemoryPlayerStore)(nil)

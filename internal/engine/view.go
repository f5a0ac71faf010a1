package engine

import (
	"github.com/MRamiBalles/BeerClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/BeerClicker/server/internal/domain/upgrade"
)

// Offer is an upgrade as shown in the shop, with its current price.
type Offer struct {
	upgrade.Upgrade
	Cost       int64 `json:"cost"`
	Affordable bool  `json:"affordable"`
	Maxed      bool  `json:"maxed"`
}

// View is everything a client needs to render the game.
type View struct {
	Currency    int64               `json:"currency"` // Floored for display
	RawCurrency float64             `json:"rawCurrency"`
	PerClick    float64             `json:"perClick"`
	PerSecond   float64             `json:"perSecond"`
	TotalEarned int64               `json:"totalEarned"`
	Upgrades    []Offer             `json:"upgrades"`
	Bonus       economy.BonusStatus `json:"bonus"`
}

func offers(s economy.State) []Offer {
	out := make([]Offer, 0, len(s.Upgrades))
	for _, u := range s.Upgrades {
		cost, maxed := u.Cost(), u.Maxed()
		out = append(out, Offer{Upgrade: u, Cost: cost, Affordable: !maxed && s.Currency >= float64(cost), Maxed: maxed})
	}
	return out
}

// Catalog returns the upgrades with their current costs.
func (e *Engine) Catalog() []Offer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return offers(e.state)
}

// View renders the state at the engine clock's now.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.state
	return View{
		Currency:    s.DisplayCurrency(),
		RawCurrency: s.Currency,
		PerClick:    s.PerClick,
		PerSecond:   s.PerSecond,
		TotalEarned: int64(s.TotalEarned),
		Upgrades:    offers(s),
		Bonus:       s.Bonus(e.clock.Now()),
	}
}

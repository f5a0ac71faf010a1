// Package economy defines the player's beer economy and the pure transitions on it.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package economy

import (
	"math"
	"time"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/rules"
	"github.com/MRamiBalles/BeerClicker/server/internal/domain/upgrade"
)

// State is the full mutable economy of one player.
//
// Invariants: Currency >= 0 and TotalEarned never decreases.
type State struct {
	Currency    float64 `json:"currency"` // May be fractional, displayed floored
	PerClick    float64 `json:"perClick"`
	PerSecond   float64 `json:"perSecond"`
	TotalEarned float64 `json:"totalEarned"`

	// LastBonusClaimedAt is zero when the bonus was never claimed.
	LastBonusClaimedAt time.Time `json:"lastBonusClaimedAt"`

	Upgrades []upgrade.Upgrade `json:"upgrades"` // Catalog order
}

// NewState returns the fresh default state.
func NewState() State {
	return State{
		Currency:    0,
		PerClick:    1,
		PerSecond:   0,
		TotalEarned: 0,
		Upgrades:    upgrade.Catalog(),
	}
}

// Clone returns a deep copy; the upgrade slice is not shared.
func (s State) Clone() State {
	c := s
	c.Upgrades = make([]upgrade.Upgrade, len(s.Upgrades))
	copy(c.Upgrades, s.Upgrades)
	return c
}

// DisplayCurrency is the floored balance shown to the player.
func (s State) DisplayCurrency() int64 {
	return int64(math.Floor(s.Currency))
}

func (s *State) earn(amount float64) {
	s.Currency += amount
	s.TotalEarned += amount
}

// Click adds PerClick to the balance and returns the amount gained.
func (s *State) Click() float64 {
	gained := s.PerClick
	s.earn(gained)
	return gained
}

// Accrue credits passive income for the given number of seconds.
// Nothing happens while PerSecond is zero.
func (s *State) Accrue(seconds float64) float64 {
	if s.PerSecond <= 0 || seconds <= 0 {
		return 0
	}
	gained := s.PerSecond * seconds
	s.earn(gained)
	return gained
}

// Purchase describes a completed upgrade purchase.
type Purchase struct {
	Upgrade upgrade.Upgrade `json:"upgrade"` // After the level increment
	Cost    int64           `json:"cost"`
	Target  upgrade.Target  `json:"target"`
	NewRate float64         `json:"newRate"`
}

// Buy purchases one level of the upgrade with the given id.
// On any error the state is left untouched.
func (s *State) Buy(id string) (Purchase, error) {
	i := upgrade.Index(s.Upgrades, id)
	if i < 0 {
		return Purchase{}, ErrUnknownUpgrade
	}
	u := &s.Upgrades[i]

	if u.Maxed() {
		return Purchase{}, ErrUpgradeMaxed
	}
	cost := u.Cost()
	if s.Currency < float64(cost) {
		return Purchase{}, &InsufficientFundsError{UpgradeID: id, Cost: cost, Have: s.Currency}
	}

	s.Currency -= float64(cost)
	u.Level++

	var rate float64
	switch u.AppliesTo {
	case upgrade.PerClick:
		s.PerClick += u.Multiplier
		rate = s.PerClick
	default:
		s.PerSecond += u.Multiplier
		rate = s.PerSecond
	}

	return Purchase{Upgrade: *u, Cost: cost, Target: u.AppliesTo, NewRate: rate}, nil
}

// BonusStatus is the lazily computed state of the bonus gate.
type BonusStatus struct {
	Available bool          `json:"available"`
	Remaining time.Duration `json:"remaining"`
	Countdown string        `json:"countdown"` // m:ss
}

// Bonus reports whether a bonus can be claimed at now.
func (s State) Bonus(now time.Time) BonusStatus {
	remaining := rules.CooldownRemaining(s.LastBonusClaimedAt, now)
	return BonusStatus{
		Available: remaining == 0,
		Remaining: remaining,
		Countdown: rules.Countdown(remaining),
	}
}

// ClaimBonus grants floor(Currency*0.10)+100 and starts the cooldown at now.
func (s *State) ClaimBonus(now time.Time) (int64, error) {
	if remaining := rules.CooldownRemaining(s.LastBonusClaimedAt, now); remaining > 0 {
		return 0, &CooldownError{Remaining: remaining}
	}
	bonus := rules.BonusFor(s.Currency)
	s.earn(float64(bonus))
	// Millisecond precision survives the JSON snapshot unchanged.
	// Rounded up so the gate is never shorter than the cooldown.
	s.LastBonusClaimedAt = now.Add(time.Millisecond - 1).Truncate(time.Millisecond)
	return bonus, nil
}

// Package tournament is the chat drinking contest that runs beside the clicker:
// players spend attempts to pour a random amount of beer and race up a leaderboard.
package tournament

import (
	"errors"
	"time"
)

// Contest rules.
const (
	DrinkMinMl       = 100 // Smallest pour, inclusive
	DrinkMaxMl       = 600 // Largest pour, inclusive
	StartingAttempts = 3
	AdminGrant       = 5 // Attempts handed out by the admin "+5" action
	LeaderboardSize  = 10
)

var (
	ErrNoAttempts   = errors.New("no attempts left")
	ErrUnknownPack  = errors.New("unknown attempts pack")
	ErrNotAdmin     = errors.New("admin rights required")
	ErrInvalidGrant = errors.New("grant must be positive")
)

// Player is one contestant. ChatID is the chat the player was last seen in
// and scopes the per-chat leaderboard.
type Player struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	ChatID   int64     `json:"chatId"`
	Attempts int       `json:"attempts"`
	TotalMl  int64     `json:"totalMl"`
	IsAdmin  bool      `json:"isAdmin"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Profile is what a chat client knows about the player joining.
type Profile struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	ChatID int64  `json:"chatId"`
}

// NewPlayer starts a contestant with the given number of attempts.
func NewPlayer(p Profile, attempts int, now time.Time) Player {
	return Player{
		ID:       p.ID,
		Name:     p.Name,
		ChatID:   p.ChatID,
		Attempts: attempts,
		JoinedAt: now,
	}
}

// Drink is one recorded pour.
type Drink struct {
	PlayerID int64     `json:"playerId"`
	AmountMl int       `json:"amountMl"`
	DrunkAt  time.Time `json:"drunkAt"`
}

// Roller is the source of pour amounts; *rand.Rand satisfies it.
type Roller interface {
	Intn(n int) int
}

// PourAmount draws a pour in [DrinkMinMl, DrinkMaxMl].
func PourAmount(r Roller) int {
	return DrinkMinMl + r.Intn(DrinkMaxMl-DrinkMinMl+1)
}

// Drink spends one attempt on a random pour and adds it to the total.
func (p *Player) Drink(r Roller, now time.Time) (Drink, error) {
	if p.Attempts <= 0 {
		return Drink{}, ErrNoAttempts
	}
	amount := PourAmount(r)
	p.Attempts--
	p.TotalMl += int64(amount)
	return Drink{PlayerID: p.ID, AmountMl: amount, DrunkAt: now}, nil
}

// Grant adds n attempts.
func (p *Player) Grant(n int) error {
	if n <= 0 {
		return ErrInvalidGrant
	}
	p.Attempts += n
	return nil
}

// ResetStats zeroes the drinking total. Attempts are kept.
func (p *Player) ResetStats() {
	p.TotalMl = 0
}

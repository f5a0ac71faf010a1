package network

import (
	"context"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/BeerClicker/server/internal/domain/tournament"
	"github.com/MRamiBalles/BeerClicker/server/internal/engine"
	"github.com/MRamiBalles/BeerClicker/server/internal/notify"
)

// Game is the part of the engine the transport layer drives.
type Game interface {
	Click(ctx context.Context) (engine.ClickResult, error)
	Buy(ctx context.Context, id string) (economy.Purchase, error)
	ClaimBonus(ctx context.Context) (int64, error)
	BonusStatus() economy.BonusStatus
	Reset(ctx context.Context, confirm notify.Confirmer) (bool, error)
	View() engine.View
}

// Contest is the tournament service behind /api/tournament.
type Contest interface {
	Join(ctx context.Context, profile tournament.Profile) (tournament.Player, bool, error)
	Player(ctx context.Context, id int64) (tournament.Player, error)
	Drink(ctx context.Context, id int64) (engine.DrinkResult, error)
	Shop() []tournament.Pack
	BuyPack(ctx context.Context, id int64, packID string) (tournament.Player, tournament.Pack, error)
	Leaderboard(ctx context.Context, chatID int64) ([]tournament.Standing, error)
	Grant(ctx context.Context, admin, target int64, n int) (tournament.Player, error)
	ResetPlayer(ctx context.Context, admin, target int64) (tournament.Player, error)
	Stats(ctx context.Context, admin int64) (tournament.Totals, error)
}

var (
	_ Game    = (*engine.Engine)(nil)
	_ Contest = (*engine.Tournament)(nil)
)

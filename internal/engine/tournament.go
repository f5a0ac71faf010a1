package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/tournament"
	"github.com/MRamiBalles/BeerClicker/server/internal/events"
	"github.com/MRamiBalles/BeerClicker/server/internal/infra/storage"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/clock"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/config"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/logger"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/metrics"
)

// TournamentDeps are the collaborators of a Tournament. Store is required.
type TournamentDeps struct {
	Config  config.TournamentConfig
	Store   storage.PlayerStore
	Clock   clock.Clock
	Roller  tournament.Roller
	Events  *events.EventLog
	Logger  *logger.Logger
	Metrics *metrics.Collector
}

// Tournament runs the drinking contest on top of a PlayerStore.
// Read-modify-write sequences on a player are serialized by mu, which also guards the roller.
type Tournament struct {
	mu sync.Mutex

	cfg      config.TournamentConfig
	admins   map[int64]bool
	store    storage.PlayerStore
	clock    clock.Clock
	roller   tournament.Roller
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector
}

// NewTournament builds the contest service.
func NewTournament(d TournamentDeps) *Tournament {
	if d.Config.LeaderboardSize <= 0 {
		d.Config.LeaderboardSize = tournament.LeaderboardSize
	}
	if d.Clock == nil {
		d.Clock = clock.RealClock{}
	}
	if d.Roller == nil {
		d.Roller = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Get()
	}
	admins := make(map[int64]bool, len(d.Config.AdminIDs))
	for _, id := range d.Config.AdminIDs {
		admins[id] = true
	}
	return &Tournament{
		cfg:      d.Config,
		admins:   admins,
		store:    d.Store,
		clock:    d.Clock,
		roller:   d.Roller,
		eventLog: d.Events,
		logger:   d.Logger,
		metrics:  d.Metrics,
	}
}

// Join registers the player, or refreshes the name and chat of a known one.
// New players start with the configured attempts.
func (t *Tournament) Join(ctx context.Context, profile tournament.Profile) (tournament.Player, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.store.GetPlayer(ctx, profile.ID)
	created := errors.Is(err, storage.ErrPlayerNotFound)
	switch {
	case created:
		p = tournament.NewPlayer(profile, t.cfg.StartingAttempts, t.clock.Now())
	case err != nil:
		return tournament.Player{}, false, err
	default:
		p.Name = profile.Name
		p.ChatID = profile.ChatID
	}
	p.IsAdmin = p.IsAdmin || t.admins[p.ID]

	if err := t.store.SavePlayer(ctx, p); err != nil {
		return tournament.Player{}, false, err
	}
	if created {
		t.record(ctx, events.EventTypePlayerJoined, events.PlayerJoinedPayload{
			PlayerID: p.ID,
			Name:     p.Name,
			ChatID:   p.ChatID,
			Attempts: p.Attempts,
		})
		t.logger.Event(string(events.EventTypePlayerJoined), SourceFrom(ctx), fmt.Sprintf("%d (%s) in chat %d", p.ID, p.Name, p.ChatID))
	}
	return p, created, nil
}

// Player returns the stored player.
func (t *Tournament) Player(ctx context.Context, id int64) (tournament.Player, error) {
	return t.store.GetPlayer(ctx, id)
}

// DrinkResult is returned by Drink.
type DrinkResult struct {
	Drink  tournament.Drink  `json:"drink"`
	Player tournament.Player `json:"player"`
}

// Drink spends one attempt on a random pour.
func (t *Tournament) Drink(ctx context.Context, id int64) (DrinkResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.store.GetPlayer(ctx, id)
	if err != nil {
		return DrinkResult{}, err
	}
	d, err := p.Drink(t.roller, t.clock.Now())
	if err != nil {
		t.metrics.RecordDrink(0)
		return DrinkResult{Player: p}, err
	}
	if err := t.store.RecordDrink(ctx, p, d); err != nil {
		return DrinkResult{}, err
	}

	t.metrics.RecordDrink(d.AmountMl)
	t.record(ctx, events.EventTypeBeerDrunk, events.BeerDrunkPayload{
		PlayerID:     p.ID,
		AmountMl:     d.AmountMl,
		TotalMl:      p.TotalMl,
		AttemptsLeft: p.Attempts,
	})
	return DrinkResult{Drink: d, Player: p}, nil
}

// Shop lists the attempt packs.
func (t *Tournament) Shop() []tournament.Pack {
	return tournament.Packs()
}

// BuyPack credits the attempts of a pack whose stars were already paid.
func (t *Tournament) BuyPack(ctx context.Context, id int64, packID string) (tournament.Player, tournament.Pack, error) {
	pack, err := tournament.FindPack(packID)
	if err != nil {
		return tournament.Player{}, tournament.Pack{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	p, err := t.store.GetPlayer(ctx, id)
	if err != nil {
		return tournament.Player{}, pack, err
	}
	if err := p.Grant(pack.Attempts); err != nil {
		return tournament.Player{}, pack, err
	}
	if err := t.store.SavePlayer(ctx, p); err != nil {
		return tournament.Player{}, pack, err
	}

	t.metrics.RecordPackSold()
	t.record(ctx, events.EventTypeAttemptsBought, events.AttemptsBoughtPayload{
		PlayerID: p.ID,
		PackID:   pack.ID,
		Attempts: pack.Attempts,
		Stars:    pack.Stars,
	})
	t.logger.Event(string(events.EventTypeAttemptsBought), SourceFrom(ctx), fmt.Sprintf("%d bought %s", p.ID, pack.ID))
	return p, pack, nil
}

// Leaderboard ranks the top players of chatID, or of every chat for storage.GlobalChat.
func (t *Tournament) Leaderboard(ctx context.Context, chatID int64) ([]tournament.Standing, error) {
	players, err := t.store.Top(ctx, chatID, t.cfg.LeaderboardSize)
	if err != nil {
		return nil, err
	}
	return tournament.Rank(players), nil
}

// Grant gives n attempts to target on behalf of admin.
func (t *Tournament) Grant(ctx context.Context, admin, target int64, n int) (tournament.Player, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireAdmin(ctx, admin); err != nil {
		return tournament.Player{}, err
	}
	p, err := t.store.GetPlayer(ctx, target)
	if err != nil {
		return tournament.Player{}, err
	}
	if err := p.Grant(n); err != nil {
		return tournament.Player{}, err
	}
	if err := t.store.SavePlayer(ctx, p); err != nil {
		return tournament.Player{}, err
	}

	t.record(ctx, events.EventTypeAttemptsGranted, events.AttemptsGrantedPayload{AdminID: admin, PlayerID: target, Attempts: n})
	t.logger.Event(string(events.EventTypeAttemptsGranted), SourceFrom(ctx), fmt.Sprintf("%d gave %d +%d", admin, target, n))
	return p, nil
}

// ResetPlayer zeroes the drinking total of target on behalf of admin.
func (t *Tournament) ResetPlayer(ctx context.Context, admin, target int64) (tournament.Player, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireAdmin(ctx, admin); err != nil {
		return tournament.Player{}, err
	}
	p, err := t.store.GetPlayer(ctx, target)
	if err != nil {
		return tournament.Player{}, err
	}
	dropped := p.TotalMl
	p.ResetStats()
	if err := t.store.SavePlayer(ctx, p); err != nil {
		return tournament.Player{}, err
	}

	t.record(ctx, events.EventTypePlayerStatsReset, events.PlayerStatsResetPayload{AdminID: admin, PlayerID: target, DroppedMl: dropped})
	t.logger.Event(string(events.EventTypePlayerStatsReset), SourceFrom(ctx), fmt.Sprintf("%d reset %d (%d ml)", admin, target, dropped))
	return p, nil
}

// Stats returns the totals across every player.
func (t *Tournament) Stats(ctx context.Context, admin int64) (tournament.Totals, error) {
	if err := t.requireAdmin(ctx, admin); err != nil {
		return tournament.Totals{}, err
	}
	return t.store.Totals(ctx)
}

// requireAdmin accepts configured admins and players stored with the admin flag.
func (t *Tournament) requireAdmin(ctx context.Context, id int64) error {
	if t.admins[id] {
		return nil
	}
	p, err := t.store.GetPlayer(ctx, id)
	switch {
	case errors.Is(err, storage.ErrPlayerNotFound):
		return tournament.ErrNotAdmin
	case err != nil:
		return err
	case !p.IsAdmin:
		return tournament.ErrNotAdmin
	}
	return nil
}

func (t *Tournament) record(ctx context.Context, et events.EventType, payload interface{}) {
	if t.eventLog == nil {
		return
	}
	t.eventLog.Append(events.GameEvent{
		Timestamp: t.clock.Now(),
		Type:      et,
		Source:    SourceFrom(ctx),
		Payload:   payload,
	})
}

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/tournament"
	"github.com/MRamiBalles/BeerClicker/server/internal/events"
	"github.com/MRamiBalles/BeerClicker/server/internal/infra/storage"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/clock"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/config"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/metrics"
)

// pours replays fixed amounts in millilitres.
type pours struct {
	ml []int
	i  int
}

func (p *pours) Intn(int) int {
	v := p.ml[p.i%len(p.ml)]
	p.i++
	return v - tournament.DrinkMinMl
}

type tournamentHarness struct {
	t       *Tournament
	store   *storage.MemoryPlayerStore
	events  *events.EventLog
	metrics *metrics.Collector
	ctx     context.Context
}

const adminID int64 = 1

func newTournamentHarness(t *testing.T, ml ...int) *tournamentHarness {
	t.Helper()
	if len(ml) == 0 {
		ml = []int{350}
	}
	h := &tournamentHarness{
		store:   storage.NewMemoryPlayerStore(),
		events:  events.NewEventLog(64, nil),
		metrics: metrics.New(),
		ctx:     WithSource(context.Background(), SourceAPI),
	}
	h.t = NewTournament(TournamentDeps{
		Config:  config.TournamentConfig{StartingAttempts: tournament.StartingAttempts, LeaderboardSize: 2, AdminIDs: []int64{adminID}},
		Store:   h.store,
		Clock:   clock.NewFakeClock(t0),
		Roller:  &pours{ml: ml},
		Events:  h.events,
		Metrics: h.metrics,
	})
	return h
}

func (h *tournamentHarness) join(t *testing.T, id, chat int64, name string) tournament.Player {
	t.Helper()
	p, _, err := h.t.Join(h.ctx, tournament.Profile{ID: id, Name: name, ChatID: chat})
	require.NoError(t, err)
	return p
}

func TestJoinStartsWithAttempts(t *testing.T) {
	h := newTournamentHarness(t)

	p, created, err := h.t.Join(h.ctx, tournament.Profile{ID: 7, Name: "kat", ChatID: 50})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 3, p.Attempts)
	assert.False(t, p.IsAdmin)
	assert.True(t, p.JoinedAt.Equal(t0))

	again, created, err := h.t.Join(h.ctx, tournament.Profile{ID: 7, Name: "katja", ChatID: 60})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "katja", again.Name)
	assert.Equal(t, int64(60), again.ChatID)

	joined := h.events.GetByType(events.EventTypePlayerJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, SourceAPI, joined[0].Source)

	assert.True(t, h.join(t, adminID, 50, "boss").IsAdmin)
}

func TestDrinkSpendsAttempts(t *testing.T) {
	h := newTournamentHarness(t, 100, 600, 250)
	h.join(t, 7, 50, "kat")

	var total int64
	for _, want := range []int{100, 600, 250} {
		res, err := h.t.Drink(h.ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, want, res.Drink.AmountMl)
		total += int64(want)
		assert.Equal(t, total, res.Player.TotalMl)
	}

	res, err := h.t.Drink(h.ctx, 7)
	assert.ErrorIs(t, err, tournament.ErrNoAttempts)
	assert.Zero(t, res.Player.Attempts)

	stored, err := h.t.Player(h.ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(950), stored.TotalMl)
	assert.Len(t, h.store.Drinks(), 3)
	assert.Len(t, h.events.GetByType(events.EventTypeBeerDrunk), 3)
	assert.Equal(t, int64(950), h.metrics.DrunkMl)
	assert.Equal(t, int64(1), h.metrics.DrinksRejected)

	_, err = h.t.Drink(h.ctx, 404)
	assert.ErrorIs(t, err, storage.ErrPlayerNotFound)
}

func TestBuyPack(t *testing.T) {
	h := newTournamentHarness(t)
	h.join(t, 7, 50, "kat")

	p, pack, err := h.t.BuyPack(h.ctx, 7, tournament.PackTen)
	require.NoError(t, err)
	assert.Equal(t, 25, pack.Stars)
	assert.Equal(t, 13, p.Attempts)

	_, _, err = h.t.BuyPack(h.ctx, 7, "crate")
	assert.ErrorIs(t, err, tournament.ErrUnknownPack)
	_, _, err = h.t.BuyPack(h.ctx, 404, tournament.PackSingle)
	assert.ErrorIs(t, err, storage.ErrPlayerNotFound)

	assert.Len(t, h.events.GetByType(events.EventTypeAttemptsBought), 1)
	assert.Len(t, h.t.Shop(), 3)
}

func TestLeaderboardScopes(t *testing.T) {
	h := newTournamentHarness(t, 200, 500, 300)
	h.join(t, 7, 50, "kat")
	h.join(t, 8, 50, "lev")
	h.join(t, 9, 60, "mo")
	for _, id := range []int64{7, 8, 9} {
		_, err := h.t.Drink(h.ctx, id)
		require.NoError(t, err)
	}

	chat, err := h.t.Leaderboard(h.ctx, 50)
	require.NoError(t, err)
	require.Len(t, chat, 2)
	assert.Equal(t, tournament.Standing{Rank: 1, PlayerID: 8, Name: "lev", TotalMl: 500}, chat[0])
	assert.Equal(t, int64(7), chat[1].PlayerID)

	global, err := h.t.Leaderboard(h.ctx, storage.GlobalChat)
	require.NoError(t, err)
	require.Len(t, global, 2, "capped at the configured size")
	assert.Equal(t, []int64{8, 9}, []int64{global[0].PlayerID, global[1].PlayerID})
}

func TestAdminActions(t *testing.T) {
	h := newTournamentHarness(t, 400)
	h.join(t, 7, 50, "kat")
	_, err := h.t.Drink(h.ctx, 7)
	require.NoError(t, err)

	_, err = h.t.Grant(h.ctx, 7, 7, tournament.AdminGrant)
	assert.ErrorIs(t, err, tournament.ErrNotAdmin)
	_, err = h.t.Stats(h.ctx, 404)
	assert.ErrorIs(t, err, tournament.ErrNotAdmin)

	p, err := h.t.Grant(h.ctx, adminID, 7, tournament.AdminGrant)
	require.NoError(t, err)
	assert.Equal(t, 2+tournament.AdminGrant, p.Attempts)
	_, err = h.t.Grant(h.ctx, adminID, 7, 0)
	assert.ErrorIs(t, err, tournament.ErrInvalidGrant)

	totals, err := h.t.Stats(h.ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, tournament.Totals{Players: 1, TotalMl: 400}, totals)

	p, err = h.t.ResetPlayer(h.ctx, adminID, 7)
	require.NoError(t, err)
	assert.Zero(t, p.TotalMl)
	assert.Equal(t, 2+tournament.AdminGrant, p.Attempts, "attempts survive a stats reset")

	reset := h.events.GetByType(events.EventTypePlayerStatsReset)
	require.Len(t, reset, 1)
	assert.Equal(t, int64(400), reset[0].Payload.(events.PlayerStatsResetPayload).DroppedMl)

	// Players stored with the admin flag count as admins too.
	require.NoError(t, h.store.SavePlayer(h.ctx, tournament.Player{ID: 20, Name: "ops", IsAdmin: true}))
	_, err = h.t.Stats(h.ctx, 20)
	assert.NoError(t, err)
}

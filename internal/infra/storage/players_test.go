package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/tournament"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/config"
)

var joinedAt = time.Date(2025, 4, 1, 21, 0, 0, 0, time.UTC)

func testPlayerStore(t *testing.T, store PlayerStore) {
	ctx := context.Background()

	_, err := store.GetPlayer(ctx, 1)
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	players := []tournament.Player{
		{ID: 1, Name: "ana", ChatID: 100, Attempts: 3, TotalMl: 250, JoinedAt: joinedAt},
		{ID: 2, Name: "bo", ChatID: 100, Attempts: 3, TotalMl: 900, JoinedAt: joinedAt},
		{ID: 3, Name: "cy", ChatID: 200, Attempts: 0, TotalMl: 1200, IsAdmin: true, JoinedAt: joinedAt},
		{ID: 4, Name: "di", ChatID: 100, Attempts: 1, TotalMl: 250, JoinedAt: joinedAt},
	}
	for _, p := range players {
		require.NoError(t, store.SavePlayer(ctx, p))
	}

	got, err := store.GetPlayer(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "cy", got.Name)
	assert.True(t, got.IsAdmin)
	assert.True(t, got.JoinedAt.Equal(joinedAt))

	renamed := players[0]
	renamed.Name = "ana-maria"
	require.NoError(t, store.SavePlayer(ctx, renamed))
	got, err = store.GetPlayer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ana-maria", got.Name)

	p := got
	d, err := p.Drink(fixedRoll(300), joinedAt.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, store.RecordDrink(ctx, p, d))
	got, err = store.GetPlayer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, int64(650), got.TotalMl)

	ghost := tournament.Player{ID: 99, Attempts: 1}
	assert.ErrorIs(t, store.RecordDrink(ctx, ghost, tournament.Drink{PlayerID: 99, AmountMl: 100, DrunkAt: joinedAt}), ErrPlayerNotFound)

	chat, err := store.Top(ctx, 100, 10)
	require.NoError(t, err)
	require.Len(t, chat, 3)
	assert.Equal(t, []int64{2, 1, 4}, ids(chat))

	global, err := store.Top(ctx, GlobalChat, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids(global))

	totals, err := store.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, totals.Players)
	assert.Equal(t, int64(650+900+1200+250), totals.TotalMl)
}

// fixedRoll makes tournament.PourAmount return ml.
type fixedRoll int

func (f fixedRoll) Intn(int) int { return int(f) - tournament.DrinkMinMl }

func ids(players []tournament.Player) []int64 {
	out := make([]int64, len(players))
	for i, p := range players {
		out[i] = p.ID
	}
	return out
}

func TestMemoryPlayerStore(t *testing.T) {
	store := NewMemoryPlayerStore()
	testPlayerStore(t, store)
	require.Len(t, store.Drinks(), 1)
	assert.Equal(t, 300, store.Drinks()[0].AmountMl)
}

func TestSQLitePlayerStore(t *testing.T) {
	b := openTestSQLite(t)
	require.NotNil(t, b.Players)
	testPlayerStore(t, b.Players)
}

func TestEmptyTotals(t *testing.T) {
	b := openTestSQLite(t)
	totals, err := b.Players.Totals(context.Background())
	require.NoError(t, err)
	assert.Zero(t, totals.Players)
	assert.Zero(t, totals.TotalMl)
}

func TestPostgresPlayerStore(t *testing.T) {
	dsn := envOrSkip(t, "BEER_TEST_POSTGRES_DSN")
	ctx := context.Background()
	b, err := Open(ctx, config.StorageConfig{Driver: config.DriverPostgres, PostgresDSN: dsn, DBMaxOpenConns: 2})
	require.NoError(t, err)
	defer b.Close()

	db := b.Players.(*SQLPlayerStore).db
	_, err = db.ExecContext(ctx, `TRUNCATE beer_drinks, players`)
	require.NoError(t, err)
	testPlayerStore(t, b.Players)
}

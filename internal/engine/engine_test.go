package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/BeerClicker/server/internal/domain/upgrade"
	"github.com/MRamiBalles/BeerClicker/server/internal/events"
	"github.com/MRamiBalles/BeerClicker/server/internal/infra/storage"
	"github.com/MRamiBalles/BeerClicker/server/internal/notify"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/clock"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/config"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/metrics"
)

var t0 = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

type harness struct {
	engine   *Engine
	clock    *clock.FakeClock
	store    storage.SlotStore
	notes    *notify.Recorder
	events   *events.EventLog
	metrics  *metrics.Collector
	ctx      context.Context
	slotName string
}

func newHarness(t *testing.T, store storage.SlotStore) *harness {
	t.Helper()
	if store == nil {
		store = storage.NewMemorySlotStore()
	}
	h := &harness{
		clock:    clock.NewFakeClock(t0),
		store:    store,
		notes:    &notify.Recorder{},
		events:   events.NewEventLog(64, nil),
		metrics:  metrics.New(),
		ctx:      context.Background(),
		slotName: "test-slot",
	}
	h.engine = New(Deps{
		Config:   config.EngineConfig{TickInterval: time.Second, AutosaveInterval: time.Hour, SaveTimeout: time.Second},
		SlotKey:  h.slotName,
		Store:    store,
		Clock:    h.clock,
		Notifier: h.notes,
		Events:   h.events,
		Metrics:  h.metrics,
	})
	return h
}

func (h *harness) setState(mut func(s *economy.State)) {
	h.engine.mu.Lock()
	mut(&h.engine.state)
	h.engine.mu.Unlock()
}

type brokenStore struct {
	readErr, writeErr, deleteErr error
	mu                           sync.Mutex
	writes                       int
}

func (b *brokenStore) Read(context.Context, string) ([]byte, error) { return nil, b.readErr }

func (b *brokenStore) Write(context.Context, string, []byte) error {
	b.mu.Lock()
	b.writes++
	b.mu.Unlock()
	return b.writeErr
}

func (b *brokenStore) Delete(context.Context, string) error { return b.deleteErr }

func TestLoadEmptySlotGivesDefaults(t *testing.T) {
	h := newHarness(t, nil)
	res := h.engine.Load(h.ctx)

	assert.False(t, res.Restored)
	assert.False(t, res.Recovered)
	assert.Equal(t, economy.NewState(), h.engine.Snapshot())
	require.Len(t, h.events.GetByType(events.EventTypeGameLoaded), 1)
	assert.Empty(t, h.notes.All())
}

func TestLoadCorruptSlotGivesDefaults(t *testing.T) {
	store := storage.NewMemorySlotStore()
	require.NoError(t, store.Write(context.Background(), "test-slot", []byte("{not json")))

	h := newHarness(t, store)
	res := h.engine.Load(h.ctx)
	assert.True(t, res.Recovered)
	assert.Equal(t, economy.NewState(), h.engine.Snapshot())
	assert.Empty(t, h.notes.All(), "corrupt saves are not surfaced to the player")
}

func TestLoadUnreadableSlotGivesDefaults(t *testing.T) {
	h := newHarness(t, &brokenStore{readErr: errors.New("disk on fire")})
	res := h.engine.Load(h.ctx)
	assert.True(t, res.Recovered)
	assert.Equal(t, economy.NewState(), h.engine.Snapshot())
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.Load(h.ctx)
	h.setState(func(s *economy.State) { s.Currency, s.TotalEarned = 1000, 1000 })

	_, err := h.engine.Buy(h.ctx, upgrade.IDBartender)
	require.NoError(t, err)
	_, err = h.engine.ClaimBonus(h.ctx)
	require.NoError(t, err)
	h.engine.Tick()
	h.engine.Save(h.ctx)
	want := h.engine.Snapshot()

	again := newHarness(t, h.store)
	res := again.engine.Load(again.ctx)
	require.True(t, res.Restored)
	assert.True(t, res.SavedAt.Equal(t0))

	got := again.engine.Snapshot()
	assert.Equal(t, want.Currency, got.Currency)
	assert.Equal(t, want.PerSecond, got.PerSecond)
	assert.Equal(t, want.TotalEarned, got.TotalEarned)
	assert.Equal(t, want.Upgrades, got.Upgrades)
	assert.True(t, want.LastBonusClaimedAt.Equal(got.LastBonusClaimedAt))
	assert.False(t, again.engine.BonusStatus().Available)
}

func TestClick(t *testing.T) {
	h := newHarness(t, nil)
	res, err := h.engine.Click(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Gained)
	assert.Equal(t, 1.0, res.Currency)
	assert.Equal(t, 150*time.Millisecond, res.PulseFor)
	assert.Equal(t, int64(1), h.metrics.Clicks)
}

func TestBuyScenarios(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.engine.Buy(h.ctx, upgrade.IDTap)
	assert.ErrorIs(t, err, economy.ErrInsufficientFunds)
	last, ok := h.notes.Last()
	require.True(t, ok)
	assert.Equal(t, notify.KindError, last.Kind)
	assert.Equal(t, "Not enough beer!", last.Title)
	assert.Equal(t, "You need 10 more.", last.Description)
	assert.Len(t, h.events.GetByType(events.EventTypePurchaseRejected), 1)

	h.setState(func(s *economy.State) { s.Currency = 50 })
	p, err := h.engine.Buy(WithSource(h.ctx, SourceAPI), upgrade.IDBartender)
	require.NoError(t, err)
	assert.Equal(t, int64(50), p.Cost)

	s := h.engine.Snapshot()
	assert.Zero(t, s.Currency)
	assert.Equal(t, 1.0, s.PerSecond)
	assert.Equal(t, 1, s.Upgrades[upgrade.Index(s.Upgrades, upgrade.IDBartender)].Level)

	last, _ = h.notes.Last()
	assert.Equal(t, notify.KindSuccess, last.Kind)
	assert.Equal(t, "Bought Bartender!", last.Title)
	assert.Equal(t, "+1 per second, now 1 per second.", last.Description)

	bought := h.events.GetByType(events.EventTypeUpgradePurchased)
	require.Len(t, bought, 1)
	assert.Equal(t, SourceAPI, bought[0].Source)

	for _, o := range h.engine.Catalog() {
		if o.ID == upgrade.IDBartender {
			assert.Equal(t, int64(57), o.Cost)
			assert.False(t, o.Affordable)
		}
	}
}

func TestBuyUnknownIsSilent(t *testing.T) {
	h := newHarness(t, nil)
	before := h.engine.Snapshot()
	_, err := h.engine.Buy(h.ctx, "jukebox")
	assert.ErrorIs(t, err, economy.ErrUnknownUpgrade)
	assert.Empty(t, h.notes.All())
	assert.Zero(t, h.events.LastSeq())
	assert.Equal(t, before, h.engine.Snapshot())
}

func TestClaimBonusCooldown(t *testing.T) {
	h := newHarness(t, nil)
	h.setState(func(s *economy.State) { s.Currency, s.TotalEarned = 1000, 1000 })

	bonus, err := h.engine.ClaimBonus(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), bonus)
	assert.Equal(t, 1200.0, h.engine.Snapshot().Currency)
	last, _ := h.notes.Last()
	assert.Equal(t, "+200 beers", last.Description)

	_, err = h.engine.ClaimBonus(h.ctx)
	var cd *economy.CooldownError
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, 300*time.Second, cd.Remaining)
	last, _ = h.notes.Last()
	assert.Equal(t, notify.KindError, last.Kind)
	assert.Equal(t, "Come back in 5 minutes.", last.Description)

	h.clock.Advance(4*time.Minute + 30*time.Second)
	status := h.engine.BonusStatus()
	assert.False(t, status.Available)
	assert.Equal(t, "0:30", status.Countdown)
	_, err = h.engine.ClaimBonus(h.ctx)
	assert.ErrorIs(t, err, economy.ErrCooldownActive)
	last, _ = h.notes.Last()
	assert.Equal(t, "Come back in 1 minute.", last.Description)

	h.clock.Advance(30 * time.Second)
	assert.True(t, h.engine.BonusStatus().Available)
	_, err = h.engine.ClaimBonus(h.ctx)
	assert.NoError(t, err)
}

func TestTickAccruesPerSecond(t *testing.T) {
	h := newHarness(t, nil)
	assert.Zero(t, h.engine.Tick())

	h.setState(func(s *economy.State) { s.PerSecond = 3 })
	assert.Equal(t, 3.0, h.engine.Tick())
	assert.Equal(t, 3.0, h.engine.Snapshot().TotalEarned)
	assert.Equal(t, int64(2), h.metrics.TickCount)
}

func TestTickScalesToInterval(t *testing.T) {
	e := New(Deps{Config: config.EngineConfig{TickInterval: 250 * time.Millisecond}, Metrics: metrics.New()})
	e.mu.Lock()
	e.state.PerSecond = 4
	e.mu.Unlock()
	assert.Equal(t, 1.0, e.Tick())
}

func TestResetRequiresConfirmation(t *testing.T) {
	h := newHarness(t, nil)
	h.setState(func(s *economy.State) { s.Currency, s.TotalEarned = 500, 800 })
	h.engine.Save(h.ctx)

	ok, err := h.engine.Reset(h.ctx, notify.Always(false))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 500.0, h.engine.Snapshot().Currency)
	_, err = h.store.Read(h.ctx, h.slotName)
	assert.NoError(t, err)

	ok, err = h.engine.Reset(h.ctx, notify.Always(true))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, economy.NewState(), h.engine.Snapshot())
	_, err = h.store.Read(h.ctx, h.slotName)
	assert.ErrorIs(t, err, storage.ErrSlotEmpty)

	last, _ := h.notes.Last()
	assert.Equal(t, notify.KindInfo, last.Kind)
	reset := h.events.GetByType(events.EventTypeProgressReset)
	require.Len(t, reset, 1)
	assert.Equal(t, 800.0, reset[0].Payload.(events.ProgressResetPayload).TotalEarned)
}

func TestResetSwallowsDeleteError(t *testing.T) {
	h := newHarness(t, &brokenStore{deleteErr: errors.New("read-only")})
	h.setState(func(s *economy.State) { s.Currency, s.TotalEarned = 5, 5 })

	ok, err := h.engine.Reset(h.ctx, notify.Always(true))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, h.engine.Snapshot().Currency)
}

type failingConfirmer struct{}

func (failingConfirmer) Confirm(context.Context, string) (bool, error) {
	return false, errors.New("stdin closed")
}

func TestResetConfirmerError(t *testing.T) {
	h := newHarness(t, nil)
	ok, err := h.engine.Reset(h.ctx, failingConfirmer{})
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestSaveFailureIsSwallowed(t *testing.T) {
	store := &brokenStore{writeErr: errors.New("quota exceeded")}
	h := newHarness(t, store)

	h.engine.Save(h.ctx)
	assert.Equal(t, 1, store.writes)
	assert.Equal(t, int64(1), h.metrics.SaveErrors)

	failed := h.events.GetByType(events.EventTypeSaveFailed)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Payload.(events.SaveFailedPayload).Error, "quota exceeded")
}

func TestStartStop(t *testing.T) {
	store := storage.NewMemorySlotStore()
	e := New(Deps{
		Config:  config.EngineConfig{TickInterval: 5 * time.Millisecond, AutosaveInterval: 10 * time.Millisecond},
		SlotKey: "slot",
		Store:   store,
		Metrics: metrics.New(),
	})
	e.Load(context.Background())
	e.mu.Lock()
	e.state.PerSecond = 10
	e.mu.Unlock()

	require.NoError(t, e.Start(context.Background()))
	require.NoError(t, e.Start(context.Background()), "second start is a no-op")

	assert.Eventually(t, func() bool { return e.Snapshot().Currency > 0 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		_, err := store.Read(context.Background(), "slot")
		return err == nil
	}, time.Second, 5*time.Millisecond)

	e.Stop()
	after := e.Snapshot()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, e.Snapshot(), "no tick mutates state after Stop")
	assert.Zero(t, e.Tick())

	data, err := store.Read(context.Background(), "slot")
	require.NoError(t, err)
	saved, _, err := storage.DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, after.Currency, saved.Currency, "Stop writes a final save")

	_, err = e.Click(context.Background())
	assert.ErrorIs(t, err, ErrEngineStopped)
	_, err = e.Buy(context.Background(), upgrade.IDTap)
	assert.ErrorIs(t, err, ErrEngineStopped)
	_, err = e.ClaimBonus(context.Background())
	assert.ErrorIs(t, err, ErrEngineStopped)
	_, err = e.Reset(context.Background(), notify.Always(true))
	assert.ErrorIs(t, err, ErrEngineStopped)
	assert.ErrorIs(t, e.Start(context.Background()), ErrEngineStopped)

	e.Stop()
}

func TestConcurrentClicksAreSerialized(t *testing.T) {
	h := newHarness(t, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _ = h.engine.Click(h.ctx)
				h.engine.Tick()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000.0, h.engine.Snapshot().Currency)
}

func TestView(t *testing.T) {
	h := newHarness(t, nil)
	h.setState(func(s *economy.State) { s.Currency, s.TotalEarned = 12.7, 12.7 })
	v := h.engine.View()
	assert.Equal(t, int64(12), v.Currency)
	assert.Equal(t, 12.7, v.RawCurrency)
	assert.True(t, v.Bonus.Available)
	require.Len(t, v.Upgrades, 6)
	assert.True(t, v.Upgrades[0].Affordable)
	assert.False(t, v.Upgrades[1].Affordable)
}

func TestBuyMaxedUpgradeIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	h.setState(func(s *economy.State) {
		s.Upgrades[upgrade.Index(s.Upgrades, upgrade.IDTap)].Level = 400
		s.Currency, s.TotalEarned = 1e30, 1e30
	})
	before := h.engine.Snapshot()

	_, err := h.engine.Buy(h.ctx, upgrade.IDTap)
	assert.ErrorIs(t, err, economy.ErrUpgradeMaxed)
	assert.Equal(t, before, h.engine.Snapshot())
	assert.Equal(t, int64(1), h.metrics.PurchasesRejected)

	last, ok := h.notes.Last()
	require.True(t, ok)
	assert.Equal(t, notify.KindError, last.Kind)
	assert.Empty(t, h.events.GetByType(events.EventTypeUpgradePurchased))

	tap := h.engine.Catalog()[upgrade.Index(before.Upgrades, upgrade.IDTap)]
	assert.True(t, tap.Maxed)
	assert.False(t, tap.Affordable)
}

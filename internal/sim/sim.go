// Package sim replays a scripted player against a real engine on a fake clock
// to check pacing and the economy invariants over hours of play in milliseconds.
package sim

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/BeerClicker/server/internal/engine"
	"github.com/MRamiBalles/BeerClicker/server/internal/events"
	"github.com/MRamiBalles/BeerClicker/server/internal/infra/storage"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/clock"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/config"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/logger"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/metrics"
)

// Config drives one simulation.
type Config struct {
	Duration        time.Duration // Simulated play time
	ClicksPerSecond int
	ClaimBonus      bool // Claim the bonus whenever it is available
	Buy             bool // Buy the cheapest affordable upgrade each second
	Start           time.Time
}

// DefaultConfig is one hour of an attentive player.
func DefaultConfig() Config {
	return Config{
		Duration:        time.Hour,
		ClicksPerSecond: 5,
		ClaimBonus:      true,
		Buy:             true,
		Start:           time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Milestone is the first purchase of an upgrade.
type Milestone struct {
	UpgradeID string        `json:"upgrade_id"`
	Name      string        `json:"name"`
	At        time.Duration `json:"at"`
	Cost      int64         `json:"cost"`
}

// Violation is a broken invariant.
type Violation struct {
	At     time.Duration `json:"at"`
	Reason string        `json:"reason"`
}

// Report is the outcome of Run.
type Report struct {
	Duration    time.Duration  `json:"duration"`
	Clicks      int            `json:"clicks"`
	Purchases   int            `json:"purchases"`
	Bonuses     int            `json:"bonuses"`
	BonusTotal  int64          `json:"bonus_total"`
	Milestones  []Milestone    `json:"milestones"`
	Levels      map[string]int `json:"levels"`
	Currency    float64        `json:"currency"`
	PerClick    float64        `json:"per_click"`
	PerSecond   float64        `json:"per_second"`
	TotalEarned float64        `json:"total_earned"`
	Violations  []Violation    `json:"violations"`
}

// Passed reports whether every invariant held.
func (r Report) Passed() bool {
	return len(r.Violations) == 0
}

type runner struct {
	cfg     Config
	engine  *engine.Engine
	clock   *clock.FakeClock
	store   *storage.MemorySlotStore
	report  Report
	elapsed time.Duration
	prev    economy.State
	seen    map[string]bool
}

// Run simulates cfg.Duration of play, one engine tick per simulated second.
func Run(ctx context.Context, cfg Config, log *logger.Logger) (Report, error) {
	if cfg.Duration <= 0 {
		return Report{}, fmt.Errorf("duration must be positive, got %s", cfg.Duration)
	}
	if cfg.ClicksPerSecond < 0 {
		return Report{}, fmt.Errorf("clicks per second must not be negative, got %d", cfg.ClicksPerSecond)
	}
	if cfg.Start.IsZero() {
		cfg.Start = DefaultConfig().Start
	}
	if log == nil {
		log = logger.Discard()
	}

	r := &runner{
		cfg:   cfg,
		clock: clock.NewFakeClock(cfg.Start),
		store: storage.NewMemorySlotStore(),
		seen:  make(map[string]bool),
	}
	engineCfg := config.Default().Engine
	engineCfg.TickInterval = time.Second
	r.engine = engine.New(engine.Deps{
		Config:  engineCfg,
		Store:   r.store,
		Clock:   r.clock,
		Events:  events.NewEventLog(16, nil),
		Logger:  log,
		Metrics: metrics.New(),
	})
	ctx = engine.WithSource(ctx, engine.SourceSim)
	r.engine.Load(ctx)
	r.prev = r.engine.Snapshot()

	for r.elapsed < cfg.Duration {
		if err := ctx.Err(); err != nil {
			return r.report, err
		}
		if err := r.step(ctx); err != nil {
			return r.report, err
		}
	}

	r.checkRoundTrip(ctx)
	r.finish()
	return r.report, nil
}

func (r *runner) step(ctx context.Context) error {
	for i := 0; i < r.cfg.ClicksPerSecond; i++ {
		if _, err := r.engine.Click(ctx); err != nil {
			return err
		}
		r.report.Clicks++
		r.check("click")
	}

	if r.cfg.ClaimBonus && r.engine.BonusStatus().Available {
		bonus, err := r.engine.ClaimBonus(ctx)
		if err != nil {
			return err
		}
		r.report.Bonuses++
		r.report.BonusTotal += bonus
		r.check("bonus")
	}

	if r.cfg.Buy {
		for r.buyCheapest(ctx) {
			r.check("buy")
		}
	}

	r.engine.Tick()
	r.check("tick")

	r.clock.Advance(time.Second)
	r.elapsed += time.Second
	return nil
}

// buyCheapest buys the cheapest affordable upgrade, if any.
func (r *runner) buyCheapest(ctx context.Context) bool {
	offers := r.engine.Catalog()
	sort.SliceStable(offers, func(i, j int) bool { return offers[i].Cost < offers[j].Cost })
	for _, o := range offers {
		if !o.Affordable {
			continue
		}
		p, err := r.engine.Buy(ctx, o.ID)
		if err != nil {
			r.violate(fmt.Sprintf("affordable %s rejected: %v", o.ID, err))
			return false
		}
		r.report.Purchases++
		if !r.seen[o.ID] {
			r.seen[o.ID] = true
			r.report.Milestones = append(r.report.Milestones, Milestone{
				UpgradeID: o.ID,
				Name:      o.Name,
				At:        r.elapsed,
				Cost:      p.Cost,
			})
		}
		return true
	}
	return false
}

// check verifies the invariants against the previous snapshot.
func (r *runner) check(after string) {
	s := r.engine.Snapshot()
	if math.IsNaN(s.Currency) || s.Currency < 0 {
		r.violate(fmt.Sprintf("currency %v after %s", s.Currency, after))
	}
	if s.TotalEarned < r.prev.TotalEarned {
		r.violate(fmt.Sprintf("totalEarned fell from %v to %v after %s", r.prev.TotalEarned, s.TotalEarned, after))
	}
	if s.Currency > s.TotalEarned {
		r.violate(fmt.Sprintf("currency %v above totalEarned %v after %s", s.Currency, s.TotalEarned, after))
	}
	r.prev = s
}

// checkRoundTrip saves, reloads into a second engine and compares.
func (r *runner) checkRoundTrip(ctx context.Context) {
	r.engine.Save(ctx)
	again := engine.New(engine.Deps{Store: r.store, Clock: r.clock, Metrics: metrics.New()})
	if res := again.Load(ctx); !res.Restored {
		r.violate("saved game did not load back")
		return
	}
	want, got := r.engine.Snapshot(), again.Snapshot()
	if want.Currency != got.Currency || want.TotalEarned != got.TotalEarned ||
		want.PerClick != got.PerClick || want.PerSecond != got.PerSecond ||
		!want.LastBonusClaimedAt.Equal(got.LastBonusClaimedAt) {
		r.violate("state changed across save and load")
	}
	for i := range want.Upgrades {
		if want.Upgrades[i].Level != got.Upgrades[i].Level {
			r.violate("upgrade " + want.Upgrades[i].ID + " level changed across save and load")
		}
	}
}

func (r *runner) violate(reason string) {
	r.report.Violations = append(r.report.Violations, Violation{At: r.elapsed, Reason: reason})
}

func (r *runner) finish() {
	s := r.engine.Snapshot()
	r.report.Duration = r.elapsed
	r.report.Currency = s.Currency
	r.report.PerClick = s.PerClick
	r.report.PerSecond = s.PerSecond
	r.report.TotalEarned = s.TotalEarned
	r.report.Levels = make(map[string]int, len(s.Upgrades))
	for _, u := range s.Upgrades {
		r.report.Levels[u.ID] = u.Level
	}
}

// Print writes a human-readable timeline.
func (r Report) Print(w io.Writer) {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "BALANCE SIMULATION: %s of play\n", r.Duration)
	fmt.Fprintln(w, line)

	fmt.Fprintln(w, "\nFirst purchases:")
	if len(r.Milestones) == 0 {
		fmt.Fprintln(w, "   (none)")
	}
	for _, m := range r.Milestones {
		fmt.Fprintf(w, "   %-14s at %-9s for %s\n", m.Name, m.At, humanize.Comma(m.Cost))
	}

	fmt.Fprintln(w, "\nFinal economy:")
	fmt.Fprintf(w, "   Beers:        %s\n", humanize.Comma(int64(r.Currency)))
	fmt.Fprintf(w, "   Total earned: %s\n", humanize.Comma(int64(r.TotalEarned)))
	fmt.Fprintf(w, "   Per click:    %s\n", humanize.Commaf(r.PerClick))
	fmt.Fprintf(w, "   Per second:   %s\n", humanize.Commaf(r.PerSecond))
	fmt.Fprintf(w, "   Clicks: %s  Purchases: %d  Bonuses: %d (%s beers)\n",
		humanize.Comma(int64(r.Clicks)), r.Purchases, r.Bonuses, humanize.Comma(r.BonusTotal))

	fmt.Fprintln(w, "\n"+line)
	if r.Passed() {
		fmt.Fprintln(w, "PASSED: all invariants held")
	} else {
		fmt.Fprintf(w, "FAILED: %d invariant violations\n", len(r.Violations))
		for _, v := range r.Violations {
			fmt.Fprintf(w, "   [%s] %s\n", v.At, v.Reason)
		}
	}
	fmt.Fprintln(w, line)
}

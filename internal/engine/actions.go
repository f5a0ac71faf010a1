package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/BeerClicker/server/internal/domain/rules"
	"github.com/MRamiBalles/BeerClicker/server/internal/domain/upgrade"
	"github.com/MRamiBalles/BeerClicker/server/internal/events"
	"github.com/MRamiBalles/BeerClicker/server/internal/notify"
)

// ClickPulse is how long the UI should pulse the glass after a click.
const ClickPulse = 150 * time.Millisecond

// ClickResult is returned by Click.
type ClickResult struct {
	Gained   float64       `json:"gained"`
	Currency float64       `json:"currency"`
	PulseFor time.Duration `json:"pulseFor"`
}

// Click adds PerClick to the balance.
func (e *Engine) Click(ctx context.Context) (ClickResult, error) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ClickResult{}, ErrEngineStopped
	}
	gained := e.state.Click()
	currency := e.state.Currency
	e.mu.Unlock()

	e.metrics.RecordClick()
	return ClickResult{Gained: gained, Currency: currency, PulseFor: ClickPulse}, nil
}

// Buy purchases one level of the upgrade id.
// Unknown ids are a silent no-op returning economy.ErrUnknownUpgrade.
func (e *Engine) Buy(ctx context.Context, id string) (economy.Purchase, error) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return economy.Purchase{}, ErrEngineStopped
	}
	p, err := e.state.Buy(id)
	e.mu.Unlock()

	var funds *economy.InsufficientFundsError
	switch {
	case errors.Is(err, economy.ErrUnknownUpgrade):
		return p, err
	case errors.Is(err, economy.ErrUpgradeMaxed):
		e.metrics.RecordPurchase(false)
		e.notifier.Notify(notify.Notification{
			Kind:  notify.KindError,
			Title: "Already maxed out!",
		})
		return p, err
	case errors.As(err, &funds):
		e.metrics.RecordPurchase(false)
		e.notifier.Notify(notify.Notification{
			Kind:        notify.KindError,
			Title:       "Not enough beer!",
			Description: fmt.Sprintf("You need %s more.", humanize.Comma(funds.Missing())),
		})
		e.record(ctx, events.EventTypePurchaseRejected, events.PurchaseRejectedPayload{
			UpgradeID: id,
			Cost:      funds.Cost,
			Have:      int64(funds.Have),
		})
		return p, err
	case err != nil:
		return p, err
	}

	e.metrics.RecordPurchase(true)
	e.notifier.Notify(notify.Notification{
		Kind:        notify.KindSuccess,
		Title:       fmt.Sprintf("Bought %s!", p.Upgrade.Name),
		Description: fmt.Sprintf("+%s %s, now %s %s.", humanize.Ftoa(p.Upgrade.Multiplier), rateLabel(p.Target), humanize.Commaf(p.NewRate), rateLabel(p.Target)),
	})
	e.record(ctx, events.EventTypeUpgradePurchased, events.UpgradePurchasedPayload{
		UpgradeID: p.Upgrade.ID,
		Level:     p.Upgrade.Level,
		Cost:      p.Cost,
		Target:    string(p.Target),
		NewRate:   p.NewRate,
	})
	e.logger.Event(string(events.EventTypeUpgradePurchased), SourceFrom(ctx),
		fmt.Sprintf("%s -> level %d for %d", p.Upgrade.ID, p.Upgrade.Level, p.Cost))
	return p, nil
}

func rateLabel(t upgrade.Target) string {
	if t == upgrade.PerClick {
		return "per click"
	}
	return "per second"
}

// ClaimBonus grants the periodic bonus if the cooldown has elapsed.
func (e *Engine) ClaimBonus(ctx context.Context) (int64, error) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return 0, ErrEngineStopped
	}
	bonus, err := e.state.ClaimBonus(e.clock.Now())
	currency := e.state.Currency
	e.mu.Unlock()

	var cooldown *economy.CooldownError
	if errors.As(err, &cooldown) {
		e.metrics.RecordBonus(false)
		minutes := cooldown.RemainingMinutes()
		e.notifier.Notify(notify.Notification{
			Kind:        notify.KindError,
			Title:       "Bonus not ready yet",
			Description: fmt.Sprintf("Come back in %s.", english.Plural(minutes, "minute", "")),
		})
		e.record(ctx, events.EventTypeBonusRejected, events.BonusRejectedPayload{
			RemainingSeconds: cooldown.Remaining.Seconds(),
			Countdown:        rules.Countdown(cooldown.Remaining),
		})
		return 0, err
	}
	if err != nil {
		return 0, err
	}

	e.metrics.RecordBonus(true)
	e.notifier.Notify(notify.Notification{
		Kind:        notify.KindSuccess,
		Title:       "Bonus claimed!",
		Description: fmt.Sprintf("+%s beers", humanize.Comma(bonus)),
	})
	e.record(ctx, events.EventTypeBonusClaimed, events.BonusClaimedPayload{Amount: bonus, Currency: currency})
	e.logger.Event(string(events.EventTypeBonusClaimed), SourceFrom(ctx), fmt.Sprintf("+%d", bonus))
	return bonus, nil
}

// BonusStatus reports the bonus gate at the engine clock's now.
func (e *Engine) BonusStatus() economy.BonusStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Bonus(e.clock.Now())
}

// ResetPrompt is the question put to the Confirmer by Reset.
const ResetPrompt = "Reset all progress? This cannot be undone."

// Reset wipes the save slot and returns to the default state, but only after
// confirm answers true. It reports false when the user declined.
func (e *Engine) Reset(ctx context.Context, confirm notify.Confirmer) (bool, error) {
	if e.Stopped() {
		return false, ErrEngineStopped
	}
	ok, err := confirm.Confirm(ctx, ResetPrompt)
	if err != nil {
		return false, fmt.Errorf("reset confirmation failed: %w", err)
	}
	if !ok {
		e.logger.Info("Reset declined.")
		return false, nil
	}

	e.saveMu.Lock()
	if err := e.store.Delete(ctx, e.slotKey); err != nil {
		e.logger.Warnf("Failed to clear save slot %q: %v", e.slotKey, err)
	}
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		e.saveMu.Unlock()
		return false, ErrEngineStopped
	}
	discarded := e.state.TotalEarned
	e.state = economy.NewState()
	e.mu.Unlock()
	e.saveMu.Unlock()

	e.metrics.RecordReset()
	e.metrics.RecordEconomy(0, 0, 0)
	e.notifier.Notify(notify.Notification{
		Kind:        notify.KindInfo,
		Title:       "Progress reset",
		Description: "Back to a single tap. Cheers!",
	})
	e.record(ctx, events.EventTypeProgressReset, events.ProgressResetPayload{TotalEarned: discarded})
	e.logger.Event(string(events.EventTypeProgressReset), SourceFrom(ctx), fmt.Sprintf("discarded %.0f lifetime beers", discarded))
	return true, nil
}

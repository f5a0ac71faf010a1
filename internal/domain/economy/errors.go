package economy

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/rules"
)

var (
	ErrUnknownUpgrade    = errors.New("unknown upgrade")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrCooldownActive    = errors.New("bonus is still cooling down")
	ErrUpgradeMaxed      = errors.New("upgrade is at its maximum level")
)

// InsufficientFundsError is returned when a purchase costs more than the balance.
type InsufficientFundsError struct {
	UpgradeID string
	Cost      int64
	Have      float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for %s: need %d, have %d", e.UpgradeID, e.Cost, int64(math.Floor(e.Have)))
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// Missing is how much more currency the purchase needs.
func (e *InsufficientFundsError) Missing() int64 {
	return int64(math.Ceil(float64(e.Cost) - e.Have))
}

// CooldownError is returned when a bonus is claimed before the cooldown elapsed.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("bonus is still cooling down: %s left", rules.Countdown(e.Remaining))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

// RemainingMinutes rounds the wait up to whole minutes for display.
func (e *CooldownError) RemainingMinutes() int {
	return rules.CeilMinutes(e.Remaining)
}

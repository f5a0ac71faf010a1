// Package rules contains the pure calculation logic for the beer economy.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"fmt"
	"math"
	"time"
)

const (
	// CostGrowth is the compounding price step per upgrade level (15%).
	CostGrowth = 1.15

	// BonusRate is the share of current holdings granted by a bonus claim.
	BonusRate = 0.10
	// BonusFlat is added on top of every bonus claim.
	BonusFlat = 100

	// BonusCooldown is the waiting period between two bonus claims.
	BonusCooldown = 5 * time.Minute
)

// CostMaxed is the price reported once floor(baseCost * 1.15^level) no longer fits in an int64.
// Nothing can be bought at that price.
const CostMaxed int64 = math.MaxInt64

// twoTo63 is the smallest float64 that does not convert to an int64.
const twoTo63 = float64(1 << 63)

// UpgradeCost returns floor(baseCost * 1.15^level), saturated at CostMaxed.
func UpgradeCost(baseCost float64, level int) int64 {
	if level < 0 {
		level = 0
	}
	cost := math.Floor(baseCost * math.Pow(CostGrowth, float64(level)))
	if math.IsNaN(cost) || cost >= twoTo63 {
		return CostMaxed
	}
	return int64(cost)
}

// MaxLevel is the first level whose price saturates. An upgrade can be bought up
// to this level and no further; below it the price is strictly increasing.
func MaxLevel(baseCost float64) int {
	if baseCost <= 0 {
		return math.MaxInt
	}
	level := 0
	for UpgradeCost(baseCost, level) != CostMaxed {
		level++
	}
	return level
}

// BonusFor computes the bonus granted for the given holdings.
func BonusFor(currency float64) int64 {
	if currency < 0 {
		currency = 0
	}
	return int64(math.Floor(currency*BonusRate)) + BonusFlat
}

// CooldownRemaining reports how long until the next bonus can be claimed.
// A zero lastClaim means the bonus was never claimed.
func CooldownRemaining(lastClaim, now time.Time) time.Duration {
	if lastClaim.IsZero() {
		return 0
	}
	remaining := BonusCooldown - now.Sub(lastClaim)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CeilMinutes rounds d up to whole minutes.
func CeilMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}

// Countdown renders d as "m:ss", rounding partial seconds up.
func Countdown(d time.Duration) string {
	if d <= 0 {
		return "0:00"
	}
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

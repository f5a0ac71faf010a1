// Package upgrade defines the purchasable upgrade catalog of the beer economy.
// This package is PURE and must NOT import any infrastructure packages.
package upgrade

import "github.com/MRamiBalles/BeerClicker/server/internal/domain/rules"

// Target names the rate an upgrade raises.
type Target string

const (
	PerClick  Target = "perClick"
	PerSecond Target = "perSecond"
)

// Valid reports whether t is one of the known targets.
func (t Target) Valid() bool {
	return t == PerClick || t == PerSecond
}

// Upgrade is a repeatable catalog entry. Only Level changes after creation.
type Upgrade struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	BaseCost    float64 `json:"baseCost"`
	Level       int     `json:"level"`
	Multiplier  float64 `json:"multiplier"` // Added to the target rate per level
	Icon        string  `json:"icon"`
	AppliesTo   Target  `json:"appliesTo"`
}

// Cost is the price of the next level, rules.CostMaxed once it cannot be represented.
func (u Upgrade) Cost() int64 {
	return rules.UpgradeCost(u.BaseCost, u.Level)
}

// Maxed reports whether no further level can be bought.
func (u Upgrade) Maxed() bool {
	return u.Level >= rules.MaxLevel(u.BaseCost)
}

// Catalog IDs.
const (
	IDTap       = "tap"
	IDBartender = "bartender"
	IDKeg       = "keg"
	IDBrewery   = "brewery"
	IDPub       = "pub"
	IDFactory   = "factory"
)

// Catalog returns a fresh copy of the fixed catalog, every entry at level 0.
// Exactly one entry raises PerClick.
func Catalog() []Upgrade {
	return []Upgrade{
		{
			ID:          IDTap,
			Name:        "Beer Tap",
			Description: "A faster tap. More beer with every click.",
			BaseCost:    10,
			Multiplier:  1,
			Icon:        "Beer",
			AppliesTo:   PerClick,
		},
		{
			ID:          IDBartender,
			Name:        "Bartender",
			Description: "Pours a glass for you every second.",
			BaseCost:    50,
			Multiplier:  1,
			Icon:        "User",
			AppliesTo:   PerSecond,
		},
		{
			ID:          IDKeg,
			Name:        "Keg Room",
			Description: "A cellar full of kegs on constant flow.",
			BaseCost:    200,
			Multiplier:  5,
			Icon:        "Database",
			AppliesTo:   PerSecond,
		},
		{
			ID:          IDBrewery,
			Name:        "Home Brewery",
			Description: "Brew your own. Batches never stop.",
			BaseCost:    1000,
			Multiplier:  20,
			Icon:        "Factory",
			AppliesTo:   PerSecond,
		},
		{
			ID:          IDPub,
			Name:        "Corner Pub",
			Description: "Regulars drinking on your behalf.",
			BaseCost:    5000,
			Multiplier:  100,
			Icon:        "Store",
			AppliesTo:   PerSecond,
		},
		{
			ID:          IDFactory,
			Name:        "Beer Factory",
			Description: "Industrial lines, tankers at the gate.",
			BaseCost:    25000,
			Multiplier:  500,
			Icon:        "Building2",
			AppliesTo:   PerSecond,
		},
	}
}

// Index returns the position of id in ups, or -1.
func Index(ups []Upgrade, id string) int {
	for i := range ups {
		if ups[i].ID == id {
			return i
		}
	}
	return -1
}

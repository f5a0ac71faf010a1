package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/BeerClicker/server/internal/domain/rules"
	"github.com/MRamiBalles/BeerClicker/server/internal/domain/upgrade"
)

// SnapshotVersion is the schema version written by EncodeSnapshot.
// Version 0 (field absent) is the legacy shape and still decodes.
const SnapshotVersion = 1

// ErrCorruptSnapshot means the stored save could not be turned back into a valid state.
var ErrCorruptSnapshot = errors.New("corrupt save snapshot")

type snapshotUpgrade struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	BaseCost    float64 `json:"baseCost"`
	Level       int     `json:"level"`
	Multiplier  float64 `json:"multiplier"`
	Icon        string  `json:"icon"`
	AppliesTo   string  `json:"appliesTo,omitempty"`
}

// snapshot is the persisted JSON document. Times are Unix milliseconds.
type snapshot struct {
	Version            int               `json:"version"`
	Currency           float64           `json:"currency"`
	PerClick           float64           `json:"perClick"`
	PerSecond          float64           `json:"perSecond"`
	TotalEarned        float64           `json:"totalEarned"`
	Upgrades           []snapshotUpgrade `json:"upgrades"`
	LastBonusClaimedAt *int64            `json:"lastBonusClaimedAt"`
	SavedAt            int64             `json:"savedAt"`
}

// EncodeSnapshot serializes the state for a save slot.
func EncodeSnapshot(s economy.State, savedAt time.Time) ([]byte, error) {
	doc := snapshot{
		Version:     SnapshotVersion,
		Currency:    s.Currency,
		PerClick:    s.PerClick,
		PerSecond:   s.PerSecond,
		TotalEarned: s.TotalEarned,
		Upgrades:    make([]snapshotUpgrade, 0, len(s.Upgrades)),
		SavedAt:     savedAt.UnixMilli(),
	}
	if !s.LastBonusClaimedAt.IsZero() {
		ms := s.LastBonusClaimedAt.UnixMilli()
		doc.LastBonusClaimedAt = &ms
	}
	for _, u := range s.Upgrades {
		doc.Upgrades = append(doc.Upgrades, snapshotUpgrade{
			ID:          u.ID,
			Name:        u.Name,
			Description: u.Description,
			BaseCost:    u.BaseCost,
			Level:       u.Level,
			Multiplier:  u.Multiplier,
			Icon:        u.Icon,
			AppliesTo:   string(u.AppliesTo),
		})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a save slot and merges the saved levels into the
// current catalog by id. Unknown ids are dropped; new catalog entries start at level 0.
// It returns the state and the time the snapshot was written.
func DecodeSnapshot(data []byte) (economy.State, time.Time, error) {
	var doc snapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		return economy.State{}, time.Time{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if doc.Version != 0 && doc.Version != SnapshotVersion {
		return economy.State{}, time.Time{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, doc.Version)
	}
	if err := doc.validate(); err != nil {
		return economy.State{}, time.Time{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	ups := upgrade.Catalog()
	for _, saved := range doc.Upgrades {
		if i := upgrade.Index(ups, saved.ID); i >= 0 {
			if saved.Level > rules.MaxLevel(ups[i].BaseCost) {
				return economy.State{}, time.Time{}, fmt.Errorf("%w: %s level %d is past the last purchasable level", ErrCorruptSnapshot, saved.ID, saved.Level)
			}
			ups[i].Level = saved.Level
		}
	}

	s := economy.State{
		Currency:    doc.Currency,
		PerClick:    doc.PerClick,
		PerSecond:   doc.PerSecond,
		TotalEarned: doc.TotalEarned,
		Upgrades:    ups,
	}
	if doc.LastBonusClaimedAt != nil {
		s.LastBonusClaimedAt = time.UnixMilli(*doc.LastBonusClaimedAt).UTC()
	}

	var savedAt time.Time
	if doc.SavedAt > 0 {
		savedAt = time.UnixMilli(doc.SavedAt).UTC()
	}
	return s, savedAt, nil
}

func (d snapshot) validate() error {
	for name, v := range map[string]float64{
		"currency":    d.Currency,
		"perClick":    d.PerClick,
		"perSecond":   d.PerSecond,
		"totalEarned": d.TotalEarned,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%s out of range: %v", name, v)
		}
	}
	if d.PerClick <= 0 {
		return fmt.Errorf("perClick must be positive, got %v", d.PerClick)
	}
	if d.TotalEarned < d.Currency {
		return fmt.Errorf("totalEarned %v below currency %v", d.TotalEarned, d.Currency)
	}
	for _, u := range d.Upgrades {
		if u.Level < 0 {
			return fmt.Errorf("upgrade %q has negative level %d", u.ID, u.Level)
		}
	}
	return nil
}

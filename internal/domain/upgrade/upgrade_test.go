package upgrade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogShape(t *testing.T) {
	cat := Catalog()
	require.Len(t, cat, 6)

	seen := map[string]bool{}
	perClick := 0
	for _, u := range cat {
		assert.False(t, seen[u.ID], "duplicate id %s", u.ID)
		seen[u.ID] = true
		assert.Zero(t, u.Level, u.ID)
		assert.Positive(t, u.BaseCost, u.ID)
		assert.Positive(t, u.Multiplier, u.ID)
		assert.NotEmpty(t, u.Icon, u.ID)
		assert.True(t, u.AppliesTo.Valid(), u.ID)
		if u.AppliesTo == PerClick {
			perClick++
		}
	}
	assert.Equal(t, 1, perClick)
	assert.Equal(t, PerClick, cat[Index(cat, IDTap)].AppliesTo)
}

func TestCatalogReturnsCopy(t *testing.T) {
	a := Catalog()
	a[0].Level = 7
	b := Catalog()
	assert.Zero(t, b[0].Level)
}

func TestCostFollowsLevel(t *testing.T) {
	cat := Catalog()
	bartender := cat[Index(cat, IDBartender)]
	assert.Equal(t, int64(50), bartender.Cost())
	bartender.Level = 1
	assert.Equal(t, int64(57), bartender.Cost())
}

func TestIndex(t *testing.T) {
	cat := Catalog()
	assert.Equal(t, 0, Index(cat, IDTap))
	assert.Equal(t, 5, Index(cat, IDFactory))
	assert.Equal(t, -1, Index(cat, "jukebox"))
}

func TestTargetValid(t *testing.T) {
	assert.True(t, PerClick.Valid())
	assert.True(t, PerSecond.Valid())
	assert.False(t, Target("perMinute").Valid())
}

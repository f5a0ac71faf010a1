package sim

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/upgrade"
)

func TestRunHourOfPlay(t *testing.T) {
	report, err := Run(context.Background(), DefaultConfig(), nil)
	require.NoError(t, err)

	assert.True(t, report.Passed(), "violations: %v", report.Violations)
	assert.Equal(t, time.Hour, report.Duration)
	assert.Equal(t, 5*3600, report.Clicks)
	assert.Equal(t, 12, report.Bonuses, "one bonus every five minutes")
	require.NotEmpty(t, report.Milestones)
	assert.Equal(t, upgrade.IDTap, report.Milestones[0].UpgradeID)
	assert.Equal(t, int64(10), report.Milestones[0].Cost)
	assert.Greater(t, report.PerSecond, 0.0)
	assert.GreaterOrEqual(t, report.TotalEarned, report.Currency)

	var buf bytes.Buffer
	report.Print(&buf)
	assert.Contains(t, buf.String(), "PASSED")
	assert.Contains(t, buf.String(), "Beer Tap")
}

func TestRunIdleOnlyEarnsBonuses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Duration = 10 * time.Minute
	cfg.ClicksPerSecond = 0
	cfg.Buy = false

	report, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.True(t, report.Passed())
	assert.Equal(t, 2, report.Bonuses)
	assert.Zero(t, report.PerSecond)
	// 100 at t=0, then floor(100*0.1)+100 at t=5m.
	assert.Equal(t, 210.0, report.Currency)
}

func TestRunRejectsBadConfig(t *testing.T) {
	_, err := Run(context.Background(), Config{}, nil)
	assert.Error(t, err)

	_, err = Run(context.Background(), Config{Duration: time.Second, ClicksPerSecond: -1}, nil)
	assert.Error(t, err)
}

func TestRunHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, DefaultConfig(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

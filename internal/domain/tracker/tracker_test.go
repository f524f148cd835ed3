package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfguard/backend/internal/shared/types"
)

var t0 = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func tick(n int) time.Time {
	return t0.Add(time.Duration(n) * 2 * time.Second)
}

func agg(cpu, memMB, gpu float64, pids ...uint32) *types.AggregatedProcess {
	return &types.AggregatedProcess{
		Name:       "opera",
		CPUPercent: cpu,
		MemoryMB:   memMB,
		GPUPercent: gpu,
		PIDs:       pids,
	}
}

func TestSessionLifecycle(t *testing.T) {
	tr := New(1, 150)

	// Running for ticks 1-5, absent at tick 6.
	for n := 1; n <= 5; n++ {
		closed := tr.Observe(tick(n), "opera", agg(10, 100, 0, 1), types.AttributedActivity{})
		assert.Nil(t, closed)
	}
	require.Equal(t, 1, tr.LiveCount())

	closed := tr.Observe(tick(6), "opera", nil, types.AttributedActivity{})
	require.NotNil(t, closed)

	assert.Equal(t, int64(1), closed.ID)
	assert.Equal(t, "opera", closed.AppName)
	assert.Equal(t, tick(1), closed.StartTime)
	assert.Equal(t, tick(6), closed.EndTime)
	assert.Equal(t, int64(10), closed.DurationSeconds) // 5 intervals of 2s
	assert.Len(t, closed.History, 5)
	assert.Zero(t, tr.LiveCount())
}

func TestNoDoubleSession(t *testing.T) {
	tr := New(1, 150)

	for n := 1; n <= 50; n++ {
		tr.Observe(tick(n), "opera", agg(10, 100, 0, 1), types.AttributedActivity{})
	}

	assert.Equal(t, 1, tr.LiveCount())
	assert.Equal(t, int64(2), tr.NextID()) // exactly one id consumed
}

func TestNewSessionGetsNewID(t *testing.T) {
	tr := New(7, 150)

	tr.Observe(tick(1), "opera", agg(10, 100, 0, 1), types.AttributedActivity{})
	first := tr.Observe(tick(2), "opera", nil, types.AttributedActivity{})
	require.NotNil(t, first)
	assert.Equal(t, int64(7), first.ID)

	tr.Observe(tick(3), "opera", agg(10, 100, 0, 1), types.AttributedActivity{})
	second := tr.Observe(tick(4), "opera", nil, types.AttributedActivity{})
	require.NotNil(t, second)
	assert.Equal(t, int64(8), second.ID)
}

func TestObserveWhileAbsentIsNoop(t *testing.T) {
	tr := New(1, 150)

	assert.Nil(t, tr.Observe(tick(1), "opera", nil, types.AttributedActivity{}))
	assert.Zero(t, tr.LiveCount())
	assert.Equal(t, int64(1), tr.NextID())
}

func TestRunningAveragesAndPeaks(t *testing.T) {
	tr := New(1, 150)

	tr.Observe(tick(1), "opera", agg(10, 100, 5, 1), types.AttributedActivity{})
	tr.Observe(tick(2), "opera", agg(30, 300, 15, 1), types.AttributedActivity{})
	tr.Observe(tick(3), "opera", agg(20, 200, 10, 1), types.AttributedActivity{})

	closed := tr.Observe(tick(4), "opera", nil, types.AttributedActivity{})
	require.NotNil(t, closed)

	assert.InDelta(t, 20, closed.AvgCPUPercent, 1e-9)
	assert.InDelta(t, 200, closed.AvgMemoryMB, 1e-9)
	assert.InDelta(t, 10, closed.AvgGPUPercent, 1e-9)
	assert.InDelta(t, 30, closed.PeakCPUPercent, 1e-9)
	assert.InDelta(t, 300, closed.PeakMemoryMB, 1e-9)
	assert.InDelta(t, 15, closed.PeakGPUPercent, 1e-9)
}

func TestAveragesSurviveLiveViewTruncation(t *testing.T) {
	tr := New(1, 3) // live view caps at 3 snapshots

	// First sample is the only one with high CPU; it will fall out of the
	// live view but must keep contributing to the running mean and peak.
	tr.Observe(tick(1), "opera", agg(100, 100, 0, 1), types.AttributedActivity{})
	for n := 2; n <= 9; n++ {
		tr.Observe(tick(n), "opera", agg(10, 100, 0, 1), types.AttributedActivity{})
	}

	view, ok := tr.Live("opera", tick(9))
	require.True(t, ok)
	assert.Len(t, view.History, 3)
	assert.True(t, view.IsCurrent)
	assert.InDelta(t, 20, view.AvgCPUPercent, 1e-9) // (100 + 8*10) / 9
	assert.InDelta(t, 100, view.PeakCPUPercent, 1e-9)

	closed := tr.Observe(tick(10), "opera", nil, types.AttributedActivity{})
	require.NotNil(t, closed)
	// Persisted history is the full accumulated list, not the capped view.
	assert.Len(t, closed.History, 9)
	assert.InDelta(t, 100, closed.PeakCPUPercent, 1e-9)
}

func TestSnapshotCarriesActivity(t *testing.T) {
	tr := New(1, 150)

	act := types.AttributedActivity{
		IsForeground:    true,
		ActivityPercent: 80,
		KeyboardClicks:  5,
		MousePixels:     200,
	}
	tr.Observe(tick(1), "opera", agg(10, 100, 0, 1), act)

	closed := tr.Observe(tick(2), "opera", nil, types.AttributedActivity{})
	require.NotNil(t, closed)
	require.Len(t, closed.History, 1)

	snap := closed.History[0]
	assert.True(t, snap.IsForeground)
	assert.Equal(t, 80.0, snap.UserActivityPercent)
	assert.Equal(t, uint32(5), snap.KeyboardClicks)
	assert.Equal(t, uint32(200), snap.MousePixels)
}

func TestAppNameKeyIsCaseInsensitive(t *testing.T) {
	tr := New(1, 150)

	tr.Observe(tick(1), "Opera", agg(10, 100, 0, 1), types.AttributedActivity{})
	tr.Observe(tick(2), "opera", agg(10, 100, 0, 1), types.AttributedActivity{})

	assert.Equal(t, 1, tr.LiveCount())
	assert.Equal(t, int64(2), tr.NextID())
}

func TestReset(t *testing.T) {
	tr := New(1, 150)

	tr.Observe(tick(1), "opera", agg(10, 100, 0, 1), types.AttributedActivity{})
	tr.Reset("Opera")

	assert.Zero(t, tr.LiveCount())
	// Absence after reset does not produce a closed session.
	assert.Nil(t, tr.Observe(tick(2), "opera", nil, types.AttributedActivity{}))
}

func TestCloseAll(t *testing.T) {
	tr := New(1, 150)

	tr.Observe(tick(1), "opera", agg(10, 100, 0, 1), types.AttributedActivity{})
	tr.Observe(tick(1), "chrome", agg(20, 500, 0, 2), types.AttributedActivity{})

	closed := tr.CloseAll(tick(3))

	require.Len(t, closed, 2)
	assert.Equal(t, int64(1), closed[0].ID)
	assert.Equal(t, int64(2), closed[1].ID)
	assert.Zero(t, tr.LiveCount())
}

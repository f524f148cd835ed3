package tracker

import (
	"time"

	"github.com/perfguard/backend/internal/shared/types"
)

// LiveSession holds the running accumulators for one in-progress session.
// Averages and peaks are maintained over every sample taken since the
// session started, independent of the capped live-view history, so they
// do not degrade when the chart view truncates old entries.
type LiveSession struct {
	id        int64
	appName   string
	startTime time.Time

	count     int
	sumCPU    float64
	sumMemMB  float64
	sumMemPct float64
	sumGPU    float64
	peakCPU   float64
	peakMemMB float64
	peakGPU   float64

	history []types.PerformanceSnapshot
}

func newLiveSession(id int64, appName string, start time.Time) *LiveSession {
	return &LiveSession{
		id:        id,
		appName:   appName,
		startTime: start,
	}
}

// ID returns the session id.
func (s *LiveSession) ID() int64 { return s.id }

// AppName returns the tracked application name.
func (s *LiveSession) AppName() string { return s.appName }

// StartTime returns when the session started.
func (s *LiveSession) StartTime() time.Time { return s.startTime }

func (s *LiveSession) observe(now time.Time, agg *types.AggregatedProcess, act types.AttributedActivity) {
	s.count++
	s.sumCPU += agg.CPUPercent
	s.sumMemMB += agg.MemoryMB
	s.sumMemPct += agg.MemoryPercent
	s.sumGPU += agg.GPUPercent
	if agg.CPUPercent > s.peakCPU {
		s.peakCPU = agg.CPUPercent
	}
	if agg.MemoryMB > s.peakMemMB {
		s.peakMemMB = agg.MemoryMB
	}
	if agg.GPUPercent > s.peakGPU {
		s.peakGPU = agg.GPUPercent
	}

	s.history = append(s.history, types.PerformanceSnapshot{
		Timestamp:           now,
		CPUPercent:          agg.CPUPercent,
		MemoryMB:            agg.MemoryMB,
		MemoryPercent:       agg.MemoryPercent,
		GPUPercent:          agg.GPUPercent,
		UserActivityPercent: act.ActivityPercent,
		IsForeground:        act.IsForeground,
		KeyboardClicks:      act.KeyboardClicks,
		MousePixels:         act.MousePixels,
	})
}

func (s *LiveSession) avgCPU() float64 {
	if s.count == 0 {
		return 0
	}
	return s.sumCPU / float64(s.count)
}

func (s *LiveSession) avgMemMB() float64 {
	if s.count == 0 {
		return 0
	}
	return s.sumMemMB / float64(s.count)
}

func (s *LiveSession) avgGPU() float64 {
	if s.count == 0 {
		return 0
	}
	return s.sumGPU / float64(s.count)
}

func (s *LiveSession) durationSeconds(now time.Time) int64 {
	d := int64(now.Sub(s.startTime).Seconds())
	if d < 0 {
		return 0
	}
	return d
}

// close converts the live session into its immutable closed form,
// attaching the full accumulated history.
func (s *LiveSession) close(now time.Time) types.ClosedSession {
	return types.ClosedSession{
		ID:              s.id,
		AppName:         s.appName,
		StartTime:       s.startTime,
		EndTime:         now,
		DurationSeconds: s.durationSeconds(now),
		AvgCPUPercent:   s.avgCPU(),
		AvgMemoryMB:     s.avgMemMB(),
		AvgGPUPercent:   s.avgGPU(),
		PeakCPUPercent:  s.peakCPU,
		PeakMemoryMB:    s.peakMemMB,
		PeakGPUPercent:  s.peakGPU,
		History:         s.history,
	}
}

// View returns the wire representation of the live session. The history
// is truncated to the most recent liveCap snapshots; the accumulators are
// unaffected.
func (s *LiveSession) View(now time.Time, liveCap int) types.SessionRecord {
	history := s.history
	if liveCap > 0 && len(history) > liveCap {
		history = history[len(history)-liveCap:]
	}
	// Copy so callers cannot mutate tracker state.
	tail := make([]types.PerformanceSnapshot, len(history))
	copy(tail, history)

	return types.SessionRecord{
		ID:              s.id,
		AppName:         s.appName,
		StartTime:       s.startTime,
		DurationSeconds: s.durationSeconds(now),
		AvgCPUPercent:   s.avgCPU(),
		AvgMemoryMB:     s.avgMemMB(),
		AvgGPUPercent:   s.avgGPU(),
		PeakCPUPercent:  s.peakCPU,
		PeakMemoryMB:    s.peakMemMB,
		PeakGPUPercent:  s.peakGPU,
		IsCurrent:       true,
		History:         tail,
	}
}

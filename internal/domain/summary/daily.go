package summary

import (
	"sort"
	"strings"
	"time"

	"github.com/perfguard/backend/internal/shared/types"
)

// Daily buckets sessions by local calendar day and partitions their time
// into productive, distractive, and neutral per the supplied category
// mapping (keys lowercased app names; unlisted apps are neutral). Days
// are returned in ascending date order with day-over-day deltas for
// productive time and efficiency; a zero previous-day denominator yields
// a delta of 0, never infinity.
func Daily(sessions []types.SessionRecord, categories map[string]types.Category, quantum time.Duration, loc *time.Location) []types.DayRollup {
	if loc == nil {
		loc = time.Local
	}
	quantumSec := int64(quantum.Seconds())

	type bucket struct {
		productive  int64
		distractive int64
		neutral     int64
		foreground  []float64
	}
	days := make(map[string]*bucket)

	for _, s := range sessions {
		date := s.StartTime.In(loc).Format("2006-01-02")
		b := days[date]
		if b == nil {
			b = &bucket{}
			days[date] = b
		}

		// Reconstruct session time from snapshots when history exists;
		// otherwise fall back to the recorded duration.
		seconds := int64(len(s.History)) * quantumSec
		if len(s.History) == 0 {
			seconds = s.DurationSeconds
		}

		switch categories[strings.ToLower(s.AppName)] {
		case types.CategoryProductive:
			b.productive += seconds
		case types.CategoryDistractive:
			b.distractive += seconds
		default:
			b.neutral += seconds
		}

		for _, snap := range s.History {
			if snap.IsForeground {
				b.foreground = append(b.foreground, snap.UserActivityPercent)
			}
		}
	}

	dates := make([]string, 0, len(days))
	for date := range days {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	rollups := make([]types.DayRollup, 0, len(dates))
	for i, date := range dates {
		b := days[date]
		r := types.DayRollup{
			Date:               date,
			ProductiveSeconds:  b.productive,
			DistractiveSeconds: b.distractive,
			NeutralSeconds:     b.neutral,
			EfficiencyPercent:  mean(b.foreground),
		}
		if i > 0 {
			prev := rollups[i-1]
			r.ProductiveDeltaPercent = deltaPercent(float64(r.ProductiveSeconds), float64(prev.ProductiveSeconds))
			r.EfficiencyDeltaPercent = deltaPercent(r.EfficiencyPercent, prev.EfficiencyPercent)
		}
		rollups = append(rollups, r)
	}
	return rollups
}

// deltaPercent returns the day-over-day change in percent, 0 when the
// previous value is 0.
func deltaPercent(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}

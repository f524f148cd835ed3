package summary

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/perfguard/backend/internal/shared/types"
)

// ActiveThresholdPercent is the user-activity level above which a
// foreground snapshot counts as active rather than idle.
const ActiveThresholdPercent = 10

// Summarize folds every session of one app (closed and current) into
// display-ready totals. Each snapshot contributes one fixed quantum to
// its time bucket rather than a measured delta; reconstructed time is
// snapshot_count x quantum and may drift from wall-clock duration under
// irregular polling. That drift is a documented property of the format,
// not something to correct here.
func Summarize(app string, sessions []types.SessionRecord, quantum time.Duration) types.AppSummary {
	quantumSec := int64(quantum.Seconds())

	var activeCount, idleCount, backgroundCount int64
	var foreground, cpu, memPct, gpu []float64
	var fallbackCPU, fallbackGPU []float64

	for _, s := range sessions {
		if len(s.History) == 0 {
			// Cloud-restored sessions may carry stats but no history.
			fallbackCPU = append(fallbackCPU, s.AvgCPUPercent)
			fallbackGPU = append(fallbackGPU, s.AvgGPUPercent)
			continue
		}
		for _, snap := range s.History {
			switch {
			case snap.IsForeground && snap.UserActivityPercent > ActiveThresholdPercent:
				activeCount++
			case snap.IsForeground:
				idleCount++
			default:
				backgroundCount++
			}
			if snap.IsForeground {
				foreground = append(foreground, snap.UserActivityPercent)
			}
			cpu = append(cpu, snap.CPUPercent)
			memPct = append(memPct, snap.MemoryPercent)
			gpu = append(gpu, snap.GPUPercent)
		}
	}

	return types.AppSummary{
		AppName:           app,
		SessionCount:      len(sessions),
		TotalSeconds:      (activeCount + idleCount + backgroundCount) * quantumSec,
		ActiveSeconds:     activeCount * quantumSec,
		IdleSeconds:       idleCount * quantumSec,
		BackgroundSeconds: backgroundCount * quantumSec,
		EfficiencyPercent: mean(foreground),
		AvgUsagePercent:   avgUsage(cpu, memPct, gpu, fallbackCPU, fallbackGPU),
	}
}

// avgUsage is (avg cpu + avg memory percent + avg gpu) / 3 over all
// snapshots. When no snapshot history exists at all the sessions' stored
// averages stand in for cpu and gpu; no memory percent is stored on a
// session, so that term is 0 while the denominator stays 3 to keep the
// formula's shape.
func avgUsage(cpu, memPct, gpu, fallbackCPU, fallbackGPU []float64) float64 {
	if len(cpu) > 0 {
		return (mean(cpu) + mean(memPct) + mean(gpu)) / 3
	}
	if len(fallbackCPU) == 0 {
		return 0
	}
	return (mean(fallbackCPU) + mean(fallbackGPU)) / 3
}

// mean returns 0 for an empty slice, never NaN.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

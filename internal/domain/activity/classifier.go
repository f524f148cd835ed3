package activity

import (
	"github.com/perfguard/backend/internal/shared/types"
)

// Classify attributes the global activity reading to one aggregated
// application. The app owns user attention iff the foreground PID belongs
// to its PID set; activity and input counters are attributed only then.
func Classify(reading types.GlobalActivity, agg *types.AggregatedProcess) types.AttributedActivity {
	if agg == nil || reading.ForegroundPID == 0 || !agg.HasPID(reading.ForegroundPID) {
		return types.AttributedActivity{}
	}
	return types.AttributedActivity{
		IsForeground:    true,
		ActivityPercent: reading.ActivityPercent,
		KeyboardClicks:  reading.KeyboardClicks,
		MousePixels:     reading.MousePixels,
	}
}

// AnyForeground reports whether any of the given PIDs owns the foreground
// window. Side-effect free; safe to call repeatedly within a tick.
func AnyForeground(reading types.GlobalActivity, pids []uint32) bool {
	if reading.ForegroundPID == 0 {
		return false
	}
	for _, pid := range pids {
		if pid == reading.ForegroundPID {
			return true
		}
	}
	return false
}

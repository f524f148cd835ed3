package input

import (
	"sync/atomic"

	"github.com/perfguard/backend/internal/shared/types"
)

// Activity scoring: 12 keystrokes per tick saturate the keyboard score at
// 100%; 800 pixels of mouse travel add up to a 50% bonus; the combined
// score is capped at 100.
const (
	keystrokeFullScale = 12
	mouseFullScale     = 800
	mouseBonusCap      = 50
)

// Recorder accumulates raw input counts between ticks. Platform input
// hooks feed it continuously; Read drains the counters, so it must be
// called exactly once per tick. A second call in the same tick would
// silently lose the drained input.
type Recorder struct {
	keystrokes    atomic.Uint32
	mousePixels   atomic.Uint32
	foregroundPID atomic.Uint32
}

// NewRecorder creates an input recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordKeystrokes adds n key presses.
func (r *Recorder) RecordKeystrokes(n uint32) {
	r.keystrokes.Add(n)
}

// RecordMouseTravel adds px pixels of cursor movement.
func (r *Recorder) RecordMouseTravel(px uint32) {
	r.mousePixels.Add(px)
}

// SetForegroundPID records the PID owning the foreground window; 0 means
// unknown.
func (r *Recorder) SetForegroundPID(pid uint32) {
	r.foregroundPID.Store(pid)
}

// Read returns the global activity reading for this tick and resets the
// accumulation counters.
func (r *Recorder) Read() types.GlobalActivity {
	clicks := r.keystrokes.Swap(0)
	pixels := r.mousePixels.Swap(0)

	clickScore := float64(clicks) / keystrokeFullScale * 100
	if clickScore > 100 {
		clickScore = 100
	}
	mouseScore := float64(pixels) / mouseFullScale * mouseBonusCap
	if mouseScore > mouseBonusCap {
		mouseScore = mouseBonusCap
	}
	activity := clickScore + mouseScore
	if activity > 100 {
		activity = 100
	}

	return types.GlobalActivity{
		ForegroundPID:   r.foregroundPID.Load(),
		ActivityPercent: activity,
		KeyboardClicks:  clicks,
		MousePixels:     pixels,
	}
}

package types

// ProcessSample is one raw OS process record from a single poll.
// Produced by the process snapshot provider; never persisted.
type ProcessSample struct {
	PID           uint32  `json:"pid"`
	Name          string  `json:"name"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryMB      float64 `json:"memory_mb"`
	MemoryPercent float64 `json:"memory_percent"`
	GPUPercent    float64 `json:"gpu_percent"`
	ExePath       string  `json:"exe_path,omitempty"`
}

// AggregatedProcess is one logical application for a single poll: the main
// process plus any helper subprocesses folded into it, with resource fields
// summed across the constituent PIDs.
type AggregatedProcess struct {
	Name          string   `json:"name"`
	CPUPercent    float64  `json:"cpu_percent"`
	MemoryMB      float64  `json:"memory_mb"`
	MemoryPercent float64  `json:"memory_percent"`
	GPUPercent    float64  `json:"gpu_percent"`
	PIDs          []uint32 `json:"pids"`
	ExePath       string   `json:"exe_path,omitempty"`
}

// HasPID reports whether pid belongs to this logical application.
func (a *AggregatedProcess) HasPID(pid uint32) bool {
	for _, p := range a.PIDs {
		if p == pid {
			return true
		}
	}
	return false
}

// GlobalActivity is the once-per-tick global input reading. Obtaining it
// drains the input accumulators, so it must be read exactly once per tick
// and shared read-only across all apps evaluated that tick.
type GlobalActivity struct {
	ForegroundPID   uint32  `json:"foreground_pid"`
	ActivityPercent float64 `json:"activity_percent"`
	KeyboardClicks  uint32  `json:"keyboard_clicks"`
	MousePixels     uint32  `json:"mouse_pixels"`
}

// AttributedActivity is the slice of the global reading attributed to one
// application: full activity when it owns the foreground window, zero
// otherwise.
type AttributedActivity struct {
	IsForeground    bool    `json:"is_foreground"`
	ActivityPercent float64 `json:"activity_percent"`
	KeyboardClicks  uint32  `json:"keyboard_clicks"`
	MousePixels     uint32  `json:"mouse_pixels"`
}

package types

import "time"

// PerformanceSnapshot is one timestamped performance sample recorded during
// a session, one per poll tick while the app is running.
type PerformanceSnapshot struct {
	Timestamp           time.Time `json:"timestamp"`
	CPUPercent          float64   `json:"cpu_percent"`
	MemoryMB            float64   `json:"memory_mb"`
	MemoryPercent       float64   `json:"memory_percent"`
	GPUPercent          float64   `json:"gpu_percent"`
	UserActivityPercent float64   `json:"user_activity_percent"`
	IsForeground        bool      `json:"is_foreground"`
	KeyboardClicks      uint32    `json:"keyboard_clicks"`
	MousePixels         uint32    `json:"mouse_pixels"`
}

// ClosedSession is a finished session: final stats plus the full snapshot
// history accumulated while it was live. Closed sessions are immutable and
// are the only sessions ever persisted.
type ClosedSession struct {
	ID              int64                 `json:"id"`
	AppName         string                `json:"app_name"`
	StartTime       time.Time             `json:"start_time"`
	EndTime         time.Time             `json:"end_time"`
	DurationSeconds int64                 `json:"duration_seconds"`
	AvgCPUPercent   float64               `json:"avg_cpu_percent"`
	AvgMemoryMB     float64               `json:"avg_memory_mb"`
	AvgGPUPercent   float64               `json:"avg_gpu_percent"`
	PeakCPUPercent  float64               `json:"peak_cpu_percent"`
	PeakMemoryMB    float64               `json:"peak_memory_mb"`
	PeakGPUPercent  float64               `json:"peak_gpu_percent"`
	History         []PerformanceSnapshot `json:"performance_history"`
}

// Record converts a closed session to its wire representation.
func (s ClosedSession) Record() SessionRecord {
	end := s.EndTime
	return SessionRecord{
		ID:              s.ID,
		AppName:         s.AppName,
		StartTime:       s.StartTime,
		EndTime:         &end,
		DurationSeconds: s.DurationSeconds,
		AvgCPUPercent:   s.AvgCPUPercent,
		AvgMemoryMB:     s.AvgMemoryMB,
		AvgGPUPercent:   s.AvgGPUPercent,
		PeakCPUPercent:  s.PeakCPUPercent,
		PeakMemoryMB:    s.PeakMemoryMB,
		PeakGPUPercent:  s.PeakGPUPercent,
		IsCurrent:       false,
		History:         s.History,
	}
}

// SessionRecord is the wire/persisted shape of a session. Records loaded
// from the store or the cloud always have IsCurrent false; records built
// from an in-progress session have IsCurrent true and a nil EndTime.
type SessionRecord struct {
	ID              int64                 `json:"id"`
	AppName         string                `json:"app_name"`
	StartTime       time.Time             `json:"start_time"`
	EndTime         *time.Time            `json:"end_time"`
	DurationSeconds int64                 `json:"duration_seconds"`
	AvgCPUPercent   float64               `json:"avg_cpu_percent"`
	AvgMemoryMB     float64               `json:"avg_memory_mb"`
	AvgGPUPercent   float64               `json:"avg_gpu_percent"`
	PeakCPUPercent  float64               `json:"peak_cpu_percent"`
	PeakMemoryMB    float64               `json:"peak_memory_mb"`
	PeakGPUPercent  float64               `json:"peak_gpu_percent"`
	IsCurrent       bool                  `json:"is_current"`
	History         []PerformanceSnapshot `json:"performance_history"`
}

package types

// AppSummary aggregates all sessions of one application into display-ready
// totals. Time buckets are reconstructed from snapshot counts at a fixed
// quantum per snapshot, so TotalSeconds == Active + Idle + Background by
// construction and may drift from wall-clock duration under irregular
// polling.
type AppSummary struct {
	AppName           string  `json:"app_name"`
	SessionCount      int     `json:"session_count"`
	TotalSeconds      int64   `json:"total_time_seconds"`
	ActiveSeconds     int64   `json:"active_seconds"`
	IdleSeconds       int64   `json:"idle_seconds"`
	BackgroundSeconds int64   `json:"background_seconds"`
	EfficiencyPercent float64 `json:"efficiency_percent"`
	AvgUsagePercent   float64 `json:"avg_usage_percent"`
}

// Category partitions applications for the daily productivity rollup.
type Category string

const (
	CategoryProductive  Category = "productive"
	CategoryDistractive Category = "distractive"
	CategoryNeutral     Category = "neutral"
)

// DayRollup is one local calendar day of the daily productivity breakdown.
// Delta fields compare against the previous day and are 0 when the
// previous day has no data.
type DayRollup struct {
	Date                   string  `json:"date"`
	ProductiveSeconds      int64   `json:"productive_seconds"`
	DistractiveSeconds     int64   `json:"distractive_seconds"`
	NeutralSeconds         int64   `json:"neutral_seconds"`
	EfficiencyPercent      float64 `json:"efficiency_percent"`
	ProductiveDeltaPercent float64 `json:"productive_delta_percent"`
	EfficiencyDeltaPercent float64 `json:"efficiency_delta_percent"`
}

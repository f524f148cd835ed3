package types

import "time"

// WhitelistEntry is a user-managed application marked for tracking.
// Entries are mutated only through explicit whitelist operations, never by
// the tracking loop.
type WhitelistEntry struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ExePath   *string   `json:"exe_path"`
	AddedDate time.Time `json:"added_date"`
	IsTracked bool      `json:"is_tracked"`
}

// PersistedData is the durable state exchanged with the local store and
// the cloud store. Sessions hold closed sessions only.
type PersistedData struct {
	Whitelist     []WhitelistEntry `json:"whitelist"`
	Sessions      []SessionRecord  `json:"sessions"`
	NextSessionID int64            `json:"next_session_id"`
}

package persistence

import (
	"sort"

	"github.com/perfguard/backend/internal/shared/types"
)

// Merge reconciles local and cloud state into a union that loses nothing
// from either side. On whitelist id collisions the cloud entry wins,
// except that a local exe path survives when the cloud entry has none.
// On session id collisions the cloud record wins. The session id counter
// takes the larger of the two.
func Merge(local, cloud types.PersistedData) types.PersistedData {
	var out types.PersistedData

	whitelist := make(map[int64]types.WhitelistEntry, len(local.Whitelist))
	for _, e := range local.Whitelist {
		whitelist[e.ID] = e
	}
	for _, e := range cloud.Whitelist {
		if prev, ok := whitelist[e.ID]; ok && e.ExePath == nil {
			e.ExePath = prev.ExePath
		}
		whitelist[e.ID] = e
	}
	out.Whitelist = make([]types.WhitelistEntry, 0, len(whitelist))
	for _, e := range whitelist {
		out.Whitelist = append(out.Whitelist, e)
	}
	sort.Slice(out.Whitelist, func(i, j int) bool { return out.Whitelist[i].ID < out.Whitelist[j].ID })

	sessions := make(map[int64]types.SessionRecord, len(local.Sessions))
	for _, s := range local.Sessions {
		sessions[s.ID] = s
	}
	for _, s := range cloud.Sessions {
		sessions[s.ID] = s
	}
	out.Sessions = make([]types.SessionRecord, 0, len(sessions))
	for _, s := range sessions {
		out.Sessions = append(out.Sessions, s)
	}
	sort.Slice(out.Sessions, func(i, j int) bool { return out.Sessions[i].ID < out.Sessions[j].ID })

	out.NextSessionID = local.NextSessionID
	if cloud.NextSessionID > out.NextSessionID {
		out.NextSessionID = cloud.NextSessionID
	}
	if out.NextSessionID < 1 {
		out.NextSessionID = 1
	}
	return out
}

// HoldsLess reports whether a is missing anything present in b. It
// decides whether an upload is needed after a merge.
func HoldsLess(a, b types.PersistedData) bool {
	if b.NextSessionID > a.NextSessionID {
		return true
	}

	sessions := make(map[int64]struct{}, len(a.Sessions))
	for _, s := range a.Sessions {
		sessions[s.ID] = struct{}{}
	}
	for _, s := range b.Sessions {
		if _, ok := sessions[s.ID]; !ok {
			return true
		}
	}

	whitelist := make(map[int64]struct{}, len(a.Whitelist))
	for _, e := range a.Whitelist {
		whitelist[e.ID] = struct{}{}
	}
	for _, e := range b.Whitelist {
		if _, ok := whitelist[e.ID]; !ok {
			return true
		}
	}
	return false
}

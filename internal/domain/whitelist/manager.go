package whitelist

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/perfguard/backend/internal/shared/types"
)

var (
	ErrDuplicateName = errors.New("whitelist entry with this name already exists")
	ErrNotFound      = errors.New("whitelist entry not found")
	ErrEmptyName     = errors.New("whitelist entry name must not be empty")
)

// Manager owns the user-managed whitelist. Entries are mutated only via
// these operations, never by the tracking loop. Names are unique
// case-insensitively; ids are immutable and never reused.
type Manager struct {
	mu       sync.RWMutex
	entries  map[int64]*types.WhitelistEntry
	byName   map[string]int64
	nextID   int64
	onChange func()
}

// New creates a manager seeded with persisted entries. The id counter
// resumes past the highest seen id.
func New(entries []types.WhitelistEntry) *Manager {
	m := &Manager{
		entries: make(map[int64]*types.WhitelistEntry),
		byName:  make(map[string]int64),
		nextID:  1,
	}
	for i := range entries {
		e := entries[i]
		m.entries[e.ID] = &e
		m.byName[strings.ToLower(e.Name)] = e.ID
		if e.ID >= m.nextID {
			m.nextID = e.ID + 1
		}
	}
	return m
}

// OnChange registers a hook invoked after every successful mutation,
// outside the manager lock. Used to schedule debounced cloud writes.
func (m *Manager) OnChange(fn func()) {
	m.onChange = fn
}

// Add creates a new entry, tracked by default.
func (m *Manager) Add(name string, exePath *string) (types.WhitelistEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.WhitelistEntry{}, ErrEmptyName
	}

	m.mu.Lock()
	key := strings.ToLower(name)
	if _, exists := m.byName[key]; exists {
		m.mu.Unlock()
		return types.WhitelistEntry{}, ErrDuplicateName
	}

	entry := types.WhitelistEntry{
		ID:        m.nextID,
		Name:      name,
		ExePath:   exePath,
		AddedDate: time.Now(),
		IsTracked: true,
	}
	m.nextID++
	m.entries[entry.ID] = &entry
	m.byName[key] = entry.ID
	m.mu.Unlock()

	m.notify()
	return entry, nil
}

// Remove deletes an entry and returns it so the caller can reset any
// in-progress tracking state for the app.
func (m *Manager) Remove(id int64) (types.WhitelistEntry, error) {
	m.mu.Lock()
	entry, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return types.WhitelistEntry{}, ErrNotFound
	}
	removed := *entry
	delete(m.entries, id)
	delete(m.byName, strings.ToLower(removed.Name))
	m.mu.Unlock()

	m.notify()
	return removed, nil
}

// SetTracked toggles tracking for an entry.
func (m *Manager) SetTracked(id int64, tracked bool) (types.WhitelistEntry, error) {
	m.mu.Lock()
	entry, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return types.WhitelistEntry{}, ErrNotFound
	}
	entry.IsTracked = tracked
	updated := *entry
	m.mu.Unlock()

	m.notify()
	return updated, nil
}

// Get retrieves an entry by id.
func (m *Manager) Get(id int64) (types.WhitelistEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[id]
	if !ok {
		return types.WhitelistEntry{}, false
	}
	return *entry, true
}

// List returns all entries ordered by id.
func (m *Manager) List() []types.WhitelistEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(*types.WhitelistEntry) bool { return true })
}

// Tracked returns entries with tracking enabled, ordered by id.
func (m *Manager) Tracked() []types.WhitelistEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(e *types.WhitelistEntry) bool { return e.IsTracked })
}

// Replace swaps the whole whitelist, for cloud merge results. The id
// counter only moves forward.
func (m *Manager) Replace(entries []types.WhitelistEntry) {
	m.mu.Lock()
	m.entries = make(map[int64]*types.WhitelistEntry, len(entries))
	m.byName = make(map[string]int64, len(entries))
	for i := range entries {
		e := entries[i]
		m.entries[e.ID] = &e
		m.byName[strings.ToLower(e.Name)] = e.ID
		if e.ID >= m.nextID {
			m.nextID = e.ID + 1
		}
	}
	m.mu.Unlock()
}

// collect must be called with at least a read lock held.
func (m *Manager) collect(keep func(*types.WhitelistEntry) bool) []types.WhitelistEntry {
	out := make([]types.WhitelistEntry, 0, len(m.entries))
	for _, e := range m.entries {
		if keep(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Manager) notify() {
	if m.onChange != nil {
		m.onChange()
	}
}

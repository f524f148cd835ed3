package whitelist

import (
	"testing"

	"github.com/perfguard/backend/internal/shared/types"
)

func TestAdd(t *testing.T) {
	m := New(nil)

	entry, err := m.Add("Opera", nil)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if entry.ID != 1 {
		t.Errorf("Expected id 1, got %d", entry.ID)
	}
	if !entry.IsTracked {
		t.Error("New entries should be tracked by default")
	}

	if _, err := m.Add("opera", nil); err != ErrDuplicateName {
		t.Errorf("Expected ErrDuplicateName, got %v", err)
	}
	if _, err := m.Add("  ", nil); err != ErrEmptyName {
		t.Errorf("Expected ErrEmptyName, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	m := New(nil)
	entry, _ := m.Add("Opera", nil)

	removed, err := m.Remove(entry.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed.Name != "Opera" {
		t.Errorf("Expected removed entry name Opera, got %s", removed.Name)
	}

	if _, err := m.Remove(entry.ID); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	// Name is free again after removal.
	if _, err := m.Add("opera", nil); err != nil {
		t.Errorf("Re-adding removed name failed: %v", err)
	}
}

func TestIDsNeverReused(t *testing.T) {
	m := New(nil)
	first, _ := m.Add("Opera", nil)
	m.Remove(first.ID)

	second, _ := m.Add("Chrome", nil)
	if second.ID <= first.ID {
		t.Errorf("Expected id above %d, got %d", first.ID, second.ID)
	}
}

func TestSetTracked(t *testing.T) {
	m := New(nil)
	entry, _ := m.Add("Opera", nil)

	updated, err := m.SetTracked(entry.ID, false)
	if err != nil {
		t.Fatalf("SetTracked failed: %v", err)
	}
	if updated.IsTracked {
		t.Error("Expected tracking disabled")
	}

	if got := len(m.Tracked()); got != 0 {
		t.Errorf("Expected 0 tracked entries, got %d", got)
	}
	if got := len(m.List()); got != 1 {
		t.Errorf("Expected 1 listed entry, got %d", got)
	}
}

func TestSeededIDCounter(t *testing.T) {
	m := New([]types.WhitelistEntry{
		{ID: 5, Name: "Opera"},
		{ID: 2, Name: "Chrome"},
	})

	entry, _ := m.Add("Slack", nil)
	if entry.ID != 6 {
		t.Errorf("Expected id 6, got %d", entry.ID)
	}
}

func TestOnChange(t *testing.T) {
	m := New(nil)
	var calls int
	m.OnChange(func() { calls++ })

	entry, _ := m.Add("Opera", nil)
	m.SetTracked(entry.ID, false)
	m.Remove(entry.ID)

	if calls != 3 {
		t.Errorf("Expected 3 change notifications, got %d", calls)
	}
}

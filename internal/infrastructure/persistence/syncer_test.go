package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfguard/backend/internal/shared/types"
)

type memStore struct {
	data    types.PersistedData
	saveErr error
}

func (m *memStore) Load() (types.PersistedData, error) { return m.data, nil }
func (m *memStore) Save(d types.PersistedData) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = d
	return nil
}

type memCloud struct {
	data     types.PersistedData
	exists   bool
	fetchErr error
	pushed   []types.PersistedData
}

func (m *memCloud) Fetch(context.Context) (types.PersistedData, bool, error) {
	return m.data, m.exists, m.fetchErr
}

func (m *memCloud) Push(_ context.Context, d types.PersistedData) error {
	m.pushed = append(m.pushed, d)
	m.data = d
	m.exists = true
	return nil
}

func TestSyncMergesBothDirections(t *testing.T) {
	local := &memStore{data: types.PersistedData{
		Sessions:      []types.SessionRecord{{ID: 1, AppName: "opera"}},
		NextSessionID: 2,
	}}
	cloud := &memCloud{exists: true, data: types.PersistedData{
		Sessions:      []types.SessionRecord{{ID: 2, AppName: "slack"}},
		NextSessionID: 3,
	}}

	merged, err := NewCloudSyncer(local, cloud).Sync(context.Background())
	require.NoError(t, err)

	assert.Len(t, merged.Sessions, 2)
	assert.Equal(t, int64(3), merged.NextSessionID)
	assert.Len(t, local.data.Sessions, 2)
	// Cloud was missing session 1 so the union went up too.
	require.Len(t, cloud.pushed, 1)
	assert.Len(t, cloud.pushed[0].Sessions, 2)
}

func TestSyncSkipsUploadWhenCloudIsComplete(t *testing.T) {
	shared := types.PersistedData{
		Sessions:      []types.SessionRecord{{ID: 1}},
		NextSessionID: 2,
	}
	local := &memStore{data: shared}
	cloud := &memCloud{exists: true, data: shared}

	_, err := NewCloudSyncer(local, cloud).Sync(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cloud.pushed)
}

func TestSyncUploadsToFreshCloud(t *testing.T) {
	local := &memStore{data: types.PersistedData{
		Sessions:      []types.SessionRecord{{ID: 1}},
		NextSessionID: 2,
	}}
	cloud := &memCloud{exists: false}

	_, err := NewCloudSyncer(local, cloud).Sync(context.Background())
	require.NoError(t, err)
	require.Len(t, cloud.pushed, 1)
	assert.Len(t, cloud.pushed[0].Sessions, 1)
}

func TestSyncPropagatesFetchError(t *testing.T) {
	local := &memStore{}
	cloud := &memCloud{fetchErr: errors.New("backend down")}

	_, err := NewCloudSyncer(local, cloud).Sync(context.Background())
	assert.Error(t, err)
	assert.Empty(t, cloud.pushed)
}

package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfguard/backend/internal/domain/engine"
	"github.com/perfguard/backend/internal/domain/tracker"
	"github.com/perfguard/backend/internal/domain/whitelist"
	"github.com/perfguard/backend/internal/shared/types"
)

type fakeSnapshots struct {
	samples []types.ProcessSample
}

func (f *fakeSnapshots) Snapshot(context.Context) ([]types.ProcessSample, error) {
	return f.samples, nil
}

type fakeActivity struct{}

func (fakeActivity) Read() types.GlobalActivity { return types.GlobalActivity{} }

type memStore struct {
	data types.PersistedData
}

func (m *memStore) Load() (types.PersistedData, error) { return m.data, nil }
func (m *memStore) Save(d types.PersistedData) error   { m.data = d; return nil }

func newTestRouter(samples ...types.ProcessSample) (*gin.Engine, *engine.Engine) {
	gin.SetMode(gin.TestMode)

	eng := engine.New(engine.Deps{
		Snapshots: &fakeSnapshots{samples: samples},
		Activity:  fakeActivity{},
		Whitelist: whitelist.New(nil),
		Tracker:   tracker.New(1, 150),
		Store:     &memStore{},
	}, 2*time.Second)

	h := NewHandlers(eng, "test")
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/processes", h.ListProcesses)
	r.GET("/whitelist", h.ListWhitelist)
	r.POST("/whitelist", h.AddApp)
	r.DELETE("/whitelist/:id", h.RemoveApp)
	r.PATCH("/whitelist/:id", h.SetTracked)
	r.GET("/sessions", h.ListSessions)
	r.GET("/summary/daily", h.DailySummary)
	r.GET("/summary/:app", h.AppSummary)
	r.POST("/sync", h.SyncNow)
	return r, eng
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter()

	w := do(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestListProcessesAggregates(t *testing.T) {
	r, _ := newTestRouter(
		types.ProcessSample{PID: 1, Name: "opera.exe", CPUPercent: 10},
		types.ProcessSample{PID: 2, Name: "opera_helper.exe", CPUPercent: 5},
	)

	w := do(r, http.MethodGet, "/processes", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Processes []types.AggregatedProcess `json:"processes"`
	}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Processes, 1)
	assert.Equal(t, 15.0, resp.Processes[0].CPUPercent)
	assert.Len(t, resp.Processes[0].PIDs, 2)
}

func TestWhitelistCRUD(t *testing.T) {
	r, _ := newTestRouter()

	w := do(r, http.MethodPost, "/whitelist", `{"name":"Opera"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var entry types.WhitelistEntry
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, int64(1), entry.ID)
	assert.True(t, entry.IsTracked)

	// Duplicate names conflict, case-insensitively.
	w = do(r, http.MethodPost, "/whitelist", `{"name":"opera"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPatch, "/whitelist/1", `{"is_tracked":false}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodDelete, "/whitelist/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodDelete, "/whitelist/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddAppValidation(t *testing.T) {
	r, _ := newTestRouter()

	w := do(r, http.MethodPost, "/whitelist", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/whitelist", "not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSessions(t *testing.T) {
	r, eng := newTestRouter()
	eng.Seed([]types.SessionRecord{
		{ID: 1, AppName: "opera.exe"},
		{ID: 2, AppName: "code.exe"},
	})

	w := do(r, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Sessions []types.SessionRecord `json:"sessions"`
	}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Sessions, 2)

	w = do(r, http.MethodGet, "/sessions?app=Opera.exe", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, "opera.exe", resp.Sessions[0].AppName)
}

func TestAppSummary(t *testing.T) {
	r, eng := newTestRouter()
	eng.Seed([]types.SessionRecord{{ID: 1, AppName: "opera.exe", History: []types.PerformanceSnapshot{
		{IsForeground: true, UserActivityPercent: 60},
	}}})

	w := do(r, http.MethodGet, "/summary/opera.exe", "")
	require.Equal(t, http.StatusOK, w.Code)

	var s types.AppSummary
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, int64(2), s.ActiveSeconds)
	assert.InDelta(t, 60, s.EfficiencyPercent, 1e-9)
}

func TestSyncWithoutCloudConflicts(t *testing.T) {
	r, _ := newTestRouter()

	w := do(r, http.MethodPost, "/sync", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

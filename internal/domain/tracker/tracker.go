package tracker

import (
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/perfguard/backend/internal/infrastructure/logging"
	"github.com/perfguard/backend/internal/infrastructure/monitoring"
	"github.com/perfguard/backend/internal/shared/types"
)

// Tracker maintains the per-application session state machine. Each
// tracked app is either absent (no session) or has exactly one live
// session; a single not-running observation closes the session
// immediately, with no grace period, so a transient sampling gap
// splits a session in two. That is long-standing behavior the rest of
// the system depends on.
//
// Observe is driven once per tracked app per tick by the engine, which
// serializes ticks; the internal lock exists for concurrent readers
// (API handlers) only.
type Tracker struct {
	mu      sync.RWMutex
	live    map[string]*LiveSession
	nextID  int64
	liveCap int
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// New creates a tracker. nextID seeds the monotonic session id counter,
// typically from the persisted store; ids are never reused.
func New(nextID int64, liveCap int) *Tracker {
	if nextID < 1 {
		nextID = 1
	}
	return &Tracker{
		live:    make(map[string]*LiveSession),
		nextID:  nextID,
		liveCap: liveCap,
		log:     logging.NewNop(),
	}
}

// WithLogger attaches a logger to the tracker.
func (t *Tracker) WithLogger(log *logging.Logger) *Tracker {
	t.log = log
	return t
}

// WithMetrics attaches metrics tracking to the tracker.
func (t *Tracker) WithMetrics(metrics *monitoring.Metrics) *Tracker {
	t.metrics = metrics
	return t
}

// Observe advances the state machine for one app by one tick. A nil agg
// means the app was not observed running: if a session is live it is
// closed and returned, otherwise nothing happens. A non-nil agg starts a
// session if none is live and appends this tick's sample.
func (t *Tracker) Observe(now time.Time, app string, agg *types.AggregatedProcess, act types.AttributedActivity) *types.ClosedSession {
	key := strings.ToLower(app)

	t.mu.Lock()
	defer t.mu.Unlock()

	ls := t.live[key]

	if agg == nil {
		if ls == nil {
			return nil
		}
		closed := ls.close(now)
		delete(t.live, key)
		t.log.Debug("session closed",
			zap.Int64("session_id", closed.ID),
			zap.String("app", app),
			zap.Int64("duration_seconds", closed.DurationSeconds),
		)
		if t.metrics != nil {
			t.metrics.SessionsClosed.Inc()
			t.metrics.LiveSessions.Set(float64(len(t.live)))
		}
		return &closed
	}

	if ls == nil {
		ls = newLiveSession(t.nextID, app, now)
		t.nextID++
		t.live[key] = ls
		t.log.Debug("session started",
			zap.Int64("session_id", ls.ID()),
			zap.String("app", app),
		)
		if t.metrics != nil {
			t.metrics.SessionsOpened.Inc()
			t.metrics.LiveSessions.Set(float64(len(t.live)))
		}
	}

	ls.observe(now, agg, act)
	return nil
}

// Reset discards any live session for app without closing it. Used when
// an app is removed from the whitelist; the in-progress interval is
// intentionally dropped rather than persisted.
func (t *Tracker) Reset(app string) {
	key := strings.ToLower(app)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.live[key]; !ok {
		return
	}
	delete(t.live, key)
	if t.metrics != nil {
		t.metrics.LiveSessions.Set(float64(len(t.live)))
	}
}

// CloseAll closes every live session, for shutdown.
func (t *Tracker) CloseAll(now time.Time) []types.ClosedSession {
	t.mu.Lock()
	defer t.mu.Unlock()

	closed := make([]types.ClosedSession, 0, len(t.live))
	for key, ls := range t.live {
		closed = append(closed, ls.close(now))
		delete(t.live, key)
	}
	sort.Slice(closed, func(i, j int) bool { return closed[i].ID < closed[j].ID })

	if t.metrics != nil {
		t.metrics.SessionsClosed.Add(float64(len(closed)))
		t.metrics.LiveSessions.Set(0)
	}
	return closed
}

// NextID returns the next session id to be assigned.
func (t *Tracker) NextID() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nextID
}

// EnsureNextID raises the session id counter to at least id. Used after
// a cloud merge brings in sessions with higher ids than any local one.
func (t *Tracker) EnsureNextID(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id > t.nextID {
		t.nextID = id
	}
}

// Live returns the live session view for app, if any.
func (t *Tracker) Live(app string, now time.Time) (types.SessionRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ls, ok := t.live[strings.ToLower(app)]
	if !ok {
		return types.SessionRecord{}, false
	}
	return ls.View(now, t.liveCap), true
}

// LiveViews returns views of all live sessions ordered by session id.
func (t *Tracker) LiveViews(now time.Time) []types.SessionRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	views := make([]types.SessionRecord, 0, len(t.live))
	for _, ls := range t.live {
		views = append(views, ls.View(now, t.liveCap))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// LiveCount returns the number of in-progress sessions.
func (t *Tracker) LiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.live)
}

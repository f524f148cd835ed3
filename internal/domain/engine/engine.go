package engine

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/perfguard/backend/internal/domain/activity"
	"github.com/perfguard/backend/internal/domain/aggregate"
	"github.com/perfguard/backend/internal/domain/summary"
	"github.com/perfguard/backend/internal/domain/tracker"
	"github.com/perfguard/backend/internal/domain/whitelist"
	"github.com/perfguard/backend/internal/infrastructure/logging"
	"github.com/perfguard/backend/internal/infrastructure/monitoring"
	"github.com/perfguard/backend/internal/infrastructure/persistence"
	"github.com/perfguard/backend/internal/infrastructure/resilience"
	"github.com/perfguard/backend/internal/shared/types"
)

// ErrCloudDisabled is returned by SyncNow when no cloud store is wired.
var ErrCloudDisabled = errors.New("cloud sync is not configured")

// Snapshotter produces one raw process table per call.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]types.ProcessSample, error)
}

// ActivitySource yields the global input reading for one tick. Reading
// drains the accumulators, so the engine calls it exactly once per tick.
type ActivitySource interface {
	Read() types.GlobalActivity
}

// Broadcaster pushes live events to connected clients.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// Deps are the engine's required collaborators.
type Deps struct {
	Snapshots Snapshotter
	Activity  ActivitySource
	Whitelist *whitelist.Manager
	Tracker   *tracker.Tracker
	Store     persistence.Store
}

// Engine owns the tick loop. Ticks are serialized by an in-flight guard:
// a tick that fires while the previous one still runs is dropped and
// counted, never queued.
type Engine struct {
	deps     Deps
	interval time.Duration

	categories map[string]types.Category
	loc        *time.Location
	wakeOff    resilience.Backoff

	syncer    *persistence.CloudSyncer
	broadcast Broadcaster
	log       *logging.Logger
	metrics   *monitoring.Metrics

	mu       sync.RWMutex
	closed   []types.SessionRecord
	inFlight atomic.Bool
}

// New creates an engine polling at the given interval.
func New(deps Deps, interval time.Duration) *Engine {
	return &Engine{
		deps:       deps,
		interval:   interval,
		categories: map[string]types.Category{},
		loc:        time.Local,
		wakeOff:    resilience.DefaultBackoff(),
		log:        logging.NewNop(),
	}
}

// WithLogger sets the logger.
func (e *Engine) WithLogger(log *logging.Logger) *Engine {
	e.log = log.Component("engine")
	return e
}

// WithMetrics sets the metrics collector.
func (e *Engine) WithMetrics(m *monitoring.Metrics) *Engine {
	e.metrics = m
	return e
}

// WithSyncer enables cloud synchronization.
func (e *Engine) WithSyncer(s *persistence.CloudSyncer) *Engine {
	e.syncer = s
	return e
}

// WithBroadcaster enables live event streaming.
func (e *Engine) WithBroadcaster(b Broadcaster) *Engine {
	e.broadcast = b
	return e
}

// WithCategories sets the app category mapping for the daily rollup.
// Keys are matched case-insensitively.
func (e *Engine) WithCategories(categories map[string]types.Category) *Engine {
	e.categories = make(map[string]types.Category, len(categories))
	for name, c := range categories {
		e.categories[strings.ToLower(name)] = c
	}
	return e
}

// WithLocation sets the timezone used to bucket daily rollups.
func (e *Engine) WithLocation(loc *time.Location) *Engine {
	e.loc = loc
	return e
}

// Seed loads previously persisted sessions into the engine's history.
func (e *Engine) Seed(sessions []types.SessionRecord) {
	e.mu.Lock()
	e.closed = append([]types.SessionRecord(nil), sessions...)
	e.mu.Unlock()
}

// Run drives the tick loop until the context is cancelled, then drains
// any in-flight tick, closes every live session, and persists the final
// state. Draining first keeps a straggling tick from reopening a
// session after the final persist.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("tick loop started", zap.Duration("interval", e.interval))

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	var ticks sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			ticks.Wait()
			e.shutdown()
			return nil
		case now := <-ticker.C:
			ticks.Add(1)
			go func() {
				defer ticks.Done()
				e.tick(ctx, now)
			}()
		}
	}
}

// tick advances every tracked app by one observation. An empty or failed
// process snapshot means "state unknown": no session is opened, closed,
// or extended on such a tick.
func (e *Engine) tick(ctx context.Context, now time.Time) {
	if !e.inFlight.CompareAndSwap(false, true) {
		if e.metrics != nil {
			e.metrics.TicksDropped.Inc()
		}
		e.log.Debug("tick dropped, previous tick still running")
		return
	}
	defer e.inFlight.Store(false)
	started := time.Now()

	samples, err := e.deps.Snapshots.Snapshot(ctx)
	if err != nil {
		e.log.Warn("process snapshot failed", zap.Error(err))
		return
	}
	if len(samples) == 0 {
		if e.metrics != nil {
			e.metrics.EmptySnapshots.Inc()
		}
		e.log.Debug("empty process snapshot, skipping tick")
		return
	}

	aggs := aggregate.Aggregate(samples)
	reading := e.deps.Activity.Read()

	for _, entry := range e.deps.Whitelist.Tracked() {
		agg := aggregate.Lookup(aggs, entry.Name)
		act := activity.Classify(reading, agg)
		if closed := e.deps.Tracker.Observe(now, entry.Name, agg, act); closed != nil {
			e.appendClosed(*closed)
		}
	}

	if e.metrics != nil {
		e.metrics.TicksTotal.Inc()
		e.metrics.TickDuration.Observe(time.Since(started).Seconds())
	}
	if e.broadcast != nil {
		e.broadcast.Broadcast("sessions", e.deps.Tracker.LiveViews(now))
	}
}

// OnWake recovers after a sleep/wake cycle. Process tables are often
// transiently empty right after wake, so it retries the snapshot with
// backoff before running a regular tick.
func (e *Engine) OnWake(ctx context.Context) error {
	e.log.Info("wake recovery started")

	err := resilience.Retry(ctx, e.wakeOff, func() error {
		samples, err := e.deps.Snapshots.Snapshot(ctx)
		if err == nil && len(samples) == 0 {
			err = errors.New("process snapshot is empty")
		}
		if err != nil && e.metrics != nil {
			e.metrics.WakeRetries.Inc()
		}
		return err
	})
	if err != nil {
		e.log.Warn("wake recovery gave up", zap.Error(err))
		return err
	}

	e.tick(ctx, time.Now())
	return nil
}

// AddApp adds an application to the whitelist.
func (e *Engine) AddApp(name string, exePath *string) (types.WhitelistEntry, error) {
	entry, err := e.deps.Whitelist.Add(name, exePath)
	if err != nil {
		return types.WhitelistEntry{}, err
	}
	e.persist()
	return entry, nil
}

// RemoveApp removes a whitelist entry. Any in-progress session for the
// app is discarded, not closed.
func (e *Engine) RemoveApp(id int64) error {
	entry, err := e.deps.Whitelist.Remove(id)
	if err != nil {
		return err
	}
	e.deps.Tracker.Reset(entry.Name)
	e.persist()
	return nil
}

// SetTracked toggles tracking for a whitelist entry. Disabling tracking
// discards any in-progress session the same way removal does.
func (e *Engine) SetTracked(id int64, tracked bool) (types.WhitelistEntry, error) {
	entry, err := e.deps.Whitelist.SetTracked(id, tracked)
	if err != nil {
		return types.WhitelistEntry{}, err
	}
	if !tracked {
		e.deps.Tracker.Reset(entry.Name)
	}
	e.persist()
	return entry, nil
}

// Whitelist lists all whitelist entries.
func (e *Engine) Whitelist() []types.WhitelistEntry {
	return e.deps.Whitelist.List()
}

// Processes returns the current aggregated process table, sorted by
// name. It snapshots independently of the tick loop and never touches
// the input accumulators.
func (e *Engine) Processes(ctx context.Context) ([]types.AggregatedProcess, error) {
	samples, err := e.deps.Snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	aggs := aggregate.Aggregate(samples)
	out := make([]types.AggregatedProcess, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Sessions returns all sessions: persisted history first, then live
// views of in-progress sessions.
func (e *Engine) Sessions(now time.Time) []types.SessionRecord {
	e.mu.RLock()
	out := append([]types.SessionRecord(nil), e.closed...)
	e.mu.RUnlock()

	return append(out, e.deps.Tracker.LiveViews(now)...)
}

// Summary aggregates every session of one app.
func (e *Engine) Summary(app string, now time.Time) types.AppSummary {
	lower := strings.ToLower(app)

	var matched []types.SessionRecord
	for _, s := range e.Sessions(now) {
		if strings.ToLower(s.AppName) == lower {
			matched = append(matched, s)
		}
	}
	return summary.Summarize(app, matched, e.interval)
}

// DailySummary returns the per-day productivity rollup.
func (e *Engine) DailySummary(now time.Time) []types.DayRollup {
	return summary.Daily(e.Sessions(now), e.categories, e.interval, e.loc)
}

// SyncNow runs a full cloud synchronization and reseeds in-memory state
// from the merged result.
func (e *Engine) SyncNow(ctx context.Context) error {
	if e.syncer == nil {
		return ErrCloudDisabled
	}

	merged, err := e.syncer.Sync(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.closed = merged.Sessions
	e.mu.Unlock()
	e.deps.Whitelist.Replace(merged.Whitelist)
	e.deps.Tracker.EnsureNextID(merged.NextSessionID)
	return nil
}

// appendClosed records a finished session and persists eagerly so a
// crash right after close loses nothing.
func (e *Engine) appendClosed(closed types.ClosedSession) {
	record := closed.Record()

	e.mu.Lock()
	e.closed = append(e.closed, record)
	e.mu.Unlock()

	data := e.persist()
	if e.syncer != nil {
		// Cloud upload is fire-and-forget; failures only log.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := e.syncer.Upload(ctx, data); err != nil {
				e.log.Warn("cloud upload failed", zap.Error(err))
			}
		}()
	}
	if e.broadcast != nil {
		e.broadcast.Broadcast("session_closed", record)
	}
}

// persist writes the current durable state to the local store and
// returns the snapshot it wrote.
func (e *Engine) persist() types.PersistedData {
	e.mu.RLock()
	sessions := append([]types.SessionRecord(nil), e.closed...)
	e.mu.RUnlock()

	data := types.PersistedData{
		Whitelist:     e.deps.Whitelist.List(),
		Sessions:      sessions,
		NextSessionID: e.deps.Tracker.NextID(),
	}
	if err := e.deps.Store.Save(data); err != nil {
		if e.metrics != nil {
			e.metrics.SaveErrors.WithLabelValues("local").Inc()
		}
		e.log.Error("local save failed", zap.Error(err))
	}
	return data
}

// shutdown closes every live session and persists synchronously.
func (e *Engine) shutdown() {
	now := time.Now()
	closed := e.deps.Tracker.CloseAll(now)

	e.mu.Lock()
	for _, c := range closed {
		e.closed = append(e.closed, c.Record())
	}
	e.mu.Unlock()

	e.persist()
	e.log.Info("tick loop stopped", zap.Int("sessions_closed", len(closed)))
}

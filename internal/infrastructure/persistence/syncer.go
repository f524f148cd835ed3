package persistence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/perfguard/backend/internal/infrastructure/logging"
	"github.com/perfguard/backend/internal/infrastructure/monitoring"
	"github.com/perfguard/backend/internal/infrastructure/resilience"
	"github.com/perfguard/backend/internal/shared/types"
)

// CloudSyncer reconciles the local store with the cloud store. All cloud
// traffic goes through a circuit breaker so a dead backend degrades to
// local-only operation instead of stalling every sync.
type CloudSyncer struct {
	local   Store
	cloud   CloudStore
	breaker *resilience.Breaker
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewCloudSyncer creates a syncer over the given stores.
func NewCloudSyncer(local Store, cloud CloudStore) *CloudSyncer {
	return &CloudSyncer{
		local: local,
		cloud: cloud,
		breaker: resilience.NewBreaker("cloud", resilience.BreakerSettings{
			FailureThreshold: 3,
			Timeout:          2 * time.Minute,
		}),
		log: logging.NewNop(),
	}
}

// WithLogger sets the logger.
func (s *CloudSyncer) WithLogger(log *logging.Logger) *CloudSyncer {
	s.log = log.Component("syncer")
	return s
}

// WithMetrics sets the metrics collector.
func (s *CloudSyncer) WithMetrics(m *monitoring.Metrics) *CloudSyncer {
	s.metrics = m
	return s
}

// Sync merges local and cloud state, writes the union locally, and
// uploads it when the cloud copy is missing anything. It returns the
// merged state so callers can reseed in-memory managers from it.
func (s *CloudSyncer) Sync(ctx context.Context) (types.PersistedData, error) {
	local, err := s.local.Load()
	if err != nil {
		return types.PersistedData{}, fmt.Errorf("sync: %w", err)
	}

	var (
		cloud  types.PersistedData
		exists bool
	)
	err = s.breaker.Do(func() error {
		var fetchErr error
		cloud, exists, fetchErr = s.cloud.Fetch(ctx)
		return fetchErr
	})
	if err != nil {
		return types.PersistedData{}, fmt.Errorf("sync: %w", err)
	}

	merged := Merge(local, cloud)
	if err := s.local.Save(merged); err != nil {
		return types.PersistedData{}, fmt.Errorf("sync: %w", err)
	}

	if !exists || HoldsLess(cloud, merged) {
		err = s.breaker.Do(func() error {
			return s.cloud.Push(ctx, merged)
		})
		if err != nil {
			return types.PersistedData{}, fmt.Errorf("sync: %w", err)
		}
	}

	if s.metrics != nil {
		s.metrics.CloudSyncs.Inc()
	}
	s.log.Info("cloud sync complete",
		zap.Int("sessions", len(merged.Sessions)),
		zap.Int("whitelist", len(merged.Whitelist)))
	return merged, nil
}

// Upload pushes the given state without fetching first. Used for the
// fire-and-forget write after a session closes.
func (s *CloudSyncer) Upload(ctx context.Context, data types.PersistedData) error {
	err := s.breaker.Do(func() error {
		return s.cloud.Push(ctx, data)
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.SaveErrors.WithLabelValues("cloud").Inc()
		}
		return fmt.Errorf("upload: %w", err)
	}
	if s.metrics != nil {
		s.metrics.CloudSyncs.Inc()
	}
	return nil
}
